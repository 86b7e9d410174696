package zkteco

import (
	"context"
	"encoding/binary"
	"strconv"
)

// countPrefixSize is the leading byte count ReadWithBuffer's assembled
// buffer always carries ahead of the fixed-size records (spec.md §4.5):
// a 4-byte record count, regardless of which record size follows.
const countPrefixSize = 4

// GetUsers reads the full user table. It picks the 72- or 28-byte record
// layout from the client's active connection type, skipping the 4-byte
// count prefix before looping over fixed-size records.
func (c *Client) GetUsers(ctx context.Context) ([]*User, error) {
	v, err := c.forwardingWrapper("USER_TEMP_RRQ", func(t Transport) (any, error) {
		if err := t.FreeData(ctx); err != nil {
			return nil, err
		}
		res, err := t.ReadWithBuffer(ctx, reqGetUsers, nil)
		if err != nil {
			return nil, err
		}
		if ferr := t.FreeData(ctx); ferr != nil && err == nil {
			err = ferr
		}

		recSize, decode := userRecordSizeTCP, decodeUser72
		if c.connectionType == ConnUDP {
			recSize, decode = userRecordSizeUDP, decodeUser28
		}

		data := res.Data
		if len(data) < countPrefixSize {
			return []*User{}, err
		}
		data = data[countPrefixSize:]

		var users []*User
		for off := 0; off+recSize <= len(data); off += recSize {
			if u := decode(data[off : off+recSize]); u != nil {
				users = append(users, u)
			}
		}
		return users, err
	}, false)
	if err != nil {
		return nil, err
	}
	return v.([]*User), nil
}

// SetUser enrolls or updates a single user, validating every field bound
// spec.md §4.5 documents before building the 72-byte payload.
func (c *Client) SetUser(ctx context.Context, u *User) error {
	if u.UID < 1 || u.UID > 3000 {
		return errInvalid("uid must be between 1 and 3000", c.ip, cmdSetUser)
	}
	if len(u.UserID) > 9 {
		return errInvalid("userId must be at most 9 characters", c.ip, cmdSetUser)
	}
	if len(u.Name) > 24 {
		return errInvalid("name must be at most 24 characters", c.ip, cmdSetUser)
	}
	if len(u.Password) > 8 {
		return errInvalid("password must be at most 8 characters", c.ip, cmdSetUser)
	}
	if len(strconv.Itoa(u.CardNo)) > 10 {
		return errInvalid("cardno must be at most 10 digits", c.ip, cmdSetUser)
	}

	payload := make([]byte, userRecordSizeTCP)
	binary.LittleEndian.PutUint16(payload[0:2], uint16(u.UID))
	payload[2] = byte(u.Role)
	copy(payload[3:11], []byte(u.Password))
	copy(payload[11:35], []byte(u.Name))
	binary.LittleEndian.PutUint32(payload[35:39], uint32(u.CardNo))
	copy(payload[48:57], []byte(u.UserID))

	_, err := c.forwardingWrapper("SET_USER", func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, cmdSetUser, payload)
		if err != nil {
			return nil, err
		}
		if f.Cmd != cmdAckOK {
			return nil, errInvalid("device rejected SET_USER", c.ip, cmdSetUser)
		}
		return nil, nil
	}, false)
	return err
}

// RemoveUser deletes a single user by uid.
func (c *Client) RemoveUser(ctx context.Context, uid int) error {
	body := make([]byte, 2)
	binary.LittleEndian.PutUint16(body, uint16(uid))
	_, err := c.forwardingWrapper("DELETE_USER", func(t Transport) (any, error) {
		_, err := t.ExecuteCmd(ctx, cmdDeleteUser, body)
		return nil, err
	}, false)
	return err
}

// ClearAllUsers wipes the entire user table.
func (c *Client) ClearAllUsers(ctx context.Context) error {
	_, err := c.forwardingWrapper("CLEAR_DATA", func(t Transport) (any, error) {
		_, err := t.ExecuteCmd(ctx, cmdClearData, []byte{fctUser})
		return nil, err
	}, false)
	return err
}

// ClearAdmin revokes admin privileges from every enrolled user.
func (c *Client) ClearAdmin(ctx context.Context) error {
	_, err := c.forwardingWrapper("CLEAR_ADMIN", func(t Transport) (any, error) {
		_, err := t.ExecuteCmd(ctx, cmdClearAdmin, nil)
		return nil, err
	}, false)
	return err
}
