package zkteco

import (
	"context"
	"encoding/binary"
	"time"
)

// GetTime reads the device's current clock.
func (c *Client) GetTime(ctx context.Context) (time.Time, error) {
	v, err := c.forwardingWrapper("GET_TIME", func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, cmdGetTime, nil)
		if err != nil {
			return nil, err
		}
		if len(f.Payload) < 4 {
			return nil, errInvalid("GET_TIME response too short", c.ip, cmdGetTime)
		}
		return DecodeCompactTimestamp(binary.LittleEndian.Uint32(f.Payload[0:4])), nil
	}, false)
	if err != nil {
		return time.Time{}, err
	}
	return v.(time.Time), nil
}

// SetTime sets the device's clock to t.
func (c *Client) SetTime(ctx context.Context, t time.Time) error {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, EncodeCompactTimestamp(t))
	_, err := c.forwardingWrapper("SET_TIME", func(tr Transport) (any, error) {
		_, err := tr.ExecuteCmd(ctx, cmdSetTime, body)
		return nil, err
	}, false)
	return err
}
