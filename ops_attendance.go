package zkteco

import (
	"context"
	"encoding/binary"
)

// GetAttendances reads the full attendance log, reporting progress against
// the announced total size during chunked reassembly. Record layout is
// selected by the active transport the same way GetUsers picks it.
func (c *Client) GetAttendances(ctx context.Context, progress ProgressFunc) ([]*Attendance, error) {
	v, err := c.forwardingWrapper("ATT_LOG_RRQ", func(t Transport) (any, error) {
		if err := t.FreeData(ctx); err != nil {
			return nil, err
		}
		res, err := t.ReadWithBuffer(ctx, reqGetAttendanceLogs, progress)
		if err != nil {
			return nil, err
		}
		if ferr := t.FreeData(ctx); ferr != nil && err == nil {
			err = ferr
		}

		recSize, decode := attRecordSizeTCP, decodeAttendance40
		if c.connectionType == ConnUDP {
			recSize, decode = attRecordSizeUDP, decodeAttendance16
		}

		data := res.Data
		if len(data) < countPrefixSize {
			return []*Attendance{}, err
		}
		data = data[countPrefixSize:]

		var logs []*Attendance
		for off := 0; off+recSize <= len(data); off += recSize {
			if a := decode(data[off : off+recSize]); a != nil {
				a.IP = c.ip
				logs = append(logs, a)
			}
		}
		return logs, err
	}, false)
	if err != nil {
		return nil, err
	}
	return v.([]*Attendance), nil
}

// GetAttendanceSize reports how many attendance records the device holds,
// via the same counters GetInfo decodes.
func (c *Client) GetAttendanceSize(ctx context.Context) (int, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.LogCounts, nil
}

// ClearAttendanceLog wipes the device's attendance log.
func (c *Client) ClearAttendanceLog(ctx context.Context) error {
	_, err := c.forwardingWrapper("CLEAR_ATTLOG", func(t Transport) (any, error) {
		_, err := t.ExecuteCmd(ctx, cmdClearAttLog, nil)
		return nil, err
	}, false)
	return err
}

// GetFingerprints reads every enrolled fingerprint template for uid,
// keyed by finger index (0-9). A finger with no enrolled template is
// simply absent from the result — the device answers a per-finger
// request with an error when nothing is stored there, and that's not
// treated as fatal for the whole call.
func (c *Client) GetFingerprints(ctx context.Context, uid int) (map[int][]byte, error) {
	v, err := c.forwardingWrapper("USER_TEMP_RRQ", func(t Transport) (any, error) {
		result := make(map[int][]byte)
		for finger := 0; finger <= 9; finger++ {
			body := []byte{byte(uid & 0xFF), byte((uid >> 8) & 0xFF), byte(finger)}

			if err := t.FreeData(ctx); err != nil {
				return nil, err
			}
			res, err := t.ReadWithBuffer(ctx, body, nil)
			if err != nil {
				continue
			}
			_ = t.FreeData(ctx)

			if len(res.Data) <= 6 {
				continue
			}
			templateSize := int(binary.LittleEndian.Uint16(res.Data[0:2]))
			if templateSize > 0 && len(res.Data) >= 6+templateSize {
				template := make([]byte, templateSize)
				copy(template, res.Data[6:6+templateSize])
				result[finger] = template
			}
		}
		return result, nil
	}, false)
	if err != nil {
		return nil, err
	}
	return v.(map[int][]byte), nil
}
