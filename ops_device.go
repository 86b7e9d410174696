package zkteco

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
)

// getDeviceOption sends CMD_DEVICE with keyword and strips the leading
// "<keyword>=" the device echoes back, caching the result briefly (device
// options rarely change mid-session; see cache.go).
func (c *Client) getDeviceOption(ctx context.Context, keyword string) (string, error) {
	if v, ok := c.cache.get(keyword); ok {
		return v, nil
	}

	v, err := c.forwardingWrapper("DEVICE", func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, cmdDevice, []byte(keyword))
		if err != nil {
			return nil, err
		}
		value := string(f.Payload)
		if idx := strings.Index(value, "="); idx >= 0 {
			value = value[idx+1:]
		}
		return strings.TrimRight(value, "\x00"), nil
	}, true)
	if err != nil {
		return "", err
	}
	s := v.(string)
	c.cache.set(keyword, s)
	return s, nil
}

// GetSerialNumber, GetDeviceVersion, GetDeviceName, GetPlatform, GetOS,
// GetWorkCode, GetPIN, GetSSR and GetFaceOn are the TCP-only metadata
// getters of spec.md §6 — thin wrappers composing getDeviceOption.
func (c *Client) GetSerialNumber(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "~SerialNumber")
}

func (c *Client) GetDeviceVersion(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "~ZKFPVersion")
}

func (c *Client) GetDeviceName(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "~DeviceName")
}

func (c *Client) GetPlatform(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "~Platform")
}

func (c *Client) GetOS(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "~OS")
}

func (c *Client) GetWorkCode(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "WorkCode")
}

func (c *Client) GetPIN(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "~PIN2Width")
}

func (c *Client) GetSSR(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "~SSR")
}

// GetFaceOn reports whether the face-recognition function is enabled.
// Preserves the original inverted-sense convention: the device reports
// "0" for "on", so the presence of "0" in the option string means "Yes".
func (c *Client) GetFaceOn(ctx context.Context) (string, error) {
	v, err := c.getDeviceOption(ctx, "FaceFunOn")
	if err != nil {
		return "", err
	}
	if strings.Contains(v, "0") {
		return "Yes", nil
	}
	return "No", nil
}

// GetFirmware reads the firmware version via CMD_VERSION (opcode 1100).
func (c *Client) GetFirmware(ctx context.Context) (string, error) {
	v, err := c.forwardingWrapper("VERSION", func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, cmdVersion, nil)
		if err != nil {
			return nil, err
		}
		return strings.TrimRight(string(f.Payload), "\x00"), nil
	}, true)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// DeviceInfo holds the memory/capacity counters GetInfo decodes from
// CMD_GET_FREE_SIZES.
type DeviceInfo struct {
	UserCounts  int
	LogCounts   int
	LogCapacity int
}

// GetInfo issues GET_FREE_SIZES and decodes the user/log counters at the
// fixed offsets spec.md §4.5 documents.
func (c *Client) GetInfo(ctx context.Context) (*DeviceInfo, error) {
	v, err := c.forwardingWrapper("GET_FREE_SIZES", func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, cmdGetFreeSizes, nil)
		if err != nil {
			return nil, err
		}
		if len(f.Payload) < 68 {
			return nil, fmt.Errorf("getInfo: response too short: %d bytes", len(f.Payload))
		}
		return &DeviceInfo{
			UserCounts:  int(binary.LittleEndian.Uint32(f.Payload[16:20])),
			LogCounts:   int(binary.LittleEndian.Uint32(f.Payload[32:36])),
			LogCapacity: int(binary.LittleEndian.Uint32(f.Payload[64:68])),
		}, nil
	}, false)
	if err != nil {
		return nil, err
	}
	return v.(*DeviceInfo), nil
}

// SetCustomData sets a custom "*key=value" option on the device.
func (c *Client) SetCustomData(ctx context.Context, key, value string) error {
	_, err := c.forwardingWrapper("OPTIONS_WRQ", func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, cmdOptionsWRQ, []byte(fmt.Sprintf("*%s=%s", key, value)))
		if err != nil {
			return nil, err
		}
		if f.Cmd != cmdAckOK {
			return nil, fmt.Errorf("setCustomData: error response %d", f.Cmd)
		}
		c.cache.invalidate(key)
		return nil, nil
	}, false)
	return err
}

// GetCustomData reads a custom "*key" option from the device.
func (c *Client) GetCustomData(ctx context.Context, key string) (string, error) {
	return c.getDeviceOption(ctx, "*"+key)
}

// SetPushCommKey sets the push-protocol communication key.
func (c *Client) SetPushCommKey(ctx context.Context, value string) error {
	_, err := c.forwardingWrapper("OPTIONS_WRQ", func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, cmdOptionsWRQ, []byte(fmt.Sprintf("pushcommkey=%s", value)))
		if err != nil {
			return nil, err
		}
		if f.Cmd != cmdAckOK {
			return nil, fmt.Errorf("setPushCommKey: error response %d", f.Cmd)
		}
		c.cache.invalidate("pushcommkey")
		return nil, nil
	}, false)
	return err
}

// GetPushCommKey reads the push-protocol communication key.
func (c *Client) GetPushCommKey(ctx context.Context) (string, error) {
	return c.getDeviceOption(ctx, "pushcommkey")
}
