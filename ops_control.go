package zkteco

import "context"

// EnableDevice re-enables the verification UI after DisableDevice.
func (c *Client) EnableDevice(ctx context.Context) error {
	return c.simpleCmd(ctx, "ENABLE_DEVICE", cmdEnableDevice, nil)
}

// DisableDevice locks out the verification UI, e.g. while importing data.
func (c *Client) DisableDevice(ctx context.Context) error {
	return c.simpleCmd(ctx, "DISABLE_DEVICE", cmdDisableDevice, reqDisableDevice)
}

// Restart reboots the device.
func (c *Client) Restart(ctx context.Context) error {
	return c.simpleCmd(ctx, "RESTART", cmdRestart, nil)
}

// Shutdown powers the device off.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.simpleCmd(ctx, "POWEROFF", cmdPoweroff, nil)
}

// Sleep puts the device into standby.
func (c *Client) Sleep(ctx context.Context) error {
	return c.simpleCmd(ctx, "SLEEP", cmdSleep, nil)
}

// Resume wakes the device from standby.
func (c *Client) Resume(ctx context.Context) error {
	return c.simpleCmd(ctx, "RESUME", cmdResume, nil)
}

// TestVoice makes the device play its test chime.
func (c *Client) TestVoice(ctx context.Context) error {
	return c.simpleCmd(ctx, "TEST_VOICE", cmdTestVoice, nil)
}

// WriteLCD writes a line of text to the device's LCD at the given line
// number.
func (c *Client) WriteLCD(ctx context.Context, line int, text string) error {
	body := make([]byte, 0, 2+len(text))
	body = append(body, byte(line), 0x00)
	body = append(body, []byte(text)...)
	return c.simpleCmd(ctx, "WRITE_LCD", cmdWriteLCD, body)
}

// ClearLCD clears the device's LCD.
func (c *Client) ClearLCD(ctx context.Context) error {
	return c.simpleCmd(ctx, "CLEAR_LCD", cmdClearLCD, nil)
}

func (c *Client) simpleCmd(ctx context.Context, name string, opcode uint16, body []byte) error {
	_, err := c.forwardingWrapper(name, func(t Transport) (any, error) {
		_, err := t.ExecuteCmd(ctx, opcode, body)
		return nil, err
	}, false)
	return err
}
