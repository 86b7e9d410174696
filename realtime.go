package zkteco

import (
	"context"
	"time"
)

// GetRealTimeLogs subscribes to attendance events and delivers each one to
// cb until timeout elapses (0 runs until ctx is cancelled). Only
// EF_ATTLOG is supported — see DESIGN.md for why the teacher's
// generalized event-mask subscription was dropped: the TCP event demux
// (isEventFrameTCP) can only tell a REG_EVENT frame apart from a command
// reply by checking for EF_ATTLOG specifically, so any other event kind
// would be misrouted into a concurrent command's reply channel instead of
// reaching the subscriber.
func (c *Client) GetRealTimeLogs(ctx context.Context, cb RealTimeCallback, timeout time.Duration) error {
	if c.transport == nil {
		return wrapOp(c.ip, "REG_EVENT", errConnRefused(c.ip, cmdRegEvent, nil))
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.transport.SubscribeRealTime(ctx, cb); err != nil {
		return wrapOp(c.ip, "REG_EVENT", err)
	}

	<-ctx.Done()
	if ctx.Err() == context.DeadlineExceeded {
		return nil
	}
	return ctx.Err()
}
