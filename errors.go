package zkteco

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode is the closed taxonomy from spec.md §7.
type ErrorCode string

const (
	ECONNRESET   ErrorCode = "ECONNRESET"
	ECONNREFUSED ErrorCode = "ECONNREFUSED"
	EADDRINUSE   ErrorCode = "EADDRINUSE"
	ETIMEDOUT    ErrorCode = "ETIMEDOUT"
	EINVALID     ErrorCode = "EINVALID"
	EUNHANDLED   ErrorCode = "UNHANDLED_CMD"
)

// Specific timeout messages folded under the ETIMEDOUT umbrella.
const (
	MsgTimeoutOnWriting           = "TIMEOUT_ON_WRITING_MESSAGE"
	MsgTimeoutOnReceivingRequest  = "TIMEOUT_ON_RECEIVING_REQUEST_DATA"
	MsgTimeoutAfterRequestingData = "TIMEOUT_IN_RECEIVING_RESPONSE_AFTER_REQUESTING_DATA"
	MsgTimeoutReceivingPacket     = "TIMEOUT_WHEN_RECEIVING_PACKET"
	MsgSocketDisconnected         = "SOCKET_DISCONNECTED_UNEXPECTEDLY"
)

// ZKError is every error the core surfaces to a caller: tagged with the
// originating command and device address, wrapping an inner cause.
type ZKError struct {
	Code    ErrorCode
	Message string
	IP      string
	Command string
	cause   error
}

func (e *ZKError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s (ip=%s command=%s)", e.Code, e.Message, e.IP, e.Command)
	}
	return fmt.Sprintf("%s: %s (ip=%s)", e.Code, e.Message, e.IP)
}

// Unwrap lets errors.Is/errors.As see through to the cause.
func (e *ZKError) Unwrap() error { return e.cause }

// Cause satisfies github.com/pkg/errors' causer interface.
func (e *ZKError) Cause() error { return e.cause }

// newZKError builds a ZKError, wrapping cause with a stack trace if it
// doesn't already carry one.
func newZKError(code ErrorCode, message, ip string, cmd uint16, cause error) *ZKError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	name := commandName(cmd)
	if name == "UNKNOWN" {
		// Left empty so wrapOp can tag it with the operation name.
		name = ""
	}
	return &ZKError{
		Code:    code,
		Message: message,
		IP:      ip,
		Command: name,
		cause:   cause,
	}
}

func errTimeout(message, ip string, cmd uint16, cause error) *ZKError {
	return newZKError(ETIMEDOUT, message, ip, cmd, cause)
}

func errConnRefused(ip string, cmd uint16, cause error) *ZKError {
	return newZKError(ECONNREFUSED, "connection refused", ip, cmd, cause)
}

func errInvalid(message, ip string, cmd uint16) *ZKError {
	return newZKError(EINVALID, message, ip, cmd, nil)
}

func errUnhandledCmd(ip string, gotCmd uint16) *ZKError {
	return newZKError(EUNHANDLED, fmt.Sprintf("UNHANDLED_CMD(%s)", commandName(gotCmd)), ip, gotCmd, nil)
}

func errSocketDisconnected(ip string, cmd uint16) *ZKError {
	return newZKError(ECONNRESET, MsgSocketDisconnected, ip, cmd, nil)
}

// wrapOp wraps err (if non-nil) with {ip, command} context for the client
// façade's forwardingWrapper, per spec.md §4.4.
func wrapOp(ip, command string, err error) error {
	if err == nil {
		return nil
	}
	if zerr, ok := err.(*ZKError); ok {
		if zerr.Command == "" {
			zerr.Command = command
		}
		if zerr.IP == "" {
			zerr.IP = ip
		}
		return zerr
	}
	return errors.Wrapf(err, "%s: ip=%s", command, ip)
}
