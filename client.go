package zkteco

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ConnectionType is which transport a Client ended up using after
// CreateSocket's TCP-first, UDP-fallback dance (spec.md §4.4).
type ConnectionType string

const (
	ConnTCP     ConnectionType = "tcp"
	ConnUDP     ConnectionType = "udp"
	ConnUnknown ConnectionType = ""
)

// ErrorCallback and CloseCallback mirror spec.md §6's onError/onClose.
type ErrorCallback func(error)
type CloseCallback func(connType ConnectionType)

// Client is the façade spec.md §4.4 describes: it attempts TCP first,
// falls back to UDP, and dispatches every public operation to whichever
// transport ended up active.
type Client struct {
	ip      string
	port    int
	timeout time.Duration
	inport  int

	log     *logrus.Entry
	metrics *metrics
	cache   *optionCache

	transport      Transport
	connectionType ConnectionType

	onError ErrorCallback
	onClose CloseCallback
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger overrides the default logger, an entry on logrus's standard
// logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics registers Prometheus counters against reg. Omit this option
// to run without metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}

// NewClient constructs a Client for the device at ip:port. timeout bounds
// every per-command round trip; inport is the local UDP port CreateSocket
// binds to if it falls back to UDP (0 lets the OS choose).
func NewClient(ip string, port int, timeout time.Duration, inport int, opts ...Option) *Client {
	c := &Client{
		ip:      ip,
		port:    port,
		timeout: timeout,
		inport:  inport,
		log:     logrus.NewEntry(logrus.StandardLogger()),
		cache:   newOptionCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) addr() string { return fmt.Sprintf("%s:%d", c.ip, c.port) }

// CreateSocket attempts TCP first; on connection refusal it falls back to
// UDP, binding the local socket to c.inport. A UDP EADDRINUSE is treated
// as "already connected" — a prior socket bound there is itself evidence
// a connection exists — per spec.md §4.4's documented pragmatic recovery.
func (c *Client) CreateSocket(ctx context.Context, onError ErrorCallback, onClose CloseCallback) error {
	c.onError = onError
	c.onClose = onClose

	tcp := NewTcpTransport(c.ip, c.port, c.timeout, c.log, c.metrics)
	err := tcp.Connect(ctx)
	if err == nil {
		if _, cerr := tcp.ExecuteCmd(ctx, cmdConnect, nil); cerr != nil {
			tcp.Disconnect(ctx)
			err = cerr
		} else {
			c.transport = tcp
			c.connectionType = ConnTCP
			c.log.WithField("ip", c.ip).Debug("connected over tcp")
			return nil
		}
	}

	if !isConnRefused(err) {
		return wrapOp(c.ip, "CONNECT", err)
	}

	c.metrics.fallback()
	c.log.WithField("ip", c.ip).Debug("tcp refused, falling back to udp")

	udp := NewUdpTransport(c.ip, c.port, c.inport, c.timeout, c.log, c.metrics)
	uerr := udp.Connect(ctx)
	if uerr != nil {
		if isAddrInUse(uerr) {
			c.log.Warn("udp bind address in use, treating as already connected")
		} else {
			return wrapOp(c.ip, "CONNECT", newZKError(ECONNREFUSED, "udp connect failed", c.ip, cmdConnect, uerr))
		}
	} else if _, cerr := udp.ExecuteCmd(ctx, cmdConnect, nil); cerr != nil {
		udp.Disconnect(ctx)
		return wrapOp(c.ip, "CONNECT", cerr)
	}

	c.transport = udp
	c.connectionType = ConnUDP
	return nil
}

func isConnRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var zerr *ZKError
	if errors.As(err, &zerr) && zerr.Code == ECONNREFUSED {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use")
}

// forwardingWrapper dispatches op to the active transport, tagging any
// error with {ip, command}. tcpOnly marks an operation with no UDP path:
// on a UDP connection it fails with EINVALID (spec.md §4.4).
func (c *Client) forwardingWrapper(command string, tcpOp func(Transport) (any, error), tcpOnly bool) (any, error) {
	if c.transport == nil {
		return nil, wrapOp(c.ip, command, errConnRefused(c.ip, 0, nil))
	}
	if tcpOnly && c.connectionType == ConnUDP {
		return nil, wrapOp(c.ip, command, errInvalid("UDP callback not provided", c.ip, 0))
	}
	v, err := tcpOp(c.transport)
	return v, wrapOp(c.ip, command, err)
}

// Disconnect tears down the active transport.
func (c *Client) Disconnect(ctx context.Context) bool {
	if c.transport == nil {
		return true
	}
	ok := c.transport.Disconnect(ctx)
	if c.onClose != nil {
		c.onClose(c.connectionType)
	}
	return ok
}

// ExecuteCmd is the low-level escape hatch spec.md §6 documents: issue an
// arbitrary opcode and get the raw reply payload back.
func (c *Client) ExecuteCmd(ctx context.Context, opcode uint16, data []byte) ([]byte, error) {
	v, err := c.forwardingWrapper(commandName(opcode), func(t Transport) (any, error) {
		f, err := t.ExecuteCmd(ctx, opcode, data)
		if err != nil {
			return nil, err
		}
		return f.Payload, nil
	}, false)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// FreeData releases the device's send buffer.
func (c *Client) FreeData(ctx context.Context) error {
	_, err := c.forwardingWrapper("FREE_DATA", func(t Transport) (any, error) {
		return nil, t.FreeData(ctx)
	}, false)
	return err
}

// GetSocketStatus reports the active transport's socket state, or
// "No socket instance" before CreateSocket succeeds.
func (c *Client) GetSocketStatus() string {
	if c.transport == nil {
		return "No socket instance"
	}
	return c.transport.SocketStatus()
}

// ConnectionType reports which transport CreateSocket settled on.
func (c *Client) ConnectionType() ConnectionType { return c.connectionType }
