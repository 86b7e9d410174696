package zkteco

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// tcpChunkIdle is the chunk-reassembly idle timeout on the TCP transport
// (spec.md §4.3.1).
const tcpChunkIdle = 10 * time.Second

// TcpTransport is the TCP-framed implementation of Transport.
type TcpTransport struct {
	*baseTransport

	host string
	port int

	connMu sync.Mutex
	conn   net.Conn

	streamMu sync.Mutex
	pending  []byte

	regMu        sync.Mutex
	eventRegistered bool
}

// NewTcpTransport constructs a TCP transport for host:port.
func NewTcpTransport(host string, port int, timeout time.Duration, log *logrus.Entry, m *metrics) *TcpTransport {
	addr := fmt.Sprintf("%s:%d", host, port)
	t := &TcpTransport{host: host, port: port}
	t.baseTransport = newBaseTransport(addr, timeout, tcpChunkIdle, buildTCPFrame, isEventFrameTCP, decodeTCPEvent, log.WithField("transport", "tcp"), m)
	return t
}

func decodeTCPEvent(f frame) RealTimeEvent {
	return decodeRealTimeEvent52(f.Payload, int(f.Session))
}

// Connect dials the device over TCP and starts the background frame
// reader. It does not send CMD_CONNECT — ExecuteCmd(CONNECT) does that,
// matching spec.md's separation between socket setup and the protocol
// handshake.
func (t *TcpTransport) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: connectTimeout}
	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return errConnRefused(addr, cmdConnect, err)
		}
		return err
	}

	t.connMu.Lock()
	t.conn = conn
	t.connMu.Unlock()

	t.pending = nil
	t.start(t.readFrame)
	return nil
}

func (t *TcpTransport) getConn() net.Conn {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn
}

// readFrame blocks until a complete inner frame can be peeled off the
// accumulated TCP stream, reading more bytes as needed. This is the
// generalized form of the teacher's extractTCPPacket/recvTCP pair — the
// peeled frames feed baseTransport's router the same way UDP datagrams do.
func (t *TcpTransport) readFrame() (frame, error) {
	conn := t.getConn()
	if conn == nil {
		return frame{}, errors.New("tcp transport: not connected")
	}

	for {
		t.streamMu.Lock()
		if f, _, consumed, ok := parseTCPFrame(t.pending); ok {
			t.pending = append([]byte(nil), t.pending[consumed:]...)
			t.streamMu.Unlock()
			return f, nil
		}
		t.streamMu.Unlock()

		buf := make([]byte, 16384)
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return frame{}, err
		}
		n, err := conn.Read(buf)
		if err != nil {
			return frame{}, err
		}

		t.streamMu.Lock()
		t.pending = append(t.pending, buf[:n]...)
		t.streamMu.Unlock()
	}
}

// ExecuteCmd sends cmd/data and awaits exactly one reply frame.
func (t *TcpTransport) ExecuteCmd(ctx context.Context, cmd uint16, data []byte) (*frame, error) {
	conn := t.getConn()
	if conn == nil {
		return nil, errConnRefused(t.addr, cmd, nil)
	}
	f, err := t.baseTransport.ExecuteCmd(ctx, conn, cmd, data)
	if err == nil && cmd == cmdConnect {
		t.setSessionID(f.Session)
	}
	return f, err
}

// ReadWithBuffer drives a bulk read. Mode is reported as 8 when the
// device answered inline with DATA/ACK_DATA — no chunking occurred.
func (t *TcpTransport) ReadWithBuffer(ctx context.Context, reqBody []byte, progress ProgressFunc) (*BulkResult, error) {
	conn := t.getConn()
	if conn == nil {
		return nil, errConnRefused(t.addr, cmdDataWRRQ, nil)
	}
	return t.baseTransport.ReadWithBuffer(ctx, conn, reqBody, progress, 8)
}

func (t *TcpTransport) SendChunkRequest(start, size uint32) error {
	conn := t.getConn()
	if conn == nil {
		return errConnRefused(t.addr, cmdDataRdy, nil)
	}
	return t.baseTransport.SendChunkRequest(conn, start, size)
}

func (t *TcpTransport) FreeData(ctx context.Context) error {
	conn := t.getConn()
	if conn == nil {
		return errConnRefused(t.addr, cmdFreeData, nil)
	}
	return t.baseTransport.FreeData(ctx, conn)
}

// SubscribeRealTime registers for attendance events and installs cb as
// the persistent listener. Guards against double-registration and resets
// the reply-id once it exceeds 100, per spec.md §4.3.
func (t *TcpTransport) SubscribeRealTime(ctx context.Context, cb RealTimeCallback) error {
	t.regMu.Lock()
	already := t.eventRegistered
	t.regMu.Unlock()
	if already {
		return errInvalid("real-time events already registered", t.addr, cmdRegEvent)
	}

	// Mark subscribed before the registration command goes out: the
	// device can start pushing event frames the instant it sees
	// REG_EVENT, and those must never be mistaken for that command's own
	// reply or routed to whatever command happens to be in flight next.
	t.subMu.Lock()
	t.subscribed = true
	t.eventCB = cb
	t.subMu.Unlock()

	if _, err := t.ExecuteCmd(ctx, cmdRegEvent, []byte{0x01, 0x00, 0x00, 0x00}); err != nil {
		t.subMu.Lock()
		t.subscribed = false
		t.eventCB = nil
		t.subMu.Unlock()
		return err
	}

	t.mu.Lock()
	if t.replyID > 100 {
		t.replyID = 0
	}
	t.mu.Unlock()

	t.regMu.Lock()
	t.eventRegistered = true
	t.regMu.Unlock()
	return nil
}

// Disconnect best-effort EXITs then closes the socket, swallowing EXIT
// errors per spec.md §7.
func (t *TcpTransport) Disconnect(ctx context.Context) bool {
	conn := t.getConn()
	if conn == nil {
		return true
	}

	exitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	_, _ = t.ExecuteCmd(exitCtx, cmdExit, nil)
	cancel()

	err := conn.Close()

	grace := time.NewTimer(2 * time.Second)
	defer grace.Stop()
	select {
	case <-t.done:
	case <-grace.C:
	}

	t.connMu.Lock()
	t.conn = nil
	t.connMu.Unlock()
	return err == nil
}

// SocketStatus reports one of "No socket instance", "Closed", "Open".
func (t *TcpTransport) SocketStatus() string {
	conn := t.getConn()
	if conn == nil {
		return "No socket instance"
	}
	select {
	case <-t.done:
		return "Closed"
	default:
		return "Open"
	}
}
