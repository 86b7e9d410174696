package zkteco

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// udpChunkIdle is the chunk-reassembly idle timeout on the UDP transport
// (spec.md §4.3.1).
const udpChunkIdle = 3 * time.Second

const udpMaxDatagram = 65536

// UdpTransport is the UDP-datagram implementation of Transport.
type UdpTransport struct {
	*baseTransport

	host   string
	port   int
	inport int

	connMu sync.Mutex
	conn   *net.UDPConn
}

// NewUdpTransport constructs a UDP transport for host:port, binding the
// local socket to inport (0 lets the OS choose).
func NewUdpTransport(host string, port, inport int, timeout time.Duration, log *logrus.Entry, m *metrics) *UdpTransport {
	addr := fmt.Sprintf("%s:%d", host, port)
	t := &UdpTransport{host: host, port: port, inport: inport}
	t.baseTransport = newBaseTransport(addr, timeout, udpChunkIdle, buildUDPFrame, isEventFrameUDP, decodeUDPEvent, log.WithField("transport", "udp"), m)
	return t
}

func decodeUDPEvent(f frame) RealTimeEvent {
	return decodeRealTimeEvent18(f.Payload, int(f.Session))
}

// Connect binds the local UDP socket and starts the background frame
// reader. Like TcpTransport, it does not itself send CMD_CONNECT.
func (u *UdpTransport) Connect(ctx context.Context) error {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", u.host, u.port))
	if err != nil {
		return errConnRefused(u.addr, cmdConnect, err)
	}
	laddr := &net.UDPAddr{Port: u.inport}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return err // caller (Client) distinguishes EADDRINUSE
	}

	u.connMu.Lock()
	u.conn = conn
	u.connMu.Unlock()

	u.start(u.readFrame)
	return nil
}

func (u *UdpTransport) getConn() *net.UDPConn {
	u.connMu.Lock()
	defer u.connMu.Unlock()
	return u.conn
}

// readFrame blocks for exactly one inbound datagram and decodes it as a
// single frame — no cross-call buffering needed on this transport.
func (u *UdpTransport) readFrame() (frame, error) {
	conn := u.getConn()
	if conn == nil {
		return frame{}, errors.New("udp transport: not connected")
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return frame{}, err
	}
	buf := make([]byte, udpMaxDatagram)
	n, err := conn.Read(buf)
	if err != nil {
		return frame{}, err
	}
	f, ok := parseUDPFrame(buf[:n])
	if !ok {
		return frame{}, fmt.Errorf("udp transport: short datagram (%d bytes)", n)
	}
	return f, nil
}

func (u *UdpTransport) ExecuteCmd(ctx context.Context, cmd uint16, data []byte) (*frame, error) {
	conn := u.getConn()
	if conn == nil {
		return nil, errConnRefused(u.addr, cmd, nil)
	}
	f, err := u.baseTransport.ExecuteCmd(ctx, conn, cmd, data)
	if err == nil && cmd == cmdConnect {
		u.setSessionID(f.Session)
	}
	return f, err
}

// ReadWithBuffer drives a bulk read; Mode is always 0 on UDP (every reply
// — inline or chunked — arrives as discrete datagrams either way).
func (u *UdpTransport) ReadWithBuffer(ctx context.Context, reqBody []byte, progress ProgressFunc) (*BulkResult, error) {
	conn := u.getConn()
	if conn == nil {
		return nil, errConnRefused(u.addr, cmdDataWRRQ, nil)
	}
	return u.baseTransport.ReadWithBuffer(ctx, conn, reqBody, progress, 0)
}

func (u *UdpTransport) SendChunkRequest(start, size uint32) error {
	conn := u.getConn()
	if conn == nil {
		return errConnRefused(u.addr, cmdDataRdy, nil)
	}
	return u.baseTransport.SendChunkRequest(conn, start, size)
}

func (u *UdpTransport) FreeData(ctx context.Context) error {
	conn := u.getConn()
	if conn == nil {
		return errConnRefused(u.addr, cmdFreeData, nil)
	}
	return u.baseTransport.FreeData(ctx, conn)
}

// SubscribeRealTime registers for attendance events over UDP.
func (u *UdpTransport) SubscribeRealTime(ctx context.Context, cb RealTimeCallback) error {
	u.subMu.Lock()
	u.subscribed = true
	u.eventCB = cb
	u.subMu.Unlock()

	if _, err := u.ExecuteCmd(ctx, cmdRegEvent, reqGetRealTimeEvent); err != nil {
		u.subMu.Lock()
		u.subscribed = false
		u.eventCB = nil
		u.subMu.Unlock()
		return err
	}
	return nil
}

// Disconnect best-effort EXITs then closes the socket.
func (u *UdpTransport) Disconnect(ctx context.Context) bool {
	conn := u.getConn()
	if conn == nil {
		return true
	}

	exitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	_, _ = u.ExecuteCmd(exitCtx, cmdExit, nil)
	cancel()

	err := conn.Close()

	grace := time.NewTimer(2 * time.Second)
	defer grace.Stop()
	select {
	case <-u.done:
	case <-grace.C:
	}

	u.connMu.Lock()
	u.conn = nil
	u.connMu.Unlock()
	return err == nil
}

// SocketStatus reports one of "No socket instance", "Bound to port N",
// "Unbound".
func (u *UdpTransport) SocketStatus() string {
	conn := u.getConn()
	if conn == nil {
		return "No socket instance"
	}
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || local.Port == 0 {
		return "Unbound"
	}
	return fmt.Sprintf("Bound to port %d", local.Port)
}
