package zkteco

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// connectTimeout is the fixed timeout for CONNECT/EXIT, distinct from the
// caller-configured per-command timeout (spec.md §4.3, §5).
const connectTimeout = 2 * time.Second

// ProgressFunc reports bytes received so far against the announced total
// during a chunked bulk transfer.
type ProgressFunc func(received, total int)

// RealTimeCallback receives a decoded real-time event.
type RealTimeCallback func(RealTimeEvent)

// BulkResult is the outcome of ReadWithBuffer. Err is set on a partial
// read (chunk-idle timeout or unexpected disconnect) while Data still
// carries whatever was assembled before the failure — the caller decides
// whether a partial buffer is useful (spec.md §7 propagation policy).
type BulkResult struct {
	Data []byte
	Mode int
	Err  error
}

// Transport is the capability set both TcpTransport and UdpTransport
// implement; Client holds exactly one at a time (spec.md §9 design notes).
type Transport interface {
	Connect(ctx context.Context) error
	ExecuteCmd(ctx context.Context, cmd uint16, data []byte) (*frame, error)
	ReadWithBuffer(ctx context.Context, reqBody []byte, progress ProgressFunc) (*BulkResult, error)
	SendChunkRequest(start, size uint32) error
	FreeData(ctx context.Context) error
	Disconnect(ctx context.Context) bool
	SocketStatus() string
	SubscribeRealTime(ctx context.Context, cb RealTimeCallback) error
	SessionID() uint16
}

// readFrameFunc blocks until exactly one inbound frame is available (TCP:
// peeling it off the accumulated stream buffer, reading more as needed;
// UDP: one frame per datagram).
type readFrameFunc func() (frame, error)

// buildFrameFunc encodes a command into this transport's wire shape.
type buildFrameFunc func(cmd, session, reply uint16, data []byte) []byte

// baseTransport holds everything TcpTransport and UdpTransport share: the
// session/reply-id counters, the single-in-flight semaphore, the
// background frame router, and the generic command/bulk-read state
// machine. Concrete transports supply the wire-format-specific bits
// (build, readFrame, isEvent, decodeEvent, chunkIdle) and embed this.
type baseTransport struct {
	addr      string
	timeout   time.Duration
	chunkIdle time.Duration

	build     buildFrameFunc
	isEvent   func(frame) bool
	decode    func(frame) RealTimeEvent

	log     *logrus.Entry
	metrics *metrics

	sem *semaphore.Weighted

	mu        sync.Mutex
	sessionID uint16
	replyID   uint16

	replyCh chan frame
	done    chan struct{}
	doneErr error
	once    sync.Once

	subMu      sync.Mutex
	subscribed bool
	eventCB    RealTimeCallback
}

func newBaseTransport(addr string, timeout, chunkIdle time.Duration, build buildFrameFunc, isEvent func(frame) bool, decode func(frame) RealTimeEvent, log *logrus.Entry, m *metrics) *baseTransport {
	return &baseTransport{
		addr:      addr,
		timeout:   timeout,
		chunkIdle: chunkIdle,
		build:     build,
		isEvent:   isEvent,
		decode:    decode,
		log:       log,
		metrics:   m,
		sem:       semaphore.NewWeighted(1),
		replyCh:   make(chan frame, 8),
		done:      make(chan struct{}),
	}
}

// start launches the background frame router. readFrame must block until
// one frame is available or the connection fails.
func (b *baseTransport) start(readFrame readFrameFunc) {
	go func() {
		for {
			f, err := readFrame()
			if err != nil {
				b.log.WithError(err).Debug("frame reader stopped")
				b.once.Do(func() {
					b.doneErr = err
					close(b.done)
				})
				return
			}
			if b.isEvent(f) {
				if b.isSubscribed() {
					b.dispatchEvent(f)
				} else {
					b.log.Debug("no real-time subscriber, dropping event frame")
				}
				continue
			}
			select {
			case b.replyCh <- f:
			default:
				b.log.Warn("reply channel full, dropping stray frame")
			}
		}
	}()
}

func (b *baseTransport) isSubscribed() bool {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return b.subscribed
}

func (b *baseTransport) dispatchEvent(f frame) {
	b.subMu.Lock()
	cb := b.eventCB
	b.subMu.Unlock()
	if cb == nil {
		return
	}
	cb(b.decode(f))
}

// SessionID returns the device-assigned session id (0 before CONNECT).
func (b *baseTransport) SessionID() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

func (b *baseTransport) setSessionID(id uint16) {
	b.mu.Lock()
	b.sessionID = id
	b.mu.Unlock()
}

// nextFrame advances the reply-id/session state per spec.md §4.3 and
// returns the (session, reply) pair to stamp into the outgoing frame.
func (b *baseTransport) nextFrame(cmd uint16) (session, reply uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cmd == cmdConnect {
		b.sessionID = 0
		b.replyID = 0
	} else {
		b.replyID++
	}
	return b.sessionID, b.replyID
}

// ExecuteCmd sends cmd/data and awaits exactly one reply frame.
func (b *baseTransport) ExecuteCmd(ctx context.Context, conn net.Conn, cmd uint16, data []byte) (*frame, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	session, reply := b.nextFrame(cmd)
	pkt := b.build(cmd, session, reply, data)

	deadline := b.timeout
	if cmd == cmdConnect || cmd == cmdExit {
		deadline = connectTimeout
	}

	if err := conn.SetWriteDeadline(time.Now().Add(deadline)); err != nil {
		return nil, newZKError(ETIMEDOUT, MsgTimeoutOnWriting, b.addr, cmd, err)
	}
	if _, err := conn.Write(pkt); err != nil {
		return nil, newZKError(ETIMEDOUT, MsgTimeoutOnWriting, b.addr, cmd, err)
	}
	b.metrics.commandIssued(cmd)

	select {
	case f := <-b.replyCh:
		b.metrics.bytesReceived(len(f.Payload))
		return &f, nil
	case <-b.done:
		return nil, errSocketDisconnected(b.addr, cmd)
	case <-time.After(deadline):
		return nil, errTimeout(MsgTimeoutAfterRequestingData, b.addr, cmd, nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendChunkRequest fires a DATA_RDY for [start, start+size) and does not
// wait for a reply — errors are logged, not raised (spec.md §4.3).
func (b *baseTransport) SendChunkRequest(conn net.Conn, start, size uint32) error {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body[0:4], start)
	binary.LittleEndian.PutUint32(body[4:8], size)

	session, reply := b.nextFrame(cmdDataRdy)
	pkt := b.build(cmdDataRdy, session, reply, body)

	if err := conn.SetWriteDeadline(time.Now().Add(b.timeout)); err != nil {
		b.log.WithError(err).Warn("sendChunkRequest: set write deadline")
		return nil
	}
	if _, err := conn.Write(pkt); err != nil {
		b.log.WithError(err).Warn("sendChunkRequest: write")
	}
	return nil
}

// FreeData releases the device's send-side buffer, required before and
// after every bulk read.
func (b *baseTransport) FreeData(ctx context.Context, conn net.Conn) error {
	_, err := b.ExecuteCmd(ctx, conn, cmdFreeData, nil)
	return err
}

// ReadWithBuffer issues DATA_WRRQ and either returns an inline reply or
// drives the chunked-reassembly handshake described in spec.md §4.3.1.
func (b *baseTransport) ReadWithBuffer(ctx context.Context, conn net.Conn, reqBody []byte, progress ProgressFunc, inlineMode int) (*BulkResult, error) {
	f, err := b.ExecuteCmd(ctx, conn, cmdDataWRRQ, reqBody)
	if err != nil {
		return nil, err
	}

	switch f.Cmd {
	case cmdData, cmdAckData:
		return &BulkResult{Data: f.Payload, Mode: inlineMode}, nil

	case cmdAckOK, cmdPrepareData:
		if len(f.Payload) < 5 {
			return nil, fmt.Errorf("%s response too short: %d bytes", commandName(f.Cmd), len(f.Payload))
		}
		total := int(binary.LittleEndian.Uint32(f.Payload[1:5]))
		return b.reassemble(ctx, conn, total, progress)

	default:
		return nil, errUnhandledCmd(b.addr, f.Cmd)
	}
}

// reassemble drives the DATA_RDY chunk loop and accumulates inbound DATA
// frames until total bytes are collected or the chunk-idle timer fires.
//
// The loop runs i = 0..=numberChunks inclusive (spec.md §9 open question):
// when remain == 0 the final iteration issues a zero-sized DATA_RDY. The
// device tolerates this and we preserve it rather than "fix" it.
func (b *baseTransport) reassemble(ctx context.Context, conn net.Conn, total int, progress ProgressFunc) (*BulkResult, error) {
	if total <= 0 {
		return &BulkResult{}, nil
	}

	numberChunks := total / maxChunk
	remain := total % maxChunk

	assembled := make([]byte, 0, total)
	idle := time.NewTimer(b.chunkIdle)
	defer idle.Stop()

	go func() {
		for i := 0; i <= numberChunks; i++ {
			size := maxChunk
			if i == numberChunks {
				size = remain
			}
			if err := b.SendChunkRequest(conn, uint32(i*maxChunk), uint32(size)); err != nil {
				b.log.WithError(err).Warn("chunk request failed")
			}
		}
	}()

	for len(assembled) < total {
		select {
		case f := <-b.replyCh:
			if f.Cmd != cmdData && f.Cmd != cmdAckOK {
				continue
			}
			if len(f.Payload) > 0 {
				assembled = append(assembled, f.Payload...)
				b.metrics.bytesReceived(len(f.Payload))
				if progress != nil {
					progress(len(assembled), total)
				}
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(b.chunkIdle)

		case <-b.done:
			err := errSocketDisconnected(b.addr, cmdDataWRRQ)
			return &BulkResult{Data: assembled, Err: err}, err

		case <-idle.C:
			b.metrics.chunkTimeout()
			remaining := numberChunks + 1 - len(assembled)/maxChunk
			err := errTimeout(
				fmt.Sprintf("%s (packets remaining: %d)", MsgTimeoutReceivingPacket, remaining),
				b.addr, cmdDataWRRQ, nil)
			return &BulkResult{Data: assembled, Err: err}, err

		case <-ctx.Done():
			return &BulkResult{Data: assembled, Err: ctx.Err()}, ctx.Err()
		}
	}

	return &BulkResult{Data: assembled}, nil
}
