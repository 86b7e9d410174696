package zkteco

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTCPDevice starts a one-shot TCP listener and runs handle against the
// first accepted connection, for exercising TcpTransport end to end.
func fakeTCPDevice(t *testing.T, handle func(conn net.Conn)) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(p)
	require.NoError(t, err)
	return h, portNum
}

func readOneTCPFrame(t *testing.T, conn net.Conn, pending *[]byte) frame {
	t.Helper()
	buf := make([]byte, 4096)
	for {
		if f, _, consumed, ok := parseTCPFrame(*pending); ok {
			*pending = (*pending)[consumed:]
			return f
		}
		n, err := conn.Read(buf)
		require.NoError(t, err)
		*pending = append(*pending, buf[:n]...)
	}
}

func TestTcpTransportConnectRoundTrip(t *testing.T) {
	host, port := fakeTCPDevice(t, func(conn net.Conn) {
		var pending []byte
		f := readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdConnect), f.Cmd)

		body := make([]byte, 4)
		conn.Write(buildTCPFrame(cmdAckOK, 0x55AA, f.Reply, body))

		buf := make([]byte, 1024)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	})

	log := logrus.NewEntry(logrus.New())
	tr := NewTcpTransport(host, port, time.Second, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Connect(ctx))

	f, err := tr.ExecuteCmd(ctx, cmdConnect, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x55AA), f.Session)
	assert.Equal(t, uint16(0x55AA), tr.SessionID())
}

func TestTcpTransportChunkedReassembly(t *testing.T) {
	total := 1000
	payload := make([]byte, total)
	for i := range payload {
		payload[i] = byte(i)
	}

	host, port := fakeTCPDevice(t, func(conn net.Conn) {
		var pending []byte

		// CONNECT
		f := readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdConnect), f.Cmd)
		conn.Write(buildTCPFrame(cmdAckOK, 0x1, f.Reply, make([]byte, 4)))

		// DATA_WRRQ -> announce total via ACK_OK
		f = readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdDataWRRQ), f.Cmd)
		announce := make([]byte, 5)
		binary.LittleEndian.PutUint32(announce[1:5], uint32(total))
		conn.Write(buildTCPFrame(cmdAckOK, 0x1, f.Reply, announce))

		// single DATA_RDY request covers the whole payload (total < maxChunk)
		f = readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdDataRdy), f.Cmd)
		conn.Write(buildTCPFrame(cmdData, 0x1, f.Reply, payload))

		buf := make([]byte, 1)
		conn.Read(buf)
	})

	log := logrus.NewEntry(logrus.New())
	tr := NewTcpTransport(host, port, 2*time.Second, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, tr.Connect(ctx))
	_, err := tr.ExecuteCmd(ctx, cmdConnect, nil)
	require.NoError(t, err)

	var lastReceived, lastTotal int
	res, err := tr.ReadWithBuffer(ctx, []byte{fctUser}, func(received, total int) {
		lastReceived, lastTotal = received, total
	})
	require.NoError(t, err)
	assert.Equal(t, payload, res.Data)
	assert.Equal(t, total, lastReceived)
	assert.Equal(t, total, lastTotal)
}

func TestTcpTransportEventDemuxDoesNotPolluteCommandReply(t *testing.T) {
	host, port := fakeTCPDevice(t, func(conn net.Conn) {
		var pending []byte

		f := readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdConnect), f.Cmd)
		conn.Write(buildTCPFrame(cmdAckOK, 0x1, f.Reply, make([]byte, 4)))

		f = readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdRegEvent), f.Cmd)
		conn.Write(buildTCPFrame(cmdAckOK, 0x1, f.Reply, nil))

		// push an attendance event frame unsolicited
		evBody := make([]byte, 32)
		copy(evBody, "u1")
		conn.Write(buildTCPFrame(cmdRegEvent, uint16(EFAttlog), 0, evBody))

		// then answer the next real command normally
		f = readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdGetTime), f.Cmd)
		conn.Write(buildTCPFrame(cmdAckOK, 0x1, f.Reply, make([]byte, 4)))

		buf := make([]byte, 1)
		conn.Read(buf)
	})

	log := logrus.NewEntry(logrus.New())
	tr := NewTcpTransport(host, port, 2*time.Second, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, tr.Connect(ctx))
	_, err := tr.ExecuteCmd(ctx, cmdConnect, nil)
	require.NoError(t, err)

	events := make(chan RealTimeEvent, 1)
	require.NoError(t, tr.SubscribeRealTime(ctx, func(ev RealTimeEvent) { events <- ev }))

	select {
	case ev := <-events:
		assert.Equal(t, EFAttlog, ev.EventType)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive real-time event")
	}

	f, err := tr.ExecuteCmd(ctx, cmdGetTime, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(cmdAckOK), f.Cmd)
}
