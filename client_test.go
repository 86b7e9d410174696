package zkteco

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreateSocketFallsBackToUDP exercises spec.md §4.4's TCP-first,
// UDP-fallback dance: nothing listens on the chosen TCP port, so the
// connection is refused and CreateSocket must retry the same port over
// UDP, where a fake device answers CONNECT.
func TestCreateSocketFallsBackToUDP(t *testing.T) {
	host := "127.0.0.1"

	// Grab a port nothing is listening on by binding then releasing it.
	probe, err := net.Listen("tcp", host+":0")
	require.NoError(t, err)
	port := probe.Addr().(*net.TCPAddr).Port
	require.NoError(t, probe.Close())

	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(host), Port: port})
	require.NoError(t, err)
	defer udpConn.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, raddr, err := udpConn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			f, ok := parseUDPFrame(buf[:n])
			if !ok || f.Cmd != cmdConnect {
				continue
			}
			reply := make([]byte, 4)
			binary.LittleEndian.PutUint16(reply[2:4], 0x9)
			udpConn.WriteToUDP(buildUDPFrame(cmdAckOK, 0x9, f.Reply, reply), raddr)
		}
	}()

	client := NewClient(host, port, time.Second, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, client.CreateSocket(ctx, nil, nil))

	assert.Equal(t, ConnUDP, client.ConnectionType())
	assert.Equal(t, uint16(0x9), client.transport.SessionID())
}

func TestIsConnRefusedAndAddrInUse(t *testing.T) {
	zerr := errConnRefused("1.2.3.4", cmdConnect, nil)
	assert.True(t, isConnRefused(zerr))
	assert.False(t, isConnRefused(nil))

	zerr2 := newZKError(EADDRINUSE, "address already in use", "1.2.3.4", 0, nil)
	assert.True(t, isAddrInUse(zerr2))
}
