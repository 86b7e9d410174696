package zkteco

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetInfoDecodesCounters guards the header-offset translation GetInfo
// depends on: spec.md's userCounts@24/logCounts@40/logCapacity@72 are
// expressed against executeCmd's header-plus-body buffer, so against this
// repo's header-stripped frame.Payload they land at 16/32/64.
func TestGetInfoDecodesCounters(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var pending []byte

		f := readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdConnect), f.Cmd)
		conn.Write(buildTCPFrame(cmdAckOK, 0x1, f.Reply, make([]byte, 4)))

		f = readOneTCPFrame(t, conn, &pending)
		require.Equal(t, uint16(cmdGetFreeSizes), f.Cmd)
		body := make([]byte, 68)
		binary.LittleEndian.PutUint32(body[16:20], 42)    // userCounts
		binary.LittleEndian.PutUint32(body[32:36], 1337)  // logCounts
		binary.LittleEndian.PutUint32(body[64:68], 99999) // logCapacity
		conn.Write(buildTCPFrame(cmdAckOK, 0x1, f.Reply, body))

		buf := make([]byte, 1)
		conn.Read(buf)
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)

	client := NewClient(h, port, 2*time.Second, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, client.CreateSocket(ctx, nil, nil))

	info, err := client.GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, info.UserCounts)
	assert.Equal(t, 1337, info.LogCounts)
	assert.Equal(t, 99999, info.LogCapacity)
}
