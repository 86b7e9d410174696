package zkteco

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseUDPFrameRoundTrip(t *testing.T) {
	pkt := buildUDPFrame(cmdConnect, 0x1234, 7, []byte("hello"))
	f, ok := parseUDPFrame(pkt)
	require.True(t, ok)
	assert.Equal(t, uint16(cmdConnect), f.Cmd)
	assert.Equal(t, uint16(0x1234), f.Session)
	assert.Equal(t, uint16(7), f.Reply)
	assert.Equal(t, []byte("hello"), f.Payload)
}

func TestChecksum16DetectsCorruption(t *testing.T) {
	pkt := buildUDPFrame(cmdGetTime, 1, 1, nil)
	good := checksum16(pkt)
	pkt[8%len(pkt)] ^= 0xFF
	bad := checksum16(pkt)
	assert.NotEqual(t, good, bad)
}

// TestChecksum16KnownVectors pins checksum16 against the teacher's
// reference algorithm on inputs that distinguish folding modulo 65535
// from folding modulo 65536 — a self-consistency check like
// TestChecksum16DetectsCorruption cannot catch an off-by-one base.
func TestChecksum16KnownVectors(t *testing.T) {
	twoMaxWords := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	assert.Equal(t, uint16(65534), checksum16(twoMaxWords))

	emptyConnectHeader := []byte{0xE8, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	assert.Equal(t, uint16(64534), checksum16(emptyConnectHeader))
}

func TestParseTCPFrameWaitsForFullFrame(t *testing.T) {
	full := buildTCPFrame(cmdConnect, 0, 0, []byte("abc"))

	_, _, _, ok := parseTCPFrame(full[:len(full)-1])
	assert.False(t, ok, "must not parse a truncated frame")

	f, _, consumed, ok := parseTCPFrame(full)
	require.True(t, ok)
	assert.Equal(t, len(full), consumed)
	assert.Equal(t, []byte("abc"), f.Payload)
}

func TestParseTCPFrameDoesNotSwallowNextFrame(t *testing.T) {
	first := buildTCPFrame(cmdGetTime, 1, 1, []byte("AAAA"))
	second := buildTCPFrame(cmdDevice, 1, 2, []byte("BBBB"))
	stream := append(append([]byte{}, first...), second...)

	f1, _, consumed1, ok := parseTCPFrame(stream)
	require.True(t, ok)
	assert.Equal(t, []byte("AAAA"), f1.Payload)

	rest := stream[consumed1:]
	f2, _, consumed2, ok := parseTCPFrame(rest)
	require.True(t, ok)
	assert.Equal(t, []byte("BBBB"), f2.Payload)
	assert.Equal(t, len(rest), consumed2)
}

func TestIsEventFrameTCPRequiresAttlogKind(t *testing.T) {
	assert.True(t, isEventFrameTCP(frame{Cmd: cmdRegEvent, Session: EFAttlog}))
	assert.False(t, isEventFrameTCP(frame{Cmd: cmdRegEvent, Session: EFButton}))
	assert.False(t, isEventFrameTCP(frame{Cmd: cmdGetTime, Session: EFAttlog}))
}

func TestDecodeCompactTimestampPreservesDayBug(t *testing.T) {
	// v = 31 days' worth of seconds encodes day index 31, which decodes to
	// day 31%31+1 = 1 (of the next month), not a real 32nd day.
	got := DecodeCompactTimestamp(31 * 24 * 60 * 60)
	assert.Equal(t, 1, got.Day())
}

func TestEncodeDecodeCompactTimestampRoundTripsWithinDayBugDomain(t *testing.T) {
	ref := time.Date(2024, time.March, 1, 10, 30, 0, 0, time.Local)
	encoded := EncodeCompactTimestamp(ref)
	decoded := DecodeCompactTimestamp(encoded)
	assert.Equal(t, ref.Hour(), decoded.Hour())
	assert.Equal(t, ref.Minute(), decoded.Minute())
}

func TestDecodeSextetTimestamp(t *testing.T) {
	sextet := [6]byte{24, 3, 15, 9, 5, 1}
	got := DecodeSextetTimestamp(sextet)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, 9, got.Hour())
}

func TestDecodeUser72(t *testing.T) {
	rec := make([]byte, userRecordSizeTCP)
	binary.LittleEndian.PutUint16(rec[0:2], 42)
	rec[2] = LevelAdmin
	copy(rec[3:11], "secret")
	copy(rec[11:35], "Jane Doe")
	binary.LittleEndian.PutUint32(rec[35:39], 998877)
	copy(rec[48:57], "jdoe")

	u := decodeUser72(rec)
	require.NotNil(t, u)
	assert.Equal(t, 42, u.UID)
	assert.Equal(t, LevelAdmin, u.Role)
	assert.Equal(t, "secret", u.Password)
	assert.Equal(t, "Jane Doe", u.Name)
	assert.Equal(t, 998877, u.CardNo)
	assert.Equal(t, "jdoe", u.UserID)
}

func TestDecodeAttendance40SkipsZeroUID(t *testing.T) {
	rec := make([]byte, attRecordSizeTCP)
	assert.Nil(t, decodeAttendance40(rec))
}

func TestDecodeAttendance40(t *testing.T) {
	rec := make([]byte, attRecordSizeTCP)
	binary.LittleEndian.PutUint16(rec[0:2], 5)
	copy(rec[2:11], "5")
	rec[26] = StateFingerprint
	rec[31] = TypeCheckIn
	binary.LittleEndian.PutUint32(rec[27:31], 0) // 2000-01-01 00:00:00

	a := decodeAttendance40(rec)
	require.NotNil(t, a)
	assert.Equal(t, 5, a.UID)
	assert.Equal(t, StateFingerprint, a.State)
	assert.Equal(t, TypeCheckIn, a.Type)
}
