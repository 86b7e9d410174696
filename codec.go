package zkteco

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"time"
)

// tcpMagic is the 4-byte TCP framing prefix that precedes every inner
// UDP-shaped frame on the TCP transport.
var tcpMagic = [4]byte{0x50, 0x50, 0x82, 0x7D}

const (
	udpHeaderSize = 8
	tcpPrefixSize = 8
)

// frame is a decoded UDP-shaped header plus its trailing payload. Both
// transports normalize inbound bytes down to this shape before anything
// else touches them.
type frame struct {
	Cmd     uint16
	Cksum   uint16
	Session uint16
	Reply   uint16
	Payload []byte
}

// buildUDPFrame encodes cmd/session/reply/data into an 8-byte-header frame
// with a correct checksum. It does not mutate the caller's reply-id; the
// caller is the sole owner of that counter (see baseTransport).
func buildUDPFrame(cmd, session, reply uint16, data []byte) []byte {
	buf := make([]byte, udpHeaderSize+len(data))
	binary.LittleEndian.PutUint16(buf[0:2], cmd)
	binary.LittleEndian.PutUint16(buf[2:4], 0)
	binary.LittleEndian.PutUint16(buf[4:6], session)
	binary.LittleEndian.PutUint16(buf[6:8], reply)
	copy(buf[8:], data)

	cksum := checksum16(buf)
	binary.LittleEndian.PutUint16(buf[2:4], cksum)
	return buf
}

// buildTCPFrame wraps buildUDPFrame's output with the `50 50 82 7D <len>`
// prefix, len being the length of the inner frame.
func buildTCPFrame(cmd, session, reply uint16, data []byte) []byte {
	inner := buildUDPFrame(cmd, session, reply, data)
	out := make([]byte, tcpPrefixSize+len(inner))
	copy(out[0:4], tcpMagic[:])
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(inner)))
	copy(out[8:], inner)
	return out
}

// stripTCPPrefix returns the inner UDP-shaped frame, or b unchanged if it
// is too short or doesn't start with the TCP magic.
func stripTCPPrefix(b []byte) []byte {
	if len(b) < tcpPrefixSize {
		return b
	}
	if b[0] != tcpMagic[0] || b[1] != tcpMagic[1] || b[2] != tcpMagic[2] || b[3] != tcpMagic[3] {
		return b
	}
	return b[8:]
}

// checksum16 computes the ZK 16-bit checksum over buf, with buf[2:4]
// (the checksum field) expected to be zero. It accumulates little-endian
// 16-bit words, folding modulo 65535 after every add, treats a trailing
// odd byte as an unsigned byte, then returns 65535 - sum - 1 (mod 65535).
func checksum16(buf []byte) uint16 {
	const ushrtMax = 65535
	var sum int64

	n := len(buf)
	for i := 0; i+1 < n; i += 2 {
		sum += int64(binary.LittleEndian.Uint16(buf[i : i+2]))
		sum %= ushrtMax
	}
	if n%2 != 0 {
		sum += int64(buf[n-1])
		sum %= ushrtMax
	}

	result := ushrtMax - sum - 1
	result %= ushrtMax
	if result < 0 {
		result += ushrtMax
	}
	return uint16(result)
}

// parseUDPFrame decodes an 8-byte-header frame (its payload may be empty).
func parseUDPFrame(b []byte) (frame, bool) {
	if len(b) < udpHeaderSize {
		return frame{}, false
	}
	f := frame{
		Cmd:     binary.LittleEndian.Uint16(b[0:2]),
		Cksum:   binary.LittleEndian.Uint16(b[2:4]),
		Session: binary.LittleEndian.Uint16(b[4:6]),
		Reply:   binary.LittleEndian.Uint16(b[6:8]),
	}
	if len(b) > udpHeaderSize {
		f.Payload = append([]byte(nil), b[udpHeaderSize:]...)
	}
	return f, true
}

// parseTCPFrame strips the TCP prefix and decodes the inner header, but
// only once the full frame — prefix plus the declared inner-frame length
// — has actually arrived. payloadSize is the length declared in the TCP
// prefix (the inner frame's total size, header included); consumed is how
// many bytes of b this frame occupies, for the caller to slice off.
func parseTCPFrame(b []byte) (f frame, payloadSize int, consumed int, ok bool) {
	if len(b) < tcpPrefixSize+udpHeaderSize {
		return frame{}, 0, 0, false
	}
	if b[0] != tcpMagic[0] || b[1] != tcpMagic[1] || b[2] != tcpMagic[2] || b[3] != tcpMagic[3] {
		return frame{}, 0, 0, false
	}
	payloadSize = int(binary.LittleEndian.Uint32(b[4:8]))
	total := tcpPrefixSize + payloadSize
	if len(b) < total {
		return frame{}, payloadSize, 0, false
	}
	f, ok = parseUDPFrame(b[tcpPrefixSize:total])
	return f, payloadSize, total, ok
}

// isEventFrameTCP reports whether f is an unsolicited real-time event
// rather than a reply to a pending command. The device overloads the
// inner header's session-id slot (byte offset 4) as an event-kind word on
// REG_EVENT frames; a frame only counts as "the" event frame the command
// state machine must steer around when that kind is EF_ATTLOG, matching
// spec.md §4.3.2 precisely (subscribeRealTime only ever registers attlog).
func isEventFrameTCP(f frame) bool {
	return f.Cmd == cmdRegEvent && int(f.Session) == EFAttlog
}

// isEventFrameUDP reports the UDP analogue: commandId alone identifies an
// event frame on that transport.
func isEventFrameUDP(f frame) bool {
	return f.Cmd == cmdRegEvent
}

// --- record layouts (spec.md §3) -------------------------------------

// User is a decoded user record, from either the 72-byte (TCP) or 28-byte
// (UDP) on-wire layout.
type User struct {
	UID      int
	Role     int
	Password string
	Name     string
	CardNo   int
	UserID   string
}

const (
	userRecordSizeTCP = 72
	userRecordSizeUDP = 28
)

// decodeUser72 decodes the 72-byte user record layout.
func decodeUser72(rec []byte) *User {
	if len(rec) < userRecordSizeTCP {
		return nil
	}
	return &User{
		UID:      int(binary.LittleEndian.Uint16(rec[0:2])),
		Role:     int(rec[2]),
		Password: trimNUL(rec[3:11]),
		Name:     trimNUL(rec[11:35]),
		CardNo:   int(binary.LittleEndian.Uint32(rec[35:39])),
		UserID:   trimNUL(rec[48:57]),
	}
}

// decodeUser28 decodes the 28-byte user record layout.
func decodeUser28(rec []byte) *User {
	if len(rec) < userRecordSizeUDP {
		return nil
	}
	return &User{
		UID:    int(binary.LittleEndian.Uint16(rec[0:2])),
		Role:   int(rec[2]),
		Name:   trimNUL(rec[8:16]),
		UserID: strconv.Itoa(int(binary.LittleEndian.Uint32(rec[24:28]))),
	}
}

// Attendance is a decoded attendance record, from either the 40-byte (TCP)
// or 16-byte (UDP) on-wire layout.
type Attendance struct {
	UID        int
	UserID     string
	State      int
	Type       int
	RecordTime time.Time
	IP         string
}

const (
	attRecordSizeTCP = 40
	attRecordSizeUDP = 16
)

// decodeAttendance40 decodes the 40-byte attendance record layout.
func decodeAttendance40(rec []byte) *Attendance {
	if len(rec) < attRecordSizeTCP {
		return nil
	}
	uid := int(binary.LittleEndian.Uint16(rec[0:2]))
	if uid == 0 {
		return nil
	}
	userID := trimNUL(rec[2:11])
	// State and type aren't in spec.md's literal 40-byte layout (it only
	// names userSn/deviceUserId/recordTime); supplemented from the
	// teacher's richer record, shifted by the same +2 offset its
	// deviceUserId and recordTime fields carry relative to spec.md's.
	var state, typ int
	if len(rec) > 26 {
		state = int(rec[26])
	}
	if len(rec) > 31 {
		typ = int(rec[31])
	}
	recordTime := DecodeCompactTimestamp(binary.LittleEndian.Uint32(rec[27:31]))
	return &Attendance{
		UID:        uid,
		UserID:     userID,
		State:      state,
		Type:       typ,
		RecordTime: recordTime,
	}
}

// decodeAttendance16 decodes the 16-byte attendance record layout.
func decodeAttendance16(rec []byte) *Attendance {
	if len(rec) < attRecordSizeUDP {
		return nil
	}
	uid := int(binary.LittleEndian.Uint16(rec[0:2]))
	if uid == 0 {
		return nil
	}
	return &Attendance{
		UID:        uid,
		RecordTime: DecodeCompactTimestamp(binary.LittleEndian.Uint32(rec[4:8])),
	}
}

// RealTimeEvent is a decoded unsolicited event, from either the 52-byte
// (TCP) or 18-byte (UDP) on-wire layout for EF_ATTLOG, or from the
// looser per-kind layouts the device uses for the other EF_* flags
// (supplemented from the teacher's richer event decoder — spec.md §3
// only specifies the attendance-event layout in full).
type RealTimeEvent struct {
	EventType   int
	EventName   string
	UserID      string
	Time        time.Time
	State       int
	FingerIndex int
	ButtonID    int
	DoorID      int
	UnlockType  int
	AlarmType   int
	RawData     []byte
}

// decodeRealTimeEvent52 decodes the TCP real-time-event layout (after the
// TCP prefix and 8-byte header have already been stripped).
func decodeRealTimeEvent52(b []byte, eventType int) RealTimeEvent {
	ev := RealTimeEvent{EventType: eventType, EventName: EventName(eventType)}
	if eventType != EFAttlog {
		return decodeEventExtras(b, ev)
	}
	if len(b) < 32 {
		ev.RawData = b
		return ev
	}
	ev.UserID = trimNUL(b[0:9])
	if len(b) > 24 {
		ev.State = int(b[24])
	}
	if len(b) >= 32 {
		var sextet [6]byte
		copy(sextet[:], b[26:32])
		ev.Time = DecodeSextetTimestamp(sextet)
	}
	return ev
}

// decodeRealTimeEvent18 decodes the UDP real-time-event layout.
func decodeRealTimeEvent18(b []byte, eventType int) RealTimeEvent {
	ev := RealTimeEvent{EventType: eventType, EventName: EventName(eventType)}
	if eventType != EFAttlog {
		return decodeEventExtras(b, ev)
	}
	if len(b) < 18 {
		ev.RawData = b
		return ev
	}
	ev.UserID = strconv.Itoa(int(b[8]))
	var sextet [6]byte
	copy(sextet[:], b[12:18])
	ev.Time = DecodeSextetTimestamp(sextet)
	return ev
}

// decodeEventExtras fills in the per-kind fields for the non-attendance
// EF_* events (enroll, finger, button, unlock, alarm), mirroring the
// teacher's decodeRealTimeEvent switch.
func decodeEventExtras(recvData []byte, ev RealTimeEvent) RealTimeEvent {
	switch ev.EventType {
	case EFEnrollUser, EFVerify:
		if len(recvData) >= 9 {
			ev.UserID = trimNUL(recvData[0:9])
		}
	case EFFinger, EFEnrollFinger, EFFingerFeat:
		if len(recvData) >= 10 {
			ev.UserID = trimNUL(recvData[0:9])
			ev.FingerIndex = int(recvData[9])
		}
	case EFButton:
		if len(recvData) >= 2 {
			ev.ButtonID = int(binary.LittleEndian.Uint16(recvData[0:2]))
		}
	case EFUnlock:
		if len(recvData) >= 2 {
			ev.DoorID = int(recvData[0])
			ev.UnlockType = int(recvData[1])
		}
	case EFAlarm:
		if len(recvData) >= 2 {
			ev.AlarmType = int(binary.LittleEndian.Uint16(recvData[0:2]))
		}
	default:
		ev.RawData = recvData
	}
	return ev
}

// --- packed timestamps (spec.md §3) -----------------------------------

// DecodeCompactTimestamp decodes the device's packed 32-bit timestamp.
//
// Month is zero-based in the intermediate arithmetic and day uses
// `(v%31)+1` — both preserved bit-for-bit per spec.md §9's open question:
// this is wrong for months with fewer than 31 days, but it's what the
// device actually does.
func DecodeCompactTimestamp(v uint32) time.Time {
	x := int(v)
	second := x % 60
	x /= 60
	minute := x % 60
	x /= 60
	hour := x % 24
	x /= 24
	day := x%31 + 1
	x /= 31
	month := x % 12
	x /= 12
	year := x + 2000
	return time.Date(year, time.Month(month+1), day, hour, minute, second, 0, time.Local)
}

// EncodeCompactTimestamp is the inverse of DecodeCompactTimestamp, used by
// SetTime.
func EncodeCompactTimestamp(t time.Time) uint32 {
	year := t.Year() - 2000
	month := int(t.Month()) - 1
	day := t.Day() - 1
	return uint32(((year*12+month)*31+day)*24*60*60 +
		(t.Hour()*60+t.Minute())*60 + t.Second())
}

// DecodeSextetTimestamp decodes the 6-byte packed timestamp used by
// real-time event records.
func DecodeSextetTimestamp(b [6]byte) time.Time {
	year := 2000 + int(b[0])
	month := int(b[1])
	day := int(b[2])
	hour := int(b[3])
	minute := int(b[4])
	second := int(b[5])
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
}

// trimNUL converts a fixed-width ASCII field to a Go string, trimming at
// the first NUL terminator (and any trailing NULs beyond it).
func trimNUL(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), "\x00")
}
