package zkteco

// Opcodes, copied bit-for-bit from the ZK protocol (and from the PHP/Go
// implementations it was ported from). Do not renumber these even where
// the naming below diverges from upstream — devices in the field only
// understand these exact values on the wire.
const (
	cmdConnect = 1000
	cmdExit    = 1001

	cmdEnableDevice  = 1002
	cmdDisableDevice = 1003
	cmdRestart       = 1004
	cmdPoweroff      = 1005
	cmdSleep         = 1006
	cmdResume        = 1007
	cmdTestVoice     = 1017
	cmdChangeSpeed   = 1101

	cmdWriteLCD = 66
	cmdClearLCD = 67

	cmdAckOK     = 2000
	cmdAckError  = 2001
	cmdAckData   = 2002
	cmdAckUnauth = 2005
	cmdAckAuth   = 1102

	cmdPrepareData = 1500
	cmdData        = 1501
	cmdFreeData    = 1502

	cmdUserTempRRQ    = 9
	cmdUserTempWRQ    = 10
	cmdDevice         = 11
	cmdOptionsWRQ     = 12
	cmdAttLogRRQ      = 13
	cmdClearData      = 14
	cmdClearAttLog    = 15
	cmdDeleteUser     = 18
	cmdDeleteUserTemp = 19
	cmdClearAdmin     = 20
	cmdGetFreeSizes   = 50

	cmdGetTime = 201
	cmdSetTime = 202

	cmdRegEvent = 500
	cmdVersion  = 1100
	cmdSetUser  = 8

	// cmdDataWRRQ kicks off a bulk transfer: the device replies either with
	// the data inline (cmdData/cmdAckData) or with cmdAckOK/cmdPrepareData
	// announcing the total size of a chunked transfer to follow.
	cmdDataWRRQ = cmdUserTempRRQ
	cmdDataRdy  = cmdData
)

// Function-type selectors for cmdUserTempRRQ.
const (
	fctAttlog    = 1
	fctFingerTmp = 2
	fctOplog     = 4
	fctUser      = 5
	fctSMS       = 6
	fctUdata     = 7
	fctWorkcode  = 8
)

// User roles.
const (
	LevelUser  = 0
	LevelAdmin = 14
)

// Attendance verification states.
const (
	StatePassword    = 0
	StateFingerprint = 1
	StateCard        = 2
)

// Attendance punch types.
const (
	TypeCheckIn     = 0
	TypeCheckOut    = 1
	TypeBreakIn     = 2
	TypeBreakOut    = 3
	TypeOvertimeIn  = 4
	TypeOvertimeOut = 5
)

// Real-time event flags, OR-able into the cmdRegEvent subscription mask.
const (
	EFAttlog       = 1
	EFFinger       = 2
	EFEnrollUser   = 4
	EFEnrollFinger = 8
	EFButton       = 16
	EFUnlock       = 32
	EFVerify       = 128
	EFFingerFeat   = 256
	EFAlarm        = 512
)

// canonical request bodies named in spec.md §4.2.
var (
	reqGetUsers          = []byte{fctUser}
	reqGetAttendanceLogs = []byte{fctAttlog}
	reqDisableDevice     = []byte{0x00, 0x00}
	reqGetRealTimeEvent  = []byte{0x01, 0x00, 0x00, 0x00}
	reqEnableRealTimeUDP = []byte{0x01, 0x00, 0x00, 0x00}
)

// maxChunk bounds a single DATA_RDY request during chunked reassembly.
const maxChunk = 65535

// StateName returns a human-readable name for an attendance verification state.
func StateName(state int) string {
	switch state {
	case StatePassword:
		return "Password"
	case StateFingerprint:
		return "Fingerprint"
	case StateCard:
		return "Card"
	default:
		return "Unknown"
	}
}

// TypeName returns a human-readable name for an attendance punch type.
func TypeName(typ int) string {
	switch typ {
	case TypeCheckIn:
		return "Check-In"
	case TypeCheckOut:
		return "Check-Out"
	case TypeBreakIn:
		return "Break-In"
	case TypeBreakOut:
		return "Break-Out"
	case TypeOvertimeIn:
		return "OT-In"
	case TypeOvertimeOut:
		return "OT-Out"
	default:
		return "Unknown"
	}
}

// EventName returns a human-readable name for a real-time event flag.
func EventName(eventType int) string {
	switch eventType {
	case EFAttlog:
		return "attendance"
	case EFFinger:
		return "finger"
	case EFEnrollUser:
		return "enroll_user"
	case EFEnrollFinger:
		return "enroll_finger"
	case EFButton:
		return "button"
	case EFUnlock:
		return "unlock"
	case EFVerify:
		return "verify"
	case EFFingerFeat:
		return "finger_feature"
	case EFAlarm:
		return "alarm"
	default:
		return "unknown"
	}
}

// commandName resolves an opcode to a name for UNHANDLED_CMD errors.
func commandName(cmd uint16) string {
	switch cmd {
	case cmdConnect:
		return "CONNECT"
	case cmdExit:
		return "EXIT"
	case cmdAckOK:
		return "ACK_OK"
	case cmdAckError:
		return "ACK_ERROR"
	case cmdAckData:
		return "ACK_DATA"
	case cmdAckUnauth:
		return "ACK_UNAUTH"
	case cmdPrepareData:
		return "PREPARE_DATA"
	case cmdData:
		return "DATA"
	case cmdFreeData:
		return "FREE_DATA"
	case cmdRegEvent:
		return "REG_EVENT"
	case cmdUserTempRRQ:
		return "USER_TEMP_RRQ"
	case cmdAttLogRRQ:
		return "ATT_LOG_RRQ"
	case cmdGetFreeSizes:
		return "GET_FREE_SIZES"
	case cmdDevice:
		return "DEVICE"
	case cmdOptionsWRQ:
		return "OPTIONS_WRQ"
	case cmdGetTime:
		return "GET_TIME"
	case cmdSetTime:
		return "SET_TIME"
	case cmdSetUser:
		return "SET_USER"
	default:
		return "UNKNOWN"
	}
}
