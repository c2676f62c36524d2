package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame constants
const (
	Magic0 = 0xAA
	Magic1 = 0x55

	RequestFrameSize  = 8
	ResponseFrameSize = 20
)

// magic is the two-byte header shared by requests and responses
const magic = uint16(Magic0)<<8 | Magic1

// RequestFrame is an encoded command ready to be written to the characteristic
//
// Layout:
//
//	[0-1]  0xAA 0x55     Magic
//	[2]    passkey hi    First two decimal digits of the passkey
//	[3]    passkey lo    Last two decimal digits of the passkey
//	[4]    command       CommandCode
//	[5]    data          Command data byte
//	[6]    0x00          Reserved
//	[7]    checksum      sum(bytes[2:7]) mod 256
type RequestFrame [RequestFrameSize]byte

// Bytes returns the frame as a slice
func (f RequestFrame) Bytes() []byte {
	return f[:]
}

// Passkey returns the passkey digit pairs embedded in the frame
func (f RequestFrame) Passkey() Passkey {
	return Passkey{f[2], f[3]}
}

// Code returns the command code
func (f RequestFrame) Code() CommandCode {
	return CommandCode(f[4])
}

// Data returns the command data byte
func (f RequestFrame) Data() byte {
	return f[5]
}

// String returns a debug representation of the frame
func (f RequestFrame) String() string {
	return fmt.Sprintf("Request{cmd=%s, data=%d, checksum=0x%02x}", f.Code(), f.Data(), f[7])
}

// Checksum sums data modulo 256
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Encode builds the request frame for cmd. The passkey is baked into every
// frame; the checksum is always recomputed here.
func Encode(passkey Passkey, cmd Command) RequestFrame {
	var f RequestFrame
	f[0] = Magic0
	f[1] = Magic1
	f[2] = passkey[0]
	f[3] = passkey[1]
	f[4] = byte(cmd.Code())
	f[5] = DataByte(cmd)
	f[6] = 0x00
	f[7] = Checksum(f[2:7])
	return f
}

// DecodeRequest parses an 8-byte request frame. It is the device-side
// counterpart of Encode and is used by the simulated heater.
func DecodeRequest(data []byte) (RequestFrame, error) {
	var f RequestFrame
	if len(data) != RequestFrameSize {
		return f, newFrameError(FrameWrongLength, data, RequestFrameSize, len(data))
	}
	if data[0] != Magic0 || data[1] != Magic1 {
		return f, newFrameError(FrameBadMagic, data, int(magic), int(binary.BigEndian.Uint16(data[0:2])))
	}
	if sum := Checksum(data[2:7]); sum != data[7] {
		return f, newFrameError(FrameChecksumMismatch, data, int(sum), int(data[7]))
	}
	copy(f[:], data)
	return f, nil
}

// ResponseFrame is a decoded 20-byte status notification. Fields hold raw
// protocol values; see NewDeviceState for the translation into units.
//
// Layout (multi-byte fields little-endian):
//
//	[0-1]   0xAA 0x55    Magic
//	[2]     command      Echoed CommandCode
//	[3]     power        0 off, 1 running, 2 error
//	[4]     error        Error code 0-10
//	[5]     running      Running state 0-4
//	[6-7]   altitude     Altitude (u16)
//	[8]     mode         Operation mode 1-2
//	[9]     target       Level 1-10 (manual) or °C 8-36 (automatic)
//	[10]    current      Current power level 0-9 (automatic only)
//	[11-12] voltage      Supply voltage in decivolts (u16)
//	[13-14] heater temp  Heating element temperature °C (u16)
//	[15-16] room temp    Room temperature °C (u16)
//	[17]    display err  Error code shown on the panel
//	[18]    0x00         Reserved
//	[19]    checksum     sum(bytes[3:19]) mod 256
type ResponseFrame struct {
	Command           CommandCode
	Power             uint8
	ErrorCode         uint8
	RunningState      uint8
	Altitude          uint16
	Mode              uint8
	TargetLevel       uint8
	CurrentPowerLevel uint8
	VoltageDecivolts  uint16
	HeaterTemperature uint16
	RoomTemperature   uint16
	DisplayError      uint8
	Reserved          uint8
	Checksum          uint8
}

// Decode parses a notification payload. Length, magic and checksum are hard
// failures; field ranges are advisory (see Anomalies).
func Decode(data []byte) (*ResponseFrame, error) {
	if isEmpty(data) {
		return nil, newFrameError(FrameEmptyOrUnauthenticated, data, ResponseFrameSize, len(data))
	}
	if len(data) != ResponseFrameSize {
		return nil, newFrameError(FrameWrongLength, data, ResponseFrameSize, len(data))
	}
	if data[0] != Magic0 || data[1] != Magic1 {
		return nil, newFrameError(FrameBadMagic, data, int(magic), int(binary.BigEndian.Uint16(data[0:2])))
	}
	// Plain byte sum over [3,19): the high bytes of the 16-bit fields and
	// the reserved byte count, unlike a sum of the decoded field values.
	if sum := Checksum(data[3:19]); sum != data[19] {
		return nil, newFrameError(FrameChecksumMismatch, data, int(sum), int(data[19]))
	}

	return &ResponseFrame{
		Command:           CommandCode(data[2]),
		Power:             data[3],
		ErrorCode:         data[4],
		RunningState:      data[5],
		Altitude:          binary.LittleEndian.Uint16(data[6:8]),
		Mode:              data[8],
		TargetLevel:       data[9],
		CurrentPowerLevel: data[10],
		VoltageDecivolts:  binary.LittleEndian.Uint16(data[11:13]),
		HeaterTemperature: binary.LittleEndian.Uint16(data[13:15]),
		RoomTemperature:   binary.LittleEndian.Uint16(data[15:17]),
		DisplayError:      data[17],
		Reserved:          data[18],
		Checksum:          data[19],
	}, nil
}

// isEmpty reports a zero-length or all-zero payload
func isEmpty(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// EncodeResponse serialises r into a 20-byte notification, recomputing the
// checksum. r.Checksum is ignored.
func EncodeResponse(r *ResponseFrame) []byte {
	buf := make([]byte, ResponseFrameSize)
	buf[0] = Magic0
	buf[1] = Magic1
	buf[2] = byte(r.Command)
	buf[3] = r.Power
	buf[4] = r.ErrorCode
	buf[5] = r.RunningState
	binary.LittleEndian.PutUint16(buf[6:8], r.Altitude)
	buf[8] = r.Mode
	buf[9] = r.TargetLevel
	buf[10] = r.CurrentPowerLevel
	binary.LittleEndian.PutUint16(buf[11:13], r.VoltageDecivolts)
	binary.LittleEndian.PutUint16(buf[13:15], r.HeaterTemperature)
	binary.LittleEndian.PutUint16(buf[15:17], r.RoomTemperature)
	buf[17] = r.DisplayError
	buf[18] = r.Reserved
	buf[19] = Checksum(buf[3:19])
	return buf
}

// Anomalies lists fields that fall outside their documented ranges. The
// heater zeroes most fields while off, so range checks only apply when
// Power is non-zero. A non-empty result is worth logging, never rejecting.
func (r *ResponseFrame) Anomalies() []string {
	var out []string

	if r.Reserved != 0 {
		out = append(out, fmt.Sprintf("reserved=0x%02x", r.Reserved))
	}
	if r.Power == 0 {
		return out
	}

	if r.Command < CodeReadStatus || r.Command > CodeSetLevel {
		out = append(out, fmt.Sprintf("command=%d", r.Command))
	}
	if r.Power > 2 {
		out = append(out, fmt.Sprintf("power=%d", r.Power))
	}
	if r.ErrorCode > 10 {
		out = append(out, fmt.Sprintf("error=%d", r.ErrorCode))
	}
	if r.RunningState > 4 {
		out = append(out, fmt.Sprintf("running_state=%d", r.RunningState))
	}

	mode := OperationMode(r.Mode)
	if lo, hi, ok := mode.LevelRange(); ok {
		if r.TargetLevel < lo || r.TargetLevel > hi {
			out = append(out, fmt.Sprintf("target=%d", r.TargetLevel))
		}
	} else if r.Mode != 0 {
		out = append(out, fmt.Sprintf("mode=%d", r.Mode))
	}
	if mode == ModeAutomatic && r.CurrentPowerLevel > 9 {
		out = append(out, fmt.Sprintf("current_level=%d", r.CurrentPowerLevel))
	}
	if r.DisplayError > 10 {
		out = append(out, fmt.Sprintf("display_error=%d", r.DisplayError))
	}

	return out
}

// String returns a debug representation of the frame
func (r *ResponseFrame) String() string {
	return fmt.Sprintf("Response{cmd=%s, power=%d, err=%d, state=%d, mode=%d, target=%d, level=%d, voltage=%ddV, heater=%d°C, room=%d°C}",
		r.Command, r.Power, r.ErrorCode, r.RunningState, r.Mode, r.TargetLevel,
		r.CurrentPowerLevel, r.VoltageDecivolts, r.HeaterTemperature, r.RoomTemperature)
}
