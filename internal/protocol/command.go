package protocol

import "fmt"

// OperationMode selects how the heater interprets its level setting
type OperationMode uint8

const (
	// ModeManual runs the heater at a fixed power level (1-10)
	ModeManual OperationMode = 1
	// ModeAutomatic regulates towards a target room temperature (8-36 °C)
	ModeAutomatic OperationMode = 2
)

// Level domains per operation mode
const (
	ManualLevelMin    = 1
	ManualLevelMax    = 10
	AutomaticLevelMin = 8
	AutomaticLevelMax = 36
)

// String returns the mode name
func (m OperationMode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAutomatic:
		return "automatic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// IsKnown reports whether m is one of the documented modes
func (m OperationMode) IsKnown() bool {
	return m == ModeManual || m == ModeAutomatic
}

// ParseOperationMode accepts "manual"/"automatic" and their short forms
func ParseOperationMode(s string) (OperationMode, error) {
	switch s {
	case "manual", "m", "level", "1":
		return ModeManual, nil
	case "automatic", "auto", "a", "temperature", "2":
		return ModeAutomatic, nil
	default:
		return 0, fmt.Errorf("unknown operation mode %q (want manual or automatic)", s)
	}
}

// LevelRange returns the inclusive level domain for mode m
func (m OperationMode) LevelRange() (lo, hi uint8, ok bool) {
	switch m {
	case ModeManual:
		return ManualLevelMin, ManualLevelMax, true
	case ModeAutomatic:
		return AutomaticLevelMin, AutomaticLevelMax, true
	default:
		return 0, 0, false
	}
}

// CommandCode is the request type byte at offset 4 of a request frame.
// The heater echoes it at offset 2 of the response.
type CommandCode uint8

const (
	CodeReadStatus CommandCode = 1
	CodeSetMode    CommandCode = 2
	CodeSetPower   CommandCode = 3
	CodeSetLevel   CommandCode = 4
)

// String returns the command name
func (c CommandCode) String() string {
	switch c {
	case CodeReadStatus:
		return "read_status"
	case CodeSetMode:
		return "set_mode"
	case CodeSetPower:
		return "set_power"
	case CodeSetLevel:
		return "set_level"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(c))
	}
}

// Command is one of Ping, SetMode, SetPower or SetLevel. The set is closed:
// only types in this package implement it.
type Command interface {
	Code() CommandCode
	String() string
	command()
}

// Ping requests a status notification without changing anything
type Ping struct{}

// SetMode switches between manual and automatic operation
type SetMode struct {
	Mode OperationMode
}

// SetPower turns the heater on or off
type SetPower struct {
	On bool
}

// SetLevel sets the power level (manual) or target temperature (automatic)
type SetLevel struct {
	Value uint8
}

func (Ping) Code() CommandCode     { return CodeReadStatus }
func (SetMode) Code() CommandCode  { return CodeSetMode }
func (SetPower) Code() CommandCode { return CodeSetPower }
func (SetLevel) Code() CommandCode { return CodeSetLevel }

func (Ping) String() string       { return "Ping" }
func (c SetMode) String() string  { return fmt.Sprintf("SetMode(%s)", c.Mode) }
func (c SetPower) String() string { return fmt.Sprintf("SetPower(%t)", c.On) }
func (c SetLevel) String() string { return fmt.Sprintf("SetLevel(%d)", c.Value) }

func (Ping) command()     {}
func (SetMode) command()  {}
func (SetPower) command() {}
func (SetLevel) command() {}

// DataByte returns the byte written at offset 5 of the request frame
func DataByte(cmd Command) byte {
	switch c := cmd.(type) {
	case Ping:
		return 0
	case SetMode:
		return byte(c.Mode)
	case SetPower:
		if c.On {
			return 1
		}
		return 0
	case SetLevel:
		return c.Value
	default:
		panic(fmt.Sprintf("protocol: unhandled command type %T", cmd))
	}
}

// Validate checks cmd against the heater's current operation mode. Pass 0
// when the mode is not yet known. Only SetLevel depends on the mode; the
// heater silently ignores out-of-range levels so they are rejected here.
func Validate(cmd Command, currentMode OperationMode) error {
	c, ok := cmd.(SetLevel)
	if !ok {
		return nil
	}

	lo, hi, known := currentMode.LevelRange()
	if !known {
		return &ValidationError{Field: "level", Value: int(c.Value)}
	}
	if c.Value < lo || c.Value > hi {
		return &ValidationError{
			Field: "level",
			Value: int(c.Value),
			Min:   int(lo),
			Max:   int(hi),
			Mode:  currentMode,
		}
	}
	return nil
}

// MaxPasskey is the largest 4-digit passkey
const MaxPasskey = 9999

// Passkey is the 4-digit PIN split into its two decimal digit pairs,
// e.g. 1234 becomes {12, 34}.
type Passkey [2]byte

// NewPasskey splits a 0000-9999 PIN into its digit pairs
func NewPasskey(pin uint16) (Passkey, error) {
	if pin > MaxPasskey {
		return Passkey{}, &ValidationError{Field: "passkey", Value: int(pin), Min: 0, Max: MaxPasskey}
	}
	return Passkey{byte(pin / 100), byte(pin % 100)}, nil
}

// Uint16 reassembles the PIN
func (p Passkey) Uint16() uint16 {
	return uint16(p[0])*100 + uint16(p[1])
}

// String returns the zero-padded PIN
func (p Passkey) String() string {
	return fmt.Sprintf("%04d", p.Uint16())
}
