package protocol

import "fmt"

// PowerStatus is the heater's power byte
type PowerStatus uint8

const (
	PowerOff     PowerStatus = 0
	PowerRunning PowerStatus = 1
	PowerError   PowerStatus = 2
)

// String returns the power status name, or unknown(n) for undocumented values
func (p PowerStatus) String() string {
	switch p {
	case PowerOff:
		return "off"
	case PowerRunning:
		return "running"
	case PowerError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// IsKnown reports whether p is a documented value
func (p PowerStatus) IsKnown() bool { return p <= PowerError }

// On reports whether the heater is powered
func (p PowerStatus) On() bool { return p != PowerOff }

// RunningState is the combustion phase
type RunningState uint8

const (
	StateWarmup       RunningState = 0
	StateSelfTest     RunningState = 1
	StateIgnition     RunningState = 2
	StateHeating      RunningState = 3
	StateShuttingDown RunningState = 4
)

var runningStateNames = [...]string{
	StateWarmup:       "warmup",
	StateSelfTest:     "self_test",
	StateIgnition:     "ignition",
	StateHeating:      "heating",
	StateShuttingDown: "shutting_down",
}

// String returns the state name, or unknown(n) for undocumented values
func (s RunningState) String() string {
	if s.IsKnown() {
		return runningStateNames[s]
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// IsKnown reports whether s is a documented value
func (s RunningState) IsKnown() bool { return s <= StateShuttingDown }

// HeaterError is a fault code reported by the heater
type HeaterError uint8

const (
	ErrorNone HeaterError = iota
	ErrorUndervoltage
	ErrorOvervoltage
	ErrorIgnitionCoil
	ErrorFuelPump
	ErrorHighTemperature
	ErrorFan
	ErrorCable
	ErrorCombustion
	ErrorSensor
	ErrorIgnition
)

var heaterErrorNames = [...]string{
	ErrorNone:            "no error",
	ErrorUndervoltage:    "power supply undervoltage",
	ErrorOvervoltage:     "power supply overvoltage",
	ErrorIgnitionCoil:    "ignition coil failure",
	ErrorFuelPump:        "fuel pump failure",
	ErrorHighTemperature: "high temperature alarm",
	ErrorFan:             "fan failure",
	ErrorCable:           "cable damage",
	ErrorCombustion:      "combustion failure",
	ErrorSensor:          "sensor failure",
	ErrorIgnition:        "ignition failure",
}

// String returns the fault description, or unknown(n) for undocumented codes
func (e HeaterError) String() string {
	if e.IsKnown() {
		return heaterErrorNames[e]
	}
	return fmt.Sprintf("unknown(%d)", uint8(e))
}

// IsKnown reports whether e is a documented code
func (e HeaterError) IsKnown() bool { return e <= ErrorIgnition }

// DeviceState is a snapshot of the heater translated into domain units.
// It is built from one ResponseFrame and never modified afterwards.
type DeviceState struct {
	Command           CommandCode   `json:"command"`
	Power             PowerStatus   `json:"power"`
	Error             HeaterError   `json:"error"`
	RunningState      RunningState  `json:"running_state"`
	Altitude          uint16        `json:"altitude"`
	Mode              OperationMode `json:"mode"`
	TargetLevel       uint8         `json:"target_level"`
	RawPowerLevel     uint8         `json:"raw_power_level"`
	Voltage           float64       `json:"voltage"`
	HeaterTemperature int           `json:"heater_temperature"`
	RoomTemperature   int           `json:"room_temperature"`
	DisplayError      HeaterError   `json:"display_error"`
}

// NewDeviceState translates a decoded frame
func NewDeviceState(f *ResponseFrame) DeviceState {
	return DeviceState{
		Command:           f.Command,
		Power:             PowerStatus(f.Power),
		Error:             HeaterError(f.ErrorCode),
		RunningState:      RunningState(f.RunningState),
		Altitude:          f.Altitude,
		Mode:              OperationMode(f.Mode),
		TargetLevel:       f.TargetLevel,
		RawPowerLevel:     f.CurrentPowerLevel,
		Voltage:           float64(f.VoltageDecivolts) / 10.0,
		HeaterTemperature: int(f.HeaterTemperature),
		RoomTemperature:   int(f.RoomTemperature),
		DisplayError:      HeaterError(f.DisplayError),
	}
}

// TargetTemperature returns the target room temperature in automatic mode
func (s DeviceState) TargetTemperature() (int, bool) {
	if s.Mode != ModeAutomatic {
		return 0, false
	}
	return int(s.TargetLevel), true
}

// TargetPowerLevel returns the fixed power level in manual mode
func (s DeviceState) TargetPowerLevel() (int, bool) {
	if s.Mode != ModeManual {
		return 0, false
	}
	return int(s.TargetLevel), true
}

// CurrentPowerLevel returns the displayed power level. The heater reports it
// zero-based in automatic mode; in manual mode it is the target level.
func (s DeviceState) CurrentPowerLevel() int {
	if s.Mode == ModeAutomatic {
		return int(s.RawPowerLevel) + 1
	}
	return int(s.TargetLevel)
}

// String returns a one-line summary
func (s DeviceState) String() string {
	if !s.Power.On() {
		return fmt.Sprintf("power=%s voltage=%.1fV room=%d°C", s.Power, s.Voltage, s.RoomTemperature)
	}
	return fmt.Sprintf("power=%s state=%s mode=%s target=%d level=%d voltage=%.1fV heater=%d°C room=%d°C error=%s",
		s.Power, s.RunningState, s.Mode, s.TargetLevel, s.CurrentPowerLevel(),
		s.Voltage, s.HeaterTemperature, s.RoomTemperature, s.DisplayError)
}
