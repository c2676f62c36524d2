package protocol

import (
	"strings"
	"testing"
)

func TestNewDeviceState(t *testing.T) {
	f, err := Decode(heatingManual)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	s := NewDeviceState(f)

	if s.Power != PowerRunning || !s.Power.On() {
		t.Errorf("Power = %s, want running", s.Power)
	}
	if s.RunningState != StateHeating {
		t.Errorf("RunningState = %s, want heating", s.RunningState)
	}
	if s.Mode != ModeManual {
		t.Errorf("Mode = %s, want manual", s.Mode)
	}
	if s.Voltage != 12.5 {
		t.Errorf("Voltage = %v, want 12.5", s.Voltage)
	}
	if s.HeaterTemperature != 140 || s.RoomTemperature != 18 {
		t.Errorf("temperatures = %d/%d, want 140/18", s.HeaterTemperature, s.RoomTemperature)
	}
	if s.Altitude != 500 {
		t.Errorf("Altitude = %d, want 500", s.Altitude)
	}
	if lvl, ok := s.TargetPowerLevel(); !ok || lvl != 5 {
		t.Errorf("TargetPowerLevel() = %d, %v, want 5, true", lvl, ok)
	}
	if _, ok := s.TargetTemperature(); ok {
		t.Error("TargetTemperature() should be unavailable in manual mode")
	}
	if s.CurrentPowerLevel() != 5 {
		t.Errorf("CurrentPowerLevel() = %d, want 5", s.CurrentPowerLevel())
	}
}

func TestDeviceState_Automatic(t *testing.T) {
	s := NewDeviceState(&ResponseFrame{
		Power:             1,
		Mode:              uint8(ModeAutomatic),
		TargetLevel:       21,
		CurrentPowerLevel: 3,
	})

	if temp, ok := s.TargetTemperature(); !ok || temp != 21 {
		t.Errorf("TargetTemperature() = %d, %v, want 21, true", temp, ok)
	}
	if _, ok := s.TargetPowerLevel(); ok {
		t.Error("TargetPowerLevel() should be unavailable in automatic mode")
	}
	if s.CurrentPowerLevel() != 4 {
		t.Errorf("CurrentPowerLevel() = %d, want 4", s.CurrentPowerLevel())
	}
}

func TestEnumFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		known bool
		str   string
		want  string
	}{
		{"running state", RunningState(4).IsKnown(), RunningState(4).String(), "shutting_down"},
		{"running state unknown", RunningState(7).IsKnown(), RunningState(7).String(), "unknown(7)"},
		{"heater error", HeaterError(5).IsKnown(), HeaterError(5).String(), "high temperature alarm"},
		{"heater error unknown", HeaterError(42).IsKnown(), HeaterError(42).String(), "unknown(42)"},
		{"power", PowerStatus(2).IsKnown(), PowerStatus(2).String(), "error"},
		{"power unknown", PowerStatus(9).IsKnown(), PowerStatus(9).String(), "unknown(9)"},
		{"mode unknown", OperationMode(0).IsKnown(), OperationMode(0).String(), "unknown(0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.str != tt.want {
				t.Errorf("String() = %q, want %q", tt.str, tt.want)
			}
			wantKnown := !strings.HasPrefix(tt.want, "unknown")
			if tt.known != wantKnown {
				t.Errorf("IsKnown() = %v, want %v", tt.known, wantKnown)
			}
		})
	}
}
