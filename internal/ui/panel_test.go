package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/heaterble/internal/protocol"
)

var (
	manualHeating = protocol.DeviceState{
		Power:             protocol.PowerRunning,
		RunningState:      protocol.StateHeating,
		Mode:              protocol.ModeManual,
		TargetLevel:       6,
		Voltage:           12.5,
		HeaterTemperature: 140,
		RoomTemperature:   18,
		Altitude:          500,
	}
	automaticFault = protocol.DeviceState{
		Power:        protocol.PowerError,
		Error:        protocol.ErrorFuelPump,
		DisplayError: protocol.ErrorOvervoltage,
		Mode:         protocol.ModeAutomatic,
		TargetLevel:  21,
		Voltage:      11.9,
	}
)

func fieldValue(fields []Field, label string) (string, bool) {
	for _, f := range fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

func TestStateFields(t *testing.T) {
	tests := []struct {
		name    string
		state   protocol.DeviceState
		want    map[string]string
		missing []string
	}{
		{
			name:  "manual mode shows a level target",
			state: manualHeating,
			want: map[string]string{
				"Target":      "level 6",
				"Power level": "6/10",
				"Supply":      "12.5 V",
				"Altitude":    "500 m",
			},
			missing: []string{"Error", "Panel error"},
		},
		{
			name:  "automatic mode shows a temperature target and faults",
			state: automaticFault,
			want: map[string]string{
				"Target":      "21 °C",
				"Error":       protocol.ErrorFuelPump.String(),
				"Panel error": protocol.ErrorOvervoltage.String(),
			},
		},
		{
			name:    "unknown mode has no target",
			state:   protocol.DeviceState{},
			missing: []string{"Target"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := StateFields(tt.state)
			for label, want := range tt.want {
				got, ok := fieldValue(fields, label)
				if !ok {
					t.Errorf("field %q missing", label)
				} else if got != want {
					t.Errorf("field %q = %q, want %q", label, got, want)
				}
			}
			for _, label := range tt.missing {
				if _, ok := fieldValue(fields, label); ok {
					t.Errorf("field %q should be absent", label)
				}
			}
		})
	}
}

func TestRenderState(t *testing.T) {
	out := RenderState("van", "AA:BB:CC:DD:EE:FF", manualHeating, 80)

	for _, want := range []string{"VAN", "AA:BB:CC:DD:EE:FF", "Power", "level 6", "140 °C"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderState() missing %q:\n%s", want, out)
		}
	}
}

func TestRenderGauge_Clamps(t *testing.T) {
	if RenderGauge(-3, 20) != RenderGauge(0, 20) {
		t.Error("negative levels should render as empty")
	}
	if RenderGauge(42, 20) != RenderGauge(10, 20) {
		t.Error("levels above the scale should render as full")
	}
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetPlain(true)

	p.PrintState("van", "", manualHeating)
	p.PrintResult(NewSuccessResult("Heater switched on", Field{"Mode", "manual"}))

	out := buf.String()
	for _, want := range []string{"Power:", "running", "✓ Heater switched on", "Mode: manual"} {
		if !strings.Contains(out, want) {
			t.Errorf("plain output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "╭") || strings.Contains(out, "\x1b[") {
		t.Errorf("plain output should have no borders or escape codes:\n%s", out)
	}
}

func TestNewFailureResult_SplitsHint(t *testing.T) {
	hint := "The heater did not accept the passkey.\nTroubleshooting:\n  • The factory passkey is 1234\n  • Retry\n"
	r := NewFailureResult("Status failed", errors.New("boom"), hint)

	want := []string{"The heater did not accept the passkey.", "The factory passkey is 1234", "Retry"}
	if len(r.Troubleshooting) != len(want) {
		t.Fatalf("Troubleshooting = %q, want %q", r.Troubleshooting, want)
	}
	for i := range want {
		if r.Troubleshooting[i] != want[i] {
			t.Errorf("Troubleshooting[%d] = %q, want %q", i, r.Troubleshooting[i], want[i])
		}
	}

	rendered := r.SetWidth(80).Render()
	if !strings.Contains(rendered, "FAILED") || !strings.Contains(rendered, "boom") {
		t.Errorf("Render() missing failure details:\n%s", rendered)
	}
}

func TestResult_DetailOrder(t *testing.T) {
	r := NewWarningResult("Stale state").
		AddDetail("First", "1").
		AddDetail("Second", "2")

	plain := r.Plain()
	if strings.Index(plain, "First") > strings.Index(plain, "Second") {
		t.Errorf("details should keep insertion order:\n%s", plain)
	}
	if !strings.HasPrefix(plain, WarningMarker) {
		t.Errorf("warning plain output should start with %s:\n%s", WarningMarker, plain)
	}
}
