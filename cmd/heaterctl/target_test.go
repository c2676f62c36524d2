package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muurk/heaterble/internal/config"
	"github.com/muurk/heaterble/internal/discovery"
	"github.com/muurk/heaterble/internal/protocol"
)

const testBridge = "ws://192.168.1.20:8765/ble"

// finderReturning returns a bridge finder with a fixed answer
func finderReturning(bridges []*discovery.Bridge, err error) bridgeFinder {
	return func(ctx context.Context, timeout time.Duration) ([]*discovery.Bridge, error) {
		return bridges, err
	}
}

// noDiscovery fails the test if discovery runs
func noDiscovery(t *testing.T) bridgeFinder {
	return func(ctx context.Context, timeout time.Duration) ([]*discovery.Bridge, error) {
		t.Error("discovery should not run")
		return nil, nil
	}
}

func testRegistry(t *testing.T) *config.Registry {
	t.Helper()
	reg := config.NewRegistry()
	if _, err := reg.AddHeater("van", "aa:bb:cc:dd:ee:ff", testBridge); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddHeater("boat", "11-22-33-44-55-66", ""); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestResolveTarget(t *testing.T) {
	garage := &discovery.Bridge{Instance: "garage", IP: "10.0.0.5", Port: 8765, Path: "/ble"}

	tests := []struct {
		name          string
		flags         targetFlags
		defaultHeater string
		defaultBridge string
		find          []*discovery.Bridge
		wantName      string
		wantAddress   string
		wantBridge    string
		wantSimulated bool
		wantErr       string
	}{
		{
			name:          "simulate wins over everything",
			flags:         targetFlags{simulate: true, address: "AA:BB:CC:DD:EE:FF"},
			wantAddress:   simulatedAddress,
			wantSimulated: true,
		},
		{
			name:        "registered heater with its bridge",
			flags:       targetFlags{heater: "van"},
			wantName:    "van",
			wantAddress: "AA:BB:CC:DD:EE:FF",
			wantBridge:  testBridge,
		},
		{
			name:        "bridge flag overrides the registry",
			flags:       targetFlags{heater: "van", bridge: "ws://other/ble"},
			wantName:    "van",
			wantAddress: "AA:BB:CC:DD:EE:FF",
			wantBridge:  "ws://other/ble",
		},
		{
			name:          "default heater",
			defaultHeater: "van",
			wantName:      "van",
			wantAddress:   "AA:BB:CC:DD:EE:FF",
			wantBridge:    testBridge,
		},
		{
			name:          "heater without bridge uses the default bridge",
			flags:         targetFlags{heater: "boat"},
			defaultBridge: "ws://default/ble",
			wantName:      "boat",
			wantAddress:   "11:22:33:44:55:66",
			wantBridge:    "ws://default/ble",
		},
		{
			name:        "heater without any bridge discovers one",
			flags:       targetFlags{heater: "boat"},
			find:        []*discovery.Bridge{garage},
			wantName:    "boat",
			wantAddress: "11:22:33:44:55:66",
			wantBridge:  "ws://10.0.0.5:8765/ble",
		},
		{
			name:        "address flag is normalized",
			flags:       targetFlags{address: "aa-bb-cc-dd-ee-01", bridge: testBridge},
			wantAddress: "AA:BB:CC:DD:EE:01",
			wantBridge:  testBridge,
		},
		{
			name:    "invalid address",
			flags:   targetFlags{address: "not-an-address", bridge: testBridge},
			wantErr: "invalid BLE address",
		},
		{
			name:    "unknown heater",
			flags:   targetFlags{heater: "truck"},
			wantErr: `heater "truck" is not registered`,
		},
		{
			name:    "nothing selected",
			wantErr: "no heater selected",
		},
		{
			name:    "no bridge found",
			flags:   targetFlags{heater: "boat"},
			wantErr: "no BLE bridge found",
		},
		{
			name:    "ambiguous discovery",
			flags:   targetFlags{heater: "boat"},
			find:    []*discovery.Bridge{garage, {Instance: "shed", IP: "10.0.0.6", Port: 8765}},
			wantErr: "multiple bridges found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := testRegistry(t)
			reg.Preferences.DefaultHeater = tt.defaultHeater
			reg.Preferences.DefaultBridge = tt.defaultBridge

			got, err := resolveTarget(context.Background(), tt.flags, reg, finderReturning(tt.find, nil))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("resolveTarget() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveTarget() error = %v", err)
			}
			if got.name != tt.wantName || got.address != tt.wantAddress ||
				got.bridge != tt.wantBridge || got.simulate != tt.wantSimulated {
				t.Errorf("resolveTarget() = %+v, want name=%q address=%q bridge=%q simulate=%v",
					got, tt.wantName, tt.wantAddress, tt.wantBridge, tt.wantSimulated)
			}
		})
	}
}

func TestResolveTarget_ConfiguredBridgeSkipsDiscovery(t *testing.T) {
	reg := testRegistry(t)
	if _, err := resolveTarget(context.Background(), targetFlags{heater: "van"}, reg, noDiscovery(t)); err != nil {
		t.Fatalf("resolveTarget() error = %v", err)
	}
}

func TestDiscoverBridge_Error(t *testing.T) {
	boom := errors.New("multicast unavailable")
	_, err := discoverBridge(context.Background(), time.Second, finderReturning(nil, boom))
	if !errors.Is(err, boom) {
		t.Errorf("discoverBridge() error = %v, want %v", err, boom)
	}
}

func TestParsePasskey(t *testing.T) {
	tests := []struct {
		input   string
		want    uint16
		wantErr bool
	}{
		{"1234", 1234, false},
		{"0000", 0, false},
		{" 9999\n", 9999, false},
		{"10000", 0, true},
		{"12a4", 0, true},
		{"", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePasskey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePasskey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parsePasskey(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadPasskey(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		t.Setenv(PasskeyEnvVar, "4321")
		got, err := readPasskey("1111", false, nil)
		if err != nil || got != 1111 {
			t.Errorf("readPasskey() = %d, %v, want 1111", got, err)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(PasskeyEnvVar, "4321")
		got, err := readPasskey("", false, nil)
		if err != nil || got != 4321 {
			t.Errorf("readPasskey() = %d, %v, want 4321", got, err)
		}
	})

	t.Run("simulated default", func(t *testing.T) {
		t.Setenv(PasskeyEnvVar, "")
		got, err := readPasskey("", true, nil)
		if err != nil || got != simulatedPasskey {
			t.Errorf("readPasskey() = %d, %v, want %d", got, err, simulatedPasskey)
		}
	})
}

func TestParseLevel(t *testing.T) {
	if v, err := parseLevel("21"); err != nil || v != 21 {
		t.Errorf("parseLevel(21) = %d, %v", v, err)
	}
	for _, bad := range []string{"256", "-3", "warm", "2.5"} {
		if _, err := parseLevel(bad); err == nil {
			t.Errorf("parseLevel(%q) should fail", bad)
		}
	}
}

func TestNewStateJSON(t *testing.T) {
	tg := &target{name: "van", address: "AA:BB:CC:DD:EE:FF"}

	auto := newStateJSON(tg, protocol.DeviceState{
		Power:         protocol.PowerRunning,
		Mode:          protocol.ModeAutomatic,
		TargetLevel:   22,
		RawPowerLevel: 3,
		Error:         protocol.ErrorNone,
	})
	if auto.TargetTemperature == nil || *auto.TargetTemperature != 22 {
		t.Errorf("TargetTemperature = %v, want 22", auto.TargetTemperature)
	}
	if auto.TargetPowerLevel != nil {
		t.Errorf("TargetPowerLevel = %v, want nil in automatic mode", *auto.TargetPowerLevel)
	}
	if auto.PowerLevel != 4 || auto.Power != "running" || auto.Error != "" {
		t.Errorf("newStateJSON() = %+v", auto)
	}

	manual := newStateJSON(tg, protocol.DeviceState{Mode: protocol.ModeManual, TargetLevel: 3, Error: protocol.ErrorFan})
	if manual.TargetPowerLevel == nil || *manual.TargetPowerLevel != 3 || manual.TargetTemperature != nil {
		t.Errorf("manual newStateJSON() = %+v", manual)
	}
	if manual.Error != protocol.ErrorFan.String() {
		t.Errorf("Error = %q, want %q", manual.Error, protocol.ErrorFan.String())
	}
}
