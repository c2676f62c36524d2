package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/heaterble/internal/config"
	"github.com/muurk/heaterble/internal/discovery"
	"github.com/muurk/heaterble/internal/logging"
	"github.com/muurk/heaterble/internal/protocol"
	"github.com/muurk/heaterble/internal/session"
	"github.com/muurk/heaterble/internal/transport/sim"
	"github.com/muurk/heaterble/internal/transport/wsbridge"
)

// PasskeyEnvVar supplies the passkey when --passkey is omitted
const PasskeyEnvVar = "HEATERBLE_PASSKEY"

// Simulated heaters accept the factory passkey
const (
	simulatedPasskey = 1234
	simulatedAddress = "00:00:00:00:00:00"
)

// target is the heater a command talks to
type target struct {
	name     string // registry name, empty for ad-hoc addresses
	address  string
	bridge   string
	simulate bool
}

// title is the heading of the status panel
func (t *target) title() string {
	switch {
	case t.simulate:
		return "Simulated heater"
	case t.name != "":
		return t.name
	default:
		return "Heater"
	}
}

// subtitle is the line under the panel heading
func (t *target) subtitle() string {
	if t.simulate {
		return "in-memory, passkey " + strconv.Itoa(simulatedPasskey)
	}
	return t.address + " via " + t.bridge
}

// targetFlags are the flags that select a heater
type targetFlags struct {
	simulate bool
	heater   string
	address  string
	bridge   string
}

// bridgeFinder locates a bridge when none is configured
type bridgeFinder func(ctx context.Context, timeout time.Duration) ([]*discovery.Bridge, error)

// resolveTarget picks the heater in order: --simulate, --address, --heater,
// then the registry's default heater. A missing bridge is discovered.
func resolveTarget(ctx context.Context, flags targetFlags, reg *config.Registry, find bridgeFinder) (*target, error) {
	if flags.simulate {
		return &target{name: flags.heater, address: simulatedAddress, simulate: true}, nil
	}

	t := &target{bridge: flags.bridge}
	switch {
	case flags.address != "":
		address, err := config.NormalizeAddress(flags.address)
		if err != nil {
			return nil, err
		}
		t.address = address
		if t.bridge == "" {
			t.bridge = reg.BridgeFor(nil)
		}

	default:
		name := flags.heater
		if name == "" {
			name = reg.Preferences.DefaultHeater
		}
		if name == "" {
			return nil, errors.New("no heater selected: use --heater, --address, or 'heaterctl heaters add'")
		}
		heater := reg.GetHeater(name)
		if heater == nil {
			return nil, fmt.Errorf("heater %q is not registered (see 'heaterctl heaters list')", name)
		}
		t.name = name
		t.address = heater.Address
		if t.bridge == "" {
			t.bridge = reg.BridgeFor(heater)
		}
	}

	if t.bridge == "" {
		bridge, err := discoverBridge(ctx, reg.Preferences.DiscoverTimeout, find)
		if err != nil {
			return nil, err
		}
		t.bridge = bridge
	}
	return t, nil
}

// discoverBridge returns the URL of the only bridge on the network
func discoverBridge(ctx context.Context, timeout time.Duration, find bridgeFinder) (string, error) {
	logging.Info("No bridge configured, browsing mDNS", zap.Duration("timeout", timeout))

	bridges, err := find(ctx, timeout)
	if err != nil {
		return "", fmt.Errorf("bridge discovery failed: %w", err)
	}

	switch len(bridges) {
	case 0:
		return "", errors.New("no BLE bridge found. Use --bridge to specify one, or run 'heaterctl scan'")
	case 1:
		return bridges[0].URL(), nil
	default:
		names := make([]string, len(bridges))
		for i, b := range bridges {
			names[i] = b.String()
		}
		return "", fmt.Errorf("multiple bridges found, use --bridge to pick one:\n  %s", strings.Join(names, "\n  "))
	}
}

// parsePasskey parses a four-digit passkey
func parsePasskey(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid passkey %q: want four digits", s)
	}
	if _, err := protocol.NewPasskey(uint16(n)); err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// readPasskey takes the passkey from the flag, then the environment, then
// a hidden prompt when stdin is a terminal
func readPasskey(flag string, simulated bool, prompt io.Writer) (uint16, error) {
	if flag != "" {
		return parsePasskey(flag)
	}
	if env := os.Getenv(PasskeyEnvVar); env != "" {
		return parsePasskey(env)
	}
	if simulated {
		return simulatedPasskey, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return 0, fmt.Errorf("passkey required: use --passkey or set %s", PasskeyEnvVar)
	}
	fmt.Fprint(prompt, "Heater passkey: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return 0, fmt.Errorf("failed to read passkey: %w", err)
	}
	return parsePasskey(string(raw))
}

// connection is an authenticated-on-first-use session and its transport
type connection struct {
	target  *target
	session *session.Session
	closer  io.Closer
}

// Close disconnects the session and releases the transport
func (c *connection) Close() {
	c.session.Disconnect()
	if c.closer != nil {
		_ = c.closer.Close()
	}
}

// connect resolves the heater, opens its transport and subscribes
func connect(ctx context.Context, reg *config.Registry) (*connection, error) {
	t, err := resolveTarget(ctx, targetFlags{
		simulate: simulate,
		heater:   heaterName,
		address:  bleAddress,
		bridge:   bridgeURL,
	}, reg, discovery.Scan)
	if err != nil {
		return nil, err
	}

	pin, err := readPasskey(passkeyFlag, t.simulate, os.Stderr)
	if err != nil {
		return nil, err
	}

	conn := &connection{target: t}
	var transport session.Transport
	if t.simulate {
		heater, err := sim.NewHeater(simulatedPasskey)
		if err != nil {
			return nil, err
		}
		transport = heater
	} else {
		client, err := wsbridge.Dial(ctx, t.bridge, t.address)
		if err != nil {
			return nil, err
		}
		transport = client
		conn.closer = client
	}

	conn.session = session.New(transport, t.address)
	conn.session.SetTimeout(responseTimeout(reg))
	if err := conn.session.Connect(ctx, pin); err != nil {
		if conn.closer != nil {
			_ = conn.closer.Close()
		}
		return nil, err
	}
	return conn, nil
}

// responseTimeout returns --timeout, else the configured preference
func responseTimeout(reg *config.Registry) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return reg.Preferences.ResponseTimeout
}

// recordState stores the last known status of a registered heater
func recordState(reg *config.Registry, t *target, state protocol.DeviceState) {
	if t.simulate || t.name == "" {
		return
	}
	reg.RecordState(t.name, state)
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save heater state", zap.String("heater", t.name), zap.Error(err))
	}
}
