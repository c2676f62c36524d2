package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muurk/heaterble/internal/protocol"
)

// Registry represents the entire user configuration file.
// This stores user-defined metadata for heaters and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Heaters     map[string]*Heater `yaml:"heaters,omitempty"` // Keyed by heater name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Heater represents user-defined metadata for a single heater.
// The passkey is NEVER stored; it is supplied by flag or prompted.
type Heater struct {
	Nickname  string    `yaml:"nickname,omitempty"`   // User-friendly name
	Address   string    `yaml:"address"`              // BLE address (MAC, or peripheral UUID on macOS)
	Bridge    string    `yaml:"bridge,omitempty"`     // Websocket URL of the BLE gateway
	LastSeen  time.Time `yaml:"last_seen,omitempty"`  // Last successful exchange
	LastState *Snapshot `yaml:"last_state,omitempty"` // Last known status
}

// Snapshot is the last known status of a heater, kept for offline display
type Snapshot struct {
	Power             string  `yaml:"power"`
	Mode              string  `yaml:"mode"`
	TargetLevel       uint8   `yaml:"target_level"`
	Voltage           float64 `yaml:"voltage"`
	HeaterTemperature int     `yaml:"heater_temperature"`
	RoomTemperature   int     `yaml:"room_temperature"`
	Error             string  `yaml:"error,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	ResponseTimeout time.Duration `yaml:"response_timeout"`         // Wait for each heater notification
	PollInterval    time.Duration `yaml:"poll_interval"`            // Status refresh period in watch mode
	DiscoverTimeout time.Duration `yaml:"discover_timeout"`         // mDNS discovery timeout
	DefaultBridge   string        `yaml:"default_bridge,omitempty"` // Bridge used when a heater has none
	DefaultHeater   string        `yaml:"default_heater,omitempty"` // Heater used when --heater is omitted
}

// DefaultPreferences returns the preferences used when none are configured
func DefaultPreferences() *Preferences {
	return &Preferences{
		ResponseTimeout: 5 * time.Second,
		PollInterval:    2 * time.Second,
		DiscoverTimeout: 5 * time.Second,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Heaters:     make(map[string]*Heater),
		Preferences: DefaultPreferences(),
	}
}

// macPattern matches colon- or dash-separated 48-bit addresses
var macPattern = regexp.MustCompile(`^[0-9A-Fa-f]{2}([:-][0-9A-Fa-f]{2}){5}$`)

// NormalizeAddress validates a BLE address and returns its canonical form:
// upper-case colon-separated for MAC addresses, lower-case for the peripheral
// UUIDs CoreBluetooth reports instead of MACs.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if macPattern.MatchString(address) {
		return strings.ToUpper(strings.ReplaceAll(address, "-", ":")), nil
	}
	if id, err := uuid.Parse(address); err == nil {
		return id.String(), nil
	}
	return "", fmt.Errorf("invalid BLE address %q: want AA:BB:CC:DD:EE:FF or a peripheral UUID", address)
}

// GetHeater retrieves heater metadata by name.
// Returns nil if the heater doesn't exist in the registry.
func (r *Registry) GetHeater(name string) *Heater {
	return r.Heaters[name]
}

// AddHeater registers or replaces a heater under name
func (r *Registry) AddHeater(name, address, bridge string) (*Heater, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("heater name is required")
	}
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if r.Heaters == nil {
		r.Heaters = make(map[string]*Heater)
	}

	heater := &Heater{Address: addr, Bridge: bridge}
	if existing, ok := r.Heaters[name]; ok {
		heater.Nickname = existing.Nickname
		if existing.Address == addr {
			heater.LastSeen = existing.LastSeen
			heater.LastState = existing.LastState
		}
	}
	r.Heaters[name] = heater
	return heater, nil
}

// RemoveHeater deletes a heater. Returns false if it was not registered.
func (r *Registry) RemoveHeater(name string) bool {
	if _, ok := r.Heaters[name]; !ok {
		return false
	}
	delete(r.Heaters, name)
	if r.Preferences != nil && r.Preferences.DefaultHeater == name {
		r.Preferences.DefaultHeater = ""
	}
	return true
}

// SetHeaterNickname sets a user-friendly nickname for a registered heater.
func (r *Registry) SetHeaterNickname(name, nickname string) error {
	heater := r.GetHeater(name)
	if heater == nil {
		return fmt.Errorf("heater %q is not registered", name)
	}
	heater.Nickname = nickname
	return nil
}

// HeaterNames returns registered heater names in sorted order
func (r *Registry) HeaterNames() []string {
	names := make([]string, 0, len(r.Heaters))
	for name := range r.Heaters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordState stores state as the heater's last known status.
// Unknown heaters are ignored.
func (r *Registry) RecordState(name string, state protocol.DeviceState) {
	heater := r.GetHeater(name)
	if heater == nil {
		return
	}
	heater.LastSeen = time.Now()
	heater.LastState = &Snapshot{
		Power:             state.Power.String(),
		Mode:              state.Mode.String(),
		TargetLevel:       state.TargetLevel,
		Voltage:           state.Voltage,
		HeaterTemperature: state.HeaterTemperature,
		RoomTemperature:   state.RoomTemperature,
	}
	if state.Error != protocol.ErrorNone {
		heater.LastState.Error = state.Error.String()
	}
}

// BridgeFor returns the heater's bridge, falling back to the default bridge
func (r *Registry) BridgeFor(heater *Heater) string {
	if heater != nil && heater.Bridge != "" {
		return heater.Bridge
	}
	if r.Preferences != nil {
		return r.Preferences.DefaultBridge
	}
	return ""
}
