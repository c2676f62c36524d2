// Package config provides user configuration management for heaterble.
//
// This package manages a YAML-based configuration file that stores the
// heaters a user has registered (BLE address, bridge URL, nickname, last
// known status) and application preferences. The configuration follows
// OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/heaterble/config.yaml or $HOME/.config/heaterble/config.yaml
//   - macOS: $HOME/.config/heaterble/config.yaml
//   - Windows: %LOCALAPPDATA%\heaterble\config.yaml
//
// # Security
//
// IMPORTANT: This package NEVER stores heater passkeys. They are always
// supplied on the command line or prompted from the user when needed.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := registry.AddHeater("van", "AA:BB:CC:DD:EE:FF", "ws://gateway.local:8765/ble"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// Durations are written in Go syntax:
//
//	preferences:
//	  response_timeout: 5s
//	  poll_interval: 2s
//	  discover_timeout: 5s
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
