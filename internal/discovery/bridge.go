package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Bridge represents a discovered BLE gateway on the network
type Bridge struct {
	// Instance is the advertised mDNS instance name (e.g., "garage")
	Instance string

	// Hostname is the mDNS hostname (e.g., "pi-garage.local.")
	Hostname string

	// IP is the gateway address, IPv4 preferred
	IP string

	// Port is the websocket port
	Port int

	// Path is the websocket endpoint path (e.g., "/ble")
	Path string

	// Metadata contains the mDNS TXT record data
	// Common fields: "path=/ble", "service=0000ffe0-...", "version=1.2.0"
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("Bridge %s (%s) at %s", b.Instance, b.Hostname, net.JoinHostPort(b.IP, strconv.Itoa(b.Port)))
}

// URL returns the websocket URL for the bridge
func (b *Bridge) URL() string {
	path := b.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "ws://" + net.JoinHostPort(b.IP, strconv.Itoa(b.Port)) + path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
