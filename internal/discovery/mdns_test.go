package discovery

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/heaterble/internal/protocol"
)

func newEntry(instance, host string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	entry.AddrIPv4 = v4
	entry.AddrIPv6 = v6
	entry.Text = txt
	return entry
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantPath string
	}{
		{
			name:     "bridge with IPv4 and path",
			entry:    newEntry("garage", "pi-garage.local.", 8765, []net.IP{net.ParseIP("192.168.4.16")}, nil, "path=/ble", "version=1.2.0"),
			wantIP:   "192.168.4.16",
			wantPort: 8765,
			wantPath: "/ble",
		},
		{
			name:     "custom path",
			entry:    newEntry("van", "van.local.", 9000, []net.IP{net.ParseIP("10.0.0.5")}, nil, "path=/gatt"),
			wantIP:   "10.0.0.5",
			wantPort: 9000,
			wantPath: "/gatt",
		},
		{
			name:     "no port or path specified (defaults)",
			entry:    newEntry("shed", "shed.local.", 0, []net.IP{net.ParseIP("172.16.0.1")}, nil),
			wantIP:   "172.16.0.1",
			wantPort: DefaultPort,
			wantPath: DefaultPath,
		},
		{
			name:     "IPv6 only bridge",
			entry:    newEntry("cabin", "cabin.local.", 8765, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantIP:   "fe80::1",
			wantPort: 8765,
			wantPath: DefaultPath,
		},
		{
			name:     "both IPv4 and IPv6 (should prefer IPv4)",
			entry:    newEntry("boat", "boat.local.", 8765, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantIP:   "192.168.1.50",
			wantPort: 8765,
			wantPath: DefaultPath,
		},
		{
			name:     "matching service UUID",
			entry:    newEntry("truck", "truck.local.", 8765, []net.IP{net.ParseIP("192.168.1.60")}, nil, "service="+strings.ToUpper(protocol.ServiceUUID.String())),
			wantIP:   "192.168.1.60",
			wantPort: 8765,
			wantPath: DefaultPath,
		},
		{
			name:    "gateway for another GATT service",
			entry:   newEntry("scale", "scale.local.", 8765, []net.IP{net.ParseIP("192.168.1.70")}, nil, "service=0000181d-0000-1000-8000-00805f9b34fb"),
			wantNil: true,
		},
		{
			name:    "no IP address",
			entry:   newEntry("garage", "pi-garage.local.", 8765, []net.IP{}, []net.IP{}),
			wantNil: true,
		},
		{
			name:    "empty instance",
			entry:   newEntry("", "pi-garage.local.", 8765, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if bridge != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", bridge)
				}
				return
			}

			if bridge == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil bridge")
			}
			if bridge.Instance != tt.entry.Instance {
				t.Errorf("bridge.Instance = %v, want %v", bridge.Instance, tt.entry.Instance)
			}
			if bridge.IP != tt.wantIP {
				t.Errorf("bridge.IP = %v, want %v", bridge.IP, tt.wantIP)
			}
			if bridge.Port != tt.wantPort {
				t.Errorf("bridge.Port = %v, want %v", bridge.Port, tt.wantPort)
			}
			if bridge.Path != tt.wantPath {
				t.Errorf("bridge.Path = %v, want %v", bridge.Path, tt.wantPath)
			}
			if bridge.Hostname != tt.entry.HostName {
				t.Errorf("bridge.Hostname = %v, want %v", bridge.Hostname, tt.entry.HostName)
			}
			if time.Since(bridge.DiscoveredAt) > time.Second {
				t.Errorf("bridge.DiscoveredAt is not recent: %v", bridge.DiscoveredAt)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	metadata := parseTXT([]string{"path=/ble", "version=1.0", "flag", "note=a=b"})

	expected := map[string]string{
		"path":    "/ble",
		"version": "1.0",
		"flag":    "", // Key without value
		"note":    "a=b",
	}

	if len(metadata) != len(expected) {
		t.Errorf("metadata has %d entries, want %d", len(metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := metadata[key]; !ok {
			t.Errorf("metadata missing key %q", key)
		} else if got != want {
			t.Errorf("metadata[%q] = %q, want %q", key, got, want)
		}
	}
}

func TestAdvertisedTXT_RoundTrip(t *testing.T) {
	entry := newEntry("garage", "pi.local.", 8765, []net.IP{net.ParseIP("192.168.1.2")}, nil, advertisedTXT("")...)

	bridge := parseServiceEntry(entry)
	if bridge == nil {
		t.Fatal("advertised TXT records should be accepted by the scanner")
	}
	if bridge.URL() != "ws://192.168.1.2:8765/ble" {
		t.Errorf("bridge.URL() = %v", bridge.URL())
	}
	if bridge.GetMetadata("version") == "" {
		t.Error("advertised TXT records should include a version")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

// Note: live mDNS discovery needs multicast on the test host and is exercised
// manually with `heaterctl bridge --simulate` and `heaterctl scan`.
