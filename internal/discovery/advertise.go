package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/heaterble/internal/logging"
	"github.com/muurk/heaterble/internal/protocol"
	"github.com/muurk/heaterble/internal/version"
)

// Advertisement is a running mDNS registration for a local bridge
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers a bridge listening on port under instance. Call
// Shutdown to withdraw it.
func Advertise(instance string, port int, path string) (*Advertisement, error) {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, advertisedTXT(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.LogConnection(instance, "advertised")
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertisement) Shutdown() {
	a.server.Shutdown()
}

func advertisedTXT(path string) []string {
	if path == "" {
		path = DefaultPath
	}
	return []string{
		"path=" + path,
		"service=" + protocol.ServiceUUID.String(),
		"version=" + version.Version,
	}
}
