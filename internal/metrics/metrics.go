// Package metrics exposes Prometheus metrics for the BLE bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame directions
const (
	DirectionWrite  = "write"  // client to heater
	DirectionNotify = "notify" // heater to client
)

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Bridge holds the bridge's traffic metrics. A nil *Bridge records nothing.
type Bridge struct {
	ClientsConnected prometheus.Gauge
	SubscribeTotal   *prometheus.CounterVec // labels: result=ok|error
	FramesTotal      *prometheus.CounterVec // labels: direction=write|notify
	WriteErrors      prometheus.Counter
}

// NewBridge registers and returns the bridge metrics
func NewBridge(reg prometheus.Registerer) *Bridge {
	m := &Bridge{
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "heaterble",
			Name:      "bridge_clients",
			Help:      "Websocket clients currently connected.",
		}),
		SubscribeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heaterble",
			Name:      "bridge_subscribe_total",
			Help:      "Subscribe requests by result.",
		}, []string{"result"}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heaterble",
			Name:      "bridge_frames_total",
			Help:      "Frames relayed by direction.",
		}, []string{"direction"}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heaterble",
			Name:      "bridge_write_errors_total",
			Help:      "Characteristic writes the device rejected.",
		}),
	}
	reg.MustRegister(m.ClientsConnected, m.SubscribeTotal, m.FramesTotal, m.WriteErrors)
	return m
}

// ClientConnected counts a new websocket client
func (m *Bridge) ClientConnected() {
	if m != nil {
		m.ClientsConnected.Inc()
	}
}

// ClientClosed counts a client going away
func (m *Bridge) ClientClosed() {
	if m != nil {
		m.ClientsConnected.Dec()
	}
}

// Subscribed records the outcome of a subscribe request
func (m *Bridge) Subscribed(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.SubscribeTotal.WithLabelValues(result).Inc()
}

// Frame counts one relayed frame
func (m *Bridge) Frame(direction string) {
	if m != nil {
		m.FramesTotal.WithLabelValues(direction).Inc()
	}
}

// WriteFailed counts a rejected characteristic write
func (m *Bridge) WriteFailed() {
	if m != nil {
		m.WriteErrors.Inc()
	}
}
