package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/heaterble/internal/config"
	"github.com/muurk/heaterble/internal/discovery"
	"github.com/muurk/heaterble/internal/logging"
	"github.com/muurk/heaterble/internal/metrics"
	"github.com/muurk/heaterble/internal/transport/sim"
	"github.com/muurk/heaterble/internal/transport/wsbridge"
	"github.com/muurk/heaterble/internal/ui"
)

// Bridge command flags
var (
	listenAddr  string
	bridgePath  string
	instance    string
	upstream    string
	noAdvertise bool
	metricsPath string
)

func init() {
	rootCmd.AddCommand(bridgeCmd)

	bridgeCmd.Flags().StringVar(&listenAddr, "listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Address to listen on")
	bridgeCmd.Flags().StringVar(&bridgePath, "path", discovery.DefaultPath, "Websocket endpoint path")
	bridgeCmd.Flags().StringVar(&instance, "name", "", "mDNS instance name (default: hostname)")
	bridgeCmd.Flags().StringVar(&upstream, "upstream", "", "Relay to another bridge instead of simulating heaters")
	bridgeCmd.Flags().BoolVar(&noAdvertise, "no-advertise", false, "Do not announce the bridge over mDNS")
	bridgeCmd.Flags().StringVar(&metricsPath, "metrics-path", "/metrics", "Prometheus metrics path (empty disables)")
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run a websocket BLE bridge",
	Long: `Serve the websocket BLE bridge protocol and announce it over mDNS.

With --simulate, each heater address a client asks for is answered by an
in-memory heater that accepts the factory passkey 1234 (or --passkey). The
heaters keep their state for as long as the bridge runs, so separate
heaterctl invocations see each other's changes.

With --upstream, clients are relayed to another bridge. This exposes a
bridge that is only reachable from this host to the rest of the network.`,
	Example: `  # Simulated heaters, discoverable with 'heaterctl scan'
  heaterctl bridge --simulate

  # Then, from another terminal
  heaterctl status --address AA:BB:CC:DD:EE:FF --passkey 1234

  # Relay a bridge listening on localhost only
  heaterctl bridge --upstream ws://127.0.0.1:9000/ble --listen :8765`,
	Args: cobra.NoArgs,
	RunE: runBridge,
}

// simulatedHeaters creates one simulated heater per address on first use
type simulatedHeaters struct {
	pin uint16

	mu      sync.Mutex
	heaters map[string]*sim.Heater
}

func newSimulatedHeaters(pin uint16) *simulatedHeaters {
	return &simulatedHeaters{pin: pin, heaters: make(map[string]*sim.Heater)}
}

// open implements wsbridge.OpenFunc
func (s *simulatedHeaters) open(ctx context.Context, address string) (wsbridge.Device, error) {
	address, err := config.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.heaters[address]; ok {
		return h, nil
	}
	h, err := sim.NewHeater(s.pin)
	if err != nil {
		return nil, err
	}
	s.heaters[address] = h
	logging.Info("Simulated heater created", zap.String("address", address))
	return h, nil
}

// relayTo opens devices on an upstream bridge
func relayTo(upstreamURL string) wsbridge.OpenFunc {
	return func(ctx context.Context, address string) (wsbridge.Device, error) {
		client, err := wsbridge.Dial(ctx, upstreamURL, address)
		if err != nil {
			return nil, err
		}
		// The client closes itself when the relayed subscription ends
		return client, nil
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	var open wsbridge.OpenFunc
	switch {
	case simulate && upstream != "":
		return errors.New("--simulate and --upstream are mutually exclusive")
	case simulate:
		pin := uint16(simulatedPasskey)
		if passkeyFlag != "" {
			var err error
			if pin, err = parsePasskey(passkeyFlag); err != nil {
				return err
			}
		}
		open = newSimulatedHeaters(pin).open
	case upstream != "":
		if _, err := wsbridge.BridgeURL(upstream, simulatedAddress); err != nil {
			return fmt.Errorf("invalid --upstream: %w", err)
		}
		open = relayTo(upstream)
	default:
		return errors.New("no BLE backend available: use --simulate or --upstream")
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	mux := http.NewServeMux()
	server := wsbridge.NewServer(open)
	if metricsPath != "" {
		reg := metrics.NewRegistry()
		server.SetMetrics(metrics.NewBridge(reg))
		mux.Handle(metricsPath, metrics.Handler(reg))
	}
	mux.Handle(bridgePath, server)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	port := ln.Addr().(*net.TCPAddr).Port
	if !noAdvertise {
		name := instance
		if name == "" {
			name, _ = os.Hostname()
		}
		adv, err := discovery.Advertise(name, port, bridgePath)
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer adv.Shutdown()
	}

	backend := "simulated heaters"
	if upstream != "" {
		backend = "relay to " + upstream
	}
	advertised := "off"
	if !noAdvertise {
		advertised = discovery.ServiceType
	}
	newPrinter(cmd.OutOrStdout()).PrintHeader(ui.NewHeader("WebSocket BLE bridge", cmd.CommandPath(),
		ui.Field{Label: "Listening", Value: ln.Addr().String()},
		ui.Field{Label: "Path", Value: bridgePath},
		ui.Field{Label: "Backend", Value: backend},
		ui.Field{Label: "mDNS", Value: advertised},
		ui.Field{Label: "Metrics", Value: metricsLabel()},
	))
	logging.Info("Bridge started",
		zap.String("listen", ln.Addr().String()),
		zap.String("path", bridgePath),
		zap.Bool("simulate", simulate),
		zap.String("upstream", upstream),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping bridge...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func metricsLabel() string {
	if metricsPath == "" {
		return "off"
	}
	return metricsPath
}
