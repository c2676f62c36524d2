// Heaterctl controls diesel parking heaters over Bluetooth Low Energy.
//
// The heater is reached through a websocket BLE bridge, found on the local
// network with mDNS or given with --bridge. Every command authenticates with
// the heater's four-digit passkey, sends one request, and prints the status
// the heater answers with.
//
// Usage:
//
//	heaterctl [command] [flags]
//
// See 'heaterctl --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/heaterble/internal/logging"
	"github.com/muurk/heaterble/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		// Failures already rendered as a result box only set the exit code
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	heaterName   string
	bridgeURL    string
	bleAddress   string
	passkeyFlag  string
	timeout      time.Duration
	simulate     bool
	logLevel     string
	logFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "heaterctl",
	Short: "Diesel Parking Heater BLE Controller",
	Long: `Control diesel parking heaters that speak the 8-byte BLE command protocol.

Heaters are reached through a websocket BLE bridge. Register a heater once
with 'heaterctl heaters add' and refer to it by name afterwards, or pass
--address and --bridge directly. Use --simulate to try every command
against an in-memory heater.

The heater's passkey is never stored. Pass it with --passkey, set
HEATERBLE_PASSKEY, or type it when prompted.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: `  # Show the status of the default heater
  heaterctl status

  # Switch a registered heater on
  heaterctl on --heater van

  # Hold 21 °C through a specific bridge
  heaterctl temp 21 --bridge ws://pi.local:8765/ble --address AA:BB:CC:DD:EE:FF

  # Try the live dashboard without hardware
  heaterctl watch --simulate --passkey 1234`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.InitializeWithFile(logLevel, logFile); err != nil {
			return err
		}
		switch outputFormat {
		case formatDetailed, formatPlain, formatJSON:
			return nil
		default:
			return fmt.Errorf("unknown output format %q (want %s, %s or %s)",
				outputFormat, formatDetailed, formatPlain, formatJSON)
		}
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&heaterName, "heater", "", "Registered heater name (default from config)")
	rootCmd.PersistentFlags().StringVar(&bridgeURL, "bridge", "", "Websocket URL of the BLE bridge (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&bleAddress, "address", "", "Heater BLE address (skips the registry)")
	rootCmd.PersistentFlags().StringVar(&passkeyFlag, "passkey", "", "Heater passkey, 0000-9999 (prompted when omitted)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Response timeout (default from config, 5s)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use an in-memory simulated heater")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file, rotated at 10 MB")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatDetailed, "Output format (detailed, plain, json)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heaterctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
