package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/heaterble/internal/config"
	"github.com/muurk/heaterble/internal/discovery"
	"github.com/muurk/heaterble/internal/ui"
)

// Registry command flags
var (
	scanTimeout    time.Duration
	scanInstance   string
	heaterNickname string
	makeDefault    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(heatersCmd)

	heatersCmd.AddCommand(heatersListCmd)
	heatersCmd.AddCommand(heatersAddCmd)
	heatersCmd.AddCommand(heatersRemoveCmd)
}

// scanCmd discovers BLE bridges on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE bridges on the network",
	Long: `Scan for websocket BLE bridges using mDNS/DNS-SD discovery.

Bridges advertise themselves as _heaterble._tcp. Each one found is listed
with the URL to pass to --bridge or 'heaterctl heaters add --bridge'.`,
	Example: `  # Scan for 5 seconds (default)
  heaterctl scan

  # Longer scan for slow networks
  heaterctl scan --scan-timeout 15s

  # Wait for one bridge, e.g. right after starting it
  heaterctl scan --instance garage-pi`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 0, "Scan timeout (default from config, 5s)")
	scanCmd.Flags().StringVar(&scanInstance, "instance", "", "Stop as soon as the bridge with this instance name answers")
}

// bridgeJSON is the JSON rendering of a discovered bridge
type bridgeJSON struct {
	Instance string `json:"instance"`
	Hostname string `json:"hostname"`
	URL      string `json:"url"`
	Version  string `json:"version,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	wait := scanTimeout
	if wait <= 0 {
		wait = reg.Preferences.DiscoverTimeout
	}

	out := cmd.OutOrStdout()
	if outputFormat != formatJSON {
		fmt.Fprintf(out, "Scanning for BLE bridges (timeout: %s)...\n\n", wait)
	}

	var bridges []*discovery.Bridge
	if scanInstance != "" {
		scanner := discovery.NewScanner()
		scanner.Timeout = wait
		bridge, err := scanner.WaitForBridge(ctx, scanInstance)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		bridges = append(bridges, bridge)
	} else {
		bridges, err = discovery.Scan(ctx, wait)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	if outputFormat == formatJSON {
		list := make([]bridgeJSON, 0, len(bridges))
		for _, b := range bridges {
			list = append(list, bridgeJSON{
				Instance: b.Instance,
				Hostname: b.Hostname,
				URL:      b.URL(),
				Version:  b.GetMetadata("version"),
			})
		}
		return printJSON(out, list)
	}

	if len(bridges) == 0 {
		fmt.Fprintln(out, "No bridges found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Ensure the bridge is running and on the same network")
		fmt.Fprintln(out, "  - Check that mDNS (UDP port 5353) is not blocked")
		fmt.Fprintln(out, "  - Try increasing --scan-timeout")
		fmt.Fprintln(out, "  - Use --bridge to specify the URL manually")
		return nil
	}

	fmt.Fprintf(out, "Found %d bridge(s):\n\n", len(bridges))
	for i, b := range bridges {
		fmt.Fprintf(out, "%d. %s\n", i+1, b.Instance)
		fmt.Fprintf(out, "   Host:    %s\n", b.Hostname)
		fmt.Fprintf(out, "   URL:     %s\n", b.URL())
		if v := b.GetMetadata("version"); v != "" {
			fmt.Fprintf(out, "   Version: %s\n", v)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Use 'heaterctl heaters add <name> <address> --bridge <url>' to register a heater")
	return nil
}

// heatersCmd groups the registry commands
var heatersCmd = &cobra.Command{
	Use:   "heaters",
	Short: "Manage registered heaters",
	Long: `Manage the heaters stored in the config file.

Registered heaters are selected with --heater <name>. The registry keeps
each heater's BLE address, bridge, and last known status. Passkeys are
never stored.`,
}

// heaterJSON is the JSON rendering of a registered heater
type heaterJSON struct {
	Name      string           `json:"name"`
	Nickname  string           `json:"nickname,omitempty"`
	Address   string           `json:"address"`
	Bridge    string           `json:"bridge,omitempty"`
	Default   bool             `json:"default,omitempty"`
	LastSeen  *time.Time       `json:"last_seen,omitempty"`
	LastState *config.Snapshot `json:"last_state,omitempty"`
}

var heatersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered heaters",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		names := reg.HeaterNames()

		if outputFormat == formatJSON {
			list := make([]heaterJSON, 0, len(names))
			for _, name := range names {
				h := reg.GetHeater(name)
				entry := heaterJSON{
					Name:      name,
					Nickname:  h.Nickname,
					Address:   h.Address,
					Bridge:    h.Bridge,
					Default:   name == reg.Preferences.DefaultHeater,
					LastState: h.LastState,
				}
				if !h.LastSeen.IsZero() {
					seen := h.LastSeen
					entry.LastSeen = &seen
				}
				list = append(list, entry)
			}
			return printJSON(out, list)
		}

		if len(names) == 0 {
			fmt.Fprintln(out, "No heaters registered. Use 'heaterctl heaters add <name> <address>'.")
			return nil
		}
		for _, name := range names {
			h := reg.GetHeater(name)
			marker := " "
			if name == reg.Preferences.DefaultHeater {
				marker = "*"
			}
			label := name
			if h.Nickname != "" {
				label = fmt.Sprintf("%s (%s)", name, h.Nickname)
			}
			fmt.Fprintf(out, "%s %s\n", marker, label)
			fmt.Fprintf(out, "    Address: %s\n", h.Address)
			if bridge := reg.BridgeFor(h); bridge != "" {
				fmt.Fprintf(out, "    Bridge:  %s\n", bridge)
			}
			if h.LastState != nil {
				fmt.Fprintf(out, "    Last:    %s, %s, room %d °C, %.1f V (%s)\n",
					h.LastState.Power, h.LastState.Mode, h.LastState.RoomTemperature,
					h.LastState.Voltage, h.LastSeen.Format(time.DateTime))
			}
		}
		return nil
	},
}

var heatersAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Register a heater",
	Long: `Register a heater under a name. The address is the heater's BLE MAC
address, or the peripheral UUID reported on macOS. Registering an existing
name replaces its address and bridge.`,
	Example: `  heaterctl heaters add van AA:BB:CC:DD:EE:FF --bridge ws://pi.local:8765/ble --default
  heaterctl heaters add boat 11:22:33:44:55:66 --nickname "Aft cabin"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		name := args[0]
		heater, err := reg.AddHeater(name, args[1], bridgeURL)
		if err != nil {
			return err
		}
		if heaterNickname != "" {
			if err := reg.SetHeaterNickname(name, heaterNickname); err != nil {
				return err
			}
		}
		if makeDefault || len(reg.Heaters) == 1 {
			reg.Preferences.DefaultHeater = name
		}
		if err := reg.Save(); err != nil {
			return err
		}

		result := ui.NewSuccessResult("Heater registered",
			ui.Field{Label: "Name", Value: name},
			ui.Field{Label: "Address", Value: heater.Address},
		)
		if bridge := reg.BridgeFor(heater); bridge != "" {
			result.AddDetail("Bridge", bridge)
		} else {
			result.AddDetail("Bridge", "discovered via mDNS")
		}
		if reg.Preferences.DefaultHeater == name {
			result.AddDetail("Default", "yes")
		}
		newPrinter(cmd.OutOrStdout()).PrintResult(result)
		return nil
	},
}

func init() {
	heatersAddCmd.Flags().StringVar(&heaterNickname, "nickname", "", "Friendly name shown in listings")
	heatersAddCmd.Flags().BoolVar(&makeDefault, "default", false, "Use this heater when --heater is omitted")
}

var heatersRemoveCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"remove"},
	Short:   "Forget a registered heater",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if !reg.RemoveHeater(args[0]) {
			return fmt.Errorf("heater %q is not registered", args[0])
		}
		if err := reg.Save(); err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).PrintResult(ui.NewSuccessResult("Heater removed",
			ui.Field{Label: "Name", Value: args[0]},
		))
		return nil
	},
}
