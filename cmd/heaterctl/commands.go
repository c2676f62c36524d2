package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/heaterble/internal/config"
	"github.com/muurk/heaterble/internal/protocol"
	"github.com/muurk/heaterble/internal/session"
	"github.com/muurk/heaterble/internal/ui"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(levelCmd)
	rootCmd.AddCommand(tempCmd)
	rootCmd.AddCommand(powerLevelCmd)
	rootCmd.AddCommand(watchCmd)
}

// heaterAction is one request against a connected session
type heaterAction func(ctx context.Context, s *session.Session) (protocol.DeviceState, error)

// statusCmd reads the heater status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show heater status",
	Long: `Authenticate with the heater and print its current status: power,
combustion phase, mode, target, supply voltage and temperatures.`,
	Example: `  # Status of the default heater
  heaterctl status

  # JSON for scripting
  heaterctl status --heater van --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Status failed", func(ctx context.Context, s *session.Session) (protocol.DeviceState, error) {
			return s.Ping(ctx)
		})
	},
}

// onCmd switches the heater on
var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Switch the heater on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Power on failed", func(ctx context.Context, s *session.Session) (protocol.DeviceState, error) {
			return s.SetPower(ctx, true)
		})
	},
}

// offCmd switches the heater off
var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Switch the heater off",
	Long: `Switch the heater off. The heater runs its shutdown cycle (fan
cool-down) before the power status reads off.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Power off failed", func(ctx context.Context, s *session.Session) (protocol.DeviceState, error) {
			return s.SetPower(ctx, false)
		})
	},
}

// modeCmd selects manual or automatic operation
var modeCmd = &cobra.Command{
	Use:   "mode <manual|automatic>",
	Short: "Select the operation mode",
	Long: `Select how the heater interprets its level setting.

  manual     fixed power level 1-10
  automatic  regulate towards a room temperature of 8-36 °C`,
	Example: `  heaterctl mode automatic
  heaterctl mode manual --heater van`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := protocol.ParseOperationMode(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Mode change failed", func(ctx context.Context, s *session.Session) (protocol.DeviceState, error) {
			return s.SetOperationMode(ctx, mode)
		})
	},
}

// levelCmd sets the level in whatever mode the heater is in
var levelCmd = &cobra.Command{
	Use:   "level <n>",
	Short: "Set the level for the current mode",
	Long: `Set the heater's level. The value is a power level (1-10) in manual
mode and a target temperature in °C (8-36) in automatic mode. The value is
checked against the mode the heater reports before anything is sent.`,
	Example: `  heaterctl level 6`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseLevel(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Level change failed", func(ctx context.Context, s *session.Session) (protocol.DeviceState, error) {
			return s.SetLevel(ctx, value)
		})
	},
}

// tempCmd switches to automatic mode and sets the target temperature
var tempCmd = &cobra.Command{
	Use:     "temp <celsius>",
	Short:   "Hold a room temperature (automatic mode)",
	Example: `  heaterctl temp 21`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseLevel(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Temperature change failed", func(ctx context.Context, s *session.Session) (protocol.DeviceState, error) {
			return s.SetTargetTemperature(ctx, value)
		})
	},
}

// powerLevelCmd switches to manual mode and sets the power level
var powerLevelCmd = &cobra.Command{
	Use:     "power-level <n>",
	Short:   "Run at a fixed power level (manual mode)",
	Example: `  heaterctl power-level 4`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseLevel(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Power level change failed", func(ctx context.Context, s *session.Session) (protocol.DeviceState, error) {
			return s.SetTargetPowerLevel(ctx, value)
		})
	},
}

// parseLevel parses a level or temperature argument. Range checks are left
// to the session, which knows the heater's mode.
func parseLevel(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: want a whole number", s)
	}
	return uint8(n), nil
}

// signalContext is cancelled on interrupt
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// runAction connects to the selected heater, runs action, and prints the
// resulting status
func runAction(cmd *cobra.Command, failure string, action heaterAction) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	conn, err := connect(ctx, reg)
	if err != nil {
		return reportFailure(failure, err)
	}
	defer conn.Close()

	state, err := action(ctx, conn.session)
	if err != nil {
		return reportFailure(failure, err)
	}

	recordState(reg, conn.target, state)
	return printState(cmd.OutOrStdout(), conn.target, state)
}

// watchCmd runs the live dashboard
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live heater dashboard",
	Long: `Open a live dashboard that polls the heater and accepts key presses:

  p        power on/off
  ↑/+ ↓/-  raise or lower the level
  m        switch between manual and automatic
  r        refresh now
  q        quit

The poll interval comes from the config file (2s by default) or --interval.`,
	Example: `  heaterctl watch --heater van
  heaterctl watch --simulate`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var pollInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Poll interval (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	conn, err := connect(ctx, reg)
	if err != nil {
		return reportFailure("Watch failed", err)
	}
	defer conn.Close()

	interval := pollInterval
	if interval <= 0 {
		interval = reg.Preferences.PollInterval
	}

	model := ui.NewWatchModel(conn.session, ui.WatchConfig{
		Title:          conn.target.title(),
		Subtitle:       conn.target.subtitle(),
		PollInterval:   interval,
		RequestTimeout: responseTimeout(reg) * 2,
	})

	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	if m, ok := final.(ui.WatchModel); ok {
		if state, ok := m.State(); ok {
			recordState(reg, conn.target, state)
		}
		if err := m.Err(); err != nil {
			return reportFailure("Watch ended", err)
		}
	}
	return nil
}
