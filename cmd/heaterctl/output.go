package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/muurk/heaterble/internal/protocol"
	"github.com/muurk/heaterble/internal/session"
	"github.com/muurk/heaterble/internal/ui"
)

// Output formats
const (
	formatDetailed = "detailed"
	formatPlain    = "plain"
	formatJSON     = "json"
)

// reportedError marks a failure that has already been printed
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// stateJSON is the JSON rendering of a heater status, with names instead
// of raw enum values
type stateJSON struct {
	Heater            string  `json:"heater,omitempty"`
	Address           string  `json:"address"`
	Power             string  `json:"power"`
	RunningState      string  `json:"running_state"`
	Mode              string  `json:"mode"`
	TargetTemperature *int    `json:"target_temperature,omitempty"`
	TargetPowerLevel  *int    `json:"target_power_level,omitempty"`
	PowerLevel        int     `json:"power_level"`
	Voltage           float64 `json:"voltage"`
	HeaterTemperature int     `json:"heater_temperature"`
	RoomTemperature   int     `json:"room_temperature"`
	Altitude          uint16  `json:"altitude"`
	Error             string  `json:"error,omitempty"`
	DisplayError      string  `json:"display_error,omitempty"`
}

func newStateJSON(t *target, state protocol.DeviceState) stateJSON {
	out := stateJSON{
		Heater:            t.name,
		Address:           t.address,
		Power:             state.Power.String(),
		RunningState:      state.RunningState.String(),
		Mode:              state.Mode.String(),
		PowerLevel:        state.CurrentPowerLevel(),
		Voltage:           state.Voltage,
		HeaterTemperature: state.HeaterTemperature,
		RoomTemperature:   state.RoomTemperature,
		Altitude:          state.Altitude,
	}
	if temp, ok := state.TargetTemperature(); ok {
		out.TargetTemperature = &temp
	}
	if level, ok := state.TargetPowerLevel(); ok {
		out.TargetPowerLevel = &level
	}
	if state.Error != protocol.ErrorNone {
		out.Error = state.Error.String()
	}
	if state.DisplayError != protocol.ErrorNone {
		out.DisplayError = state.DisplayError.String()
	}
	return out
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// newPrinter returns a printer honouring --format
func newPrinter(w io.Writer) *ui.Printer {
	return ui.NewPrinter(w).SetPlain(outputFormat == formatPlain)
}

// printState prints a heater status in the selected format
func printState(w io.Writer, t *target, state protocol.DeviceState) error {
	if outputFormat == formatJSON {
		return printJSON(w, newStateJSON(t, state))
	}
	newPrinter(w).PrintState(t.title(), t.subtitle(), state)
	return nil
}

// reportFailure prints err with troubleshooting advice and marks it reported
func reportFailure(title string, err error) error {
	if outputFormat == formatJSON {
		_ = printJSON(os.Stderr, map[string]string{
			"error": err.Error(),
			"hint":  session.TroubleshootingHint(err),
		})
	} else {
		newPrinter(os.Stderr).PrintResult(ui.NewFailureResult(title, err, session.TroubleshootingHint(err)))
	}
	return &reportedError{err: err}
}
