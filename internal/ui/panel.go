package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/heaterble/internal/protocol"
)

// maxPowerLevel is the top of the heater's power scale in both modes
const maxPowerLevel = 10

// Field is one labelled row of a panel or result box
type Field struct {
	Label string
	Value string
}

// StateFields lists the rows shown for a heater status, in display order.
// Values are plain text; styling is applied by RenderState.
func StateFields(state protocol.DeviceState) []Field {
	fields := []Field{
		{"Power", state.Power.String()},
		{"Status", state.RunningState.String()},
		{"Mode", state.Mode.String()},
	}

	if temp, ok := state.TargetTemperature(); ok {
		fields = append(fields, Field{"Target", fmt.Sprintf("%d °C", temp)})
	} else if level, ok := state.TargetPowerLevel(); ok {
		fields = append(fields, Field{"Target", fmt.Sprintf("level %d", level)})
	}

	fields = append(fields,
		Field{"Power level", fmt.Sprintf("%d/%d", state.CurrentPowerLevel(), maxPowerLevel)},
		Field{"Room", fmt.Sprintf("%d °C", state.RoomTemperature)},
		Field{"Heater", fmt.Sprintf("%d °C", state.HeaterTemperature)},
		Field{"Supply", fmt.Sprintf("%.1f V", state.Voltage)},
		Field{"Altitude", fmt.Sprintf("%d m", state.Altitude)},
	)

	if state.Error != protocol.ErrorNone {
		fields = append(fields, Field{"Error", state.Error.String()})
	}
	if state.DisplayError != protocol.ErrorNone && state.DisplayError != state.Error {
		fields = append(fields, Field{"Panel error", state.DisplayError.String()})
	}
	return fields
}

// powerStyle picks the style for the power field
func powerStyle(state protocol.DeviceState) lipgloss.Style {
	switch {
	case state.Power == protocol.PowerError || state.Error != protocol.ErrorNone:
		return FaultStyle
	case state.Power.On():
		return OnStyle
	default:
		return OffStyle
	}
}

// runningStyle highlights the transitional combustion phases
func runningStyle(state protocol.DeviceState) lipgloss.Style {
	if !state.Power.On() {
		return ValueStyle
	}
	switch state.RunningState {
	case protocol.StateHeating:
		return OnStyle
	default:
		return TransitionStyle
	}
}

// RenderGauge renders the current power level as a bar
func RenderGauge(level, width int) string {
	if width < 10 {
		width = 10
	}
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	if level < 0 {
		level = 0
	}
	if level > maxPowerLevel {
		level = maxPowerLevel
	}
	return bar.ViewAs(float64(level) / maxPowerLevel)
}

// RenderState renders a heater status panel
func RenderState(title, subtitle string, state protocol.DeviceState, width int) string {
	width = ClampWidth(width)

	var lines []string
	lines = append(lines, TitleStyle.Render(strings.ToUpper(title)))
	if subtitle != "" {
		lines = append(lines, SubtitleStyle.Render(subtitle))
	}
	lines = append(lines, RenderHorizontalDivider(width-8, "─"))

	for _, f := range StateFields(state) {
		value := ValueStyle.Render(f.Value)
		switch f.Label {
		case "Power":
			value = powerStyle(state).Render(PowerMarker + " " + f.Value)
		case "Status":
			value = runningStyle(state).Render(f.Value)
		case "Power level":
			value = RenderGauge(state.CurrentPowerLevel(), width/3) + " " + ValueStyle.Render(f.Value)
		case "Error", "Panel error":
			value = FaultStyle.Render(f.Value)
		}
		lines = append(lines, LabelStyle.Render(f.Label)+value)
	}

	return PanelStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderPlainState renders a status without colour, one field per line
func RenderPlainState(state protocol.DeviceState) string {
	var b strings.Builder
	for _, f := range StateFields(state) {
		fmt.Fprintf(&b, "%-12s %s\n", f.Label+":", f.Value)
	}
	return b.String()
}
