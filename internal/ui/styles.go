package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - running, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - faults, X marks
	WarningColor = lipgloss.Color("#FFA500") // Orange - transitional states
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
	DefaultPadding   = 2   // Default padding inside boxes
)

// Shared styles
var (
	// TitleStyle is for panel titles (e.g., "VAN HEATER")
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// SubtitleStyle is for the line under a title (e.g., the BLE address)
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// LabelStyle is for field labels in the status panel
	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(14)

	// ValueStyle is for field values in the status panel
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// OnStyle marks a running heater
	OnStyle = lipgloss.NewStyle().
		Foreground(SuccessColor).
		Bold(true)

	// OffStyle marks a heater that is switched off
	OffStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Bold(true)

	// FaultStyle marks a heater error
	FaultStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// TransitionStyle marks warm-up, ignition and shutdown phases
	TransitionStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorMessageStyle is for error message text
	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// ResultKeyStyle is for result detail keys
	ResultKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(15)

	// ResultValueStyle is for result detail values
	ResultValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	// TroubleshootingTitleStyle is for "Troubleshooting:" headers
	TroubleshootingTitleStyle = lipgloss.NewStyle().
					Foreground(MutedColor).
					Bold(true)

	// TroubleshootingItemStyle is for troubleshooting bullet points
	TroubleshootingItemStyle = lipgloss.NewStyle().
					Foreground(MutedColor)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "⚠"
	PowerMarker   = "●"
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// ClampWidth bounds width to the supported content range
func ClampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// PanelStyle returns the border style for the status panel
func PanelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width-2). // Account for border characters
		Padding(0, DefaultPadding)
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	if width < 0 {
		width = 0
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
