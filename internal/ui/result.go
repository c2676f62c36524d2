package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType // Success, failure, or warning
	Title           string     // e.g., "Heater switched on"
	Details         []Field    // Key-value details, in display order
	Error           error      // Error (for failure results)
	Troubleshooting []string   // Troubleshooting tips (for failure results)
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Field) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box. hint is split into
// troubleshooting tips, one per line; bullet prefixes are stripped.
func NewFailureResult(title string, err error, hint string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: splitHint(hint),
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Field) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// splitHint turns a multi-line hint into tips, dropping the
// "Troubleshooting:" heading the box draws itself
func splitHint(hint string) []string {
	var tips []string
	for _, line := range strings.Split(hint, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "•"))
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		tips = append(tips, line)
	}
	return tips
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Field{Label: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := ClampWidth(r.Width)

	var (
		marker, word string
		color        lipgloss.Color
	)
	switch r.Type {
	case ResultFailure:
		marker, word, color = FailureMarker, "FAILED", ErrorColor
	case ResultWarning:
		marker, word, color = WarningMarker, "WARNING", WarningColor
	default:
		marker, word, color = SuccessMarker, "SUCCESS", SuccessColor
	}

	var lines []string
	titleLine := lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Render(fmt.Sprintf("   %s  %s  ─  %s", marker, word, r.Title))
	lines = append(lines, "", titleLine, "")

	for _, d := range r.Details {
		keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", d.Label))
		lines = append(lines, keyStyled+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// renderTroubleshootingBox renders the inner troubleshooting box
func (r *Result) renderTroubleshootingBox(width int) string {
	var lines []string

	lines = append(lines, TroubleshootingTitleStyle.Render("Troubleshooting:"))
	lines = append(lines, "")

	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	content := strings.Join(lines, "\n")

	// Inner box with muted border
	innerWidth := width - 12 // Indent within outer box
	if innerWidth < 40 {
		innerWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(content)
}

// Plain renders the result without borders or colour
func (r *Result) Plain() string {
	var b strings.Builder
	switch r.Type {
	case ResultFailure:
		fmt.Fprintf(&b, "%s %s\n", FailureMarker, r.Title)
	case ResultWarning:
		fmt.Fprintf(&b, "%s %s\n", WarningMarker, r.Title)
	default:
		fmt.Fprintf(&b, "%s %s\n", SuccessMarker, r.Title)
	}
	for _, d := range r.Details {
		fmt.Fprintf(&b, "  %s: %s\n", d.Label, d.Value)
	}
	if r.Error != nil {
		fmt.Fprintf(&b, "  Error: %v\n", r.Error)
	}
	for _, tip := range r.Troubleshooting {
		fmt.Fprintf(&b, "  - %s\n", tip)
	}
	return b.String()
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
