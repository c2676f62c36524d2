package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is a command banner with a title, the command line, and its
// parameters. Long-running commands print one before they start serving.
type Header struct {
	Title   string  // e.g., "WEBSOCKET BLE BRIDGE"
	Command string  // e.g., "heaterctl bridge --simulate"
	Params  []Field // Shown in order below a divider
	Width   int     // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params ...Field) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := ClampWidth(h.Width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(strings.ToUpper(h.Title)),
		SubtitleStyle.Render(h.Command),
	)

	content := top
	if len(h.Params) > 0 {
		lines := make([]string, 0, len(h.Params))
		for _, p := range h.Params {
			lines = append(lines, LabelStyle.Render(p.Label+":")+ValueStyle.Render(p.Value))
		}
		content = lipgloss.JoinVertical(lipgloss.Left,
			top,
			RenderHorizontalDivider(width-8, "─"),
			strings.Join(lines, "\n"),
		)
	}

	return PanelStyle(width).Render(content)
}

// Plain renders the header without borders or colour
func (h *Header) Plain() string {
	var b strings.Builder
	b.WriteString(h.Title)
	b.WriteString("\n")
	for _, p := range h.Params {
		b.WriteString("  " + p.Label + ": " + p.Value + "\n")
	}
	return b.String()
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
