package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/muurk/heaterble/internal/protocol"
)

// Printer provides methods for printing UI components to a writer.
// This is the primary way commands should output styled content.
type Printer struct {
	out   io.Writer
	width int
	plain bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = ClampWidth(width)
	return p
}

// SetPlain disables borders and colour, for pipes and logs
func (p *Printer) SetPlain(plain bool) *Printer {
	p.plain = plain
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintState prints a heater status panel
func (p *Printer) PrintState(title, subtitle string, state protocol.DeviceState) {
	if p.plain {
		p.Print(RenderPlainState(state))
		return
	}
	p.Println(RenderState(title, subtitle, state, p.width))
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	if p.plain {
		p.Print(r.Plain())
		return
	}
	p.Println(r.SetWidth(p.width).Render())
}

// PrintHeader prints a command banner
func (p *Printer) PrintHeader(h *Header) {
	if p.plain {
		p.Print(h.Plain())
		return
	}
	p.Println(h.SetWidth(p.width).Render())
}
