// Package printer writes the console status indicator and user-facing errors.
package printer

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/roach88/fredkin/internal/transport"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

// Printer writes to one console stream.
type Printer struct {
	w io.Writer
}

// New returns a printer writing to w. Colours follow fatih/color's terminal
// detection; NO_COLOR disables them.
func New(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w}
}

// Status prints the connection indicator: green when connected, red otherwise.
func (p *Printer) Status(port string, s transport.State) {
	c := red
	if s == transport.Connected {
		c = green
	}
	c.Fprintf(p.w, "● %s", s.Label())
	if port != "" {
		fmt.Fprintf(p.w, " (%s)", port)
	}
	fmt.Fprintln(p.w)
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, a ...any) {
	green.Fprintf(p.w, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Info prints an uncoloured line.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.w, format+"\n", a...)
}

// Warning prints a yellow warning line.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.w, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Error prints an error line in red.
func (p *Printer) Error(err error) {
	red.Fprintf(p.w, "Error: %v\n", err)
}
