package tui

import (
	"io"

	"github.com/muesli/termenv"
)

// Style colors the parts of a chat transcript. On writers that are not terminals every
// method returns its input unchanged.
type Style struct {
	out *termenv.Output
	p   termenv.Profile
}

// NewStyle detects the color support of w.
func NewStyle(w io.Writer) *Style {
	out := termenv.NewOutput(w)
	return &Style{out: out, p: out.ColorProfile()}
}

// Event styles an intermediate activity line.
func (s *Style) Event(text string) string {
	return s.out.String(text).Foreground(s.p.Color("#a78bfa")).Faint().String()
}

// Error styles a failure.
func (s *Style) Error(text string) string {
	return s.out.String(text).Foreground(s.p.Color("#fb7185")).Bold().String()
}

// System styles messages from the REPL itself.
func (s *Style) System(text string) string {
	return s.out.String(text).Foreground(s.p.Color("#84cc16")).String()
}
