// Package ui renders categorized status lines for provisioning steps.
//
// Every host mutation reports a single line tagged with its category:
//
//	[GROUP] docker created.
//	[USER] deploy already exists, proceeding...
//	[SSH] SSH server port changed to 2222
//
// Informational lines are magenta, "already exists" warnings yellow,
// fatal conditions red. Colors are dropped when writing to a non-terminal.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Status writes categorized status lines for provisioning steps.
type Status struct {
	w     io.Writer
	color bool
	debug bool
}

// NewStatus creates a Status writing to w. Color is enabled only when
// w is a terminal.
func NewStatus(w io.Writer) *Status {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Status{w: w, color: color}
}

// NewStatusWithColor creates a Status with color explicitly enabled or disabled.
func NewStatusWithColor(w io.Writer, color bool) *Status {
	return &Status{w: w, color: color}
}

// SetDebug marks every subsequent line's category with "(DEBUG)".
func (s *Status) SetDebug(debug bool) *Status {
	s.debug = debug
	return s
}

// Info reports a state-changing action, e.g. "[GROUP] docker created."
func (s *Status) Info(category, format string, args ...interface{}) {
	s.line(ColorInfo, category, format, args...)
}

// Warn reports an already-in-desired-state step, e.g. "[USER] deploy already exists".
func (s *Status) Warn(category, format string, args ...interface{}) {
	s.line(ColorWarning, category, format, args...)
}

// Error reports a fatal condition. It does not exit; callers surface the
// failure through their error return.
func (s *Status) Error(category, format string, args ...interface{}) {
	s.line(ColorError, category, format, args...)
}

func (s *Status) line(color lipgloss.Color, category, format string, args ...interface{}) {
	if s.debug {
		category += " (DEBUG)"
	}
	tag := "[" + category + "]"
	if s.color {
		tag = lipgloss.NewStyle().Foreground(color).Render(tag)
	}
	fmt.Fprintf(s.w, "%s %s\n", tag, fmt.Sprintf(format, args...))
}
