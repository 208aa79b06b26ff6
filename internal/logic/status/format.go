// Package status renders the controller state as the one-line status
// shown on the camera screen.
package status

import (
	"fmt"

	"github.com/cjeanneret/FocusRail/internal/logic/focus"
	"github.com/cjeanneret/FocusRail/internal/logic/speed"
)

// DefaultWidth is the status line width in characters.
const DefaultWidth = 41

// Formatter turns a state snapshot into a fixed-width line.
type Formatter struct {
	Speeds *speed.Table
	Width  int
}

// Format returns the status line for s, left-justified and padded or
// truncated to the formatter width. It depends on nothing but s.
func (f Formatter) Format(s focus.State) string {
	width := f.Width
	if width <= 0 {
		width = DefaultWidth
	}
	return fmt.Sprintf("%-*.*s", width, width, f.line(s))
}

func (f Formatter) line(s focus.State) string {
	switch {
	case !s.Enabled:
		return "[idle]"
	case !s.ModePlay:
		return fmt.Sprintf("[edit] %d < %dmm (%s)", s.Len(), s.DistanceMm, f.label(s.SelectedSpeed))
	case s.Len() == 0:
		return fmt.Sprintf("[play] 0/0 %dmm", s.DistanceMm)
	case s.InTransition:
		target, _ := s.Point(s.Cursor)
		return fmt.Sprintf("[play] %d>%d %dmm (%s)", source(s), s.Cursor, s.DistanceMm, f.label(target.SpeedIndex))
	}
	next, ok := s.Point(s.Next)
	if !ok {
		return fmt.Sprintf("[play] %d/%d %dmm", s.Cursor, s.Len(), s.DistanceMm)
	}
	return fmt.Sprintf("[play] %d/%d %dmm > %dmm (%s)", s.Cursor, s.Len(), s.DistanceMm, next.DistanceMm, f.label(next.SpeedIndex))
}

// source is the point a running transition started from: the recorded
// one, or the cursor before the advance.
func source(s focus.State) int {
	if s.From >= 1 && s.From <= s.Len() {
		return s.From
	}
	prev := s.Cursor - 1
	if prev < 1 {
		prev = s.Len()
	}
	return prev
}

func (f Formatter) label(i int) string {
	if f.Speeds == nil {
		return "?"
	}
	return f.Speeds.Label(i)
}
