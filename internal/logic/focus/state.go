package focus

import "github.com/cjeanneret/FocusRail/internal/logic/sequence"

// State is a consistent copy of the controller state, taken for the
// status line. It shares nothing with the live controller.
type State struct {
	Enabled      bool
	ModePlay     bool // false = edit mode
	InTransition bool
	DisplayOn    bool

	CurrentSteps  int // absolute focus position since startup
	SelectedSpeed int // speed captured by the next recorded point
	DistanceMm    int // live lens distance

	Cursor int              // 1-based playback cursor, 0 when empty
	Next   int              // point the next advance will move to, 0 when empty
	From   int              // point the running transition started from
	Points []sequence.Point // recorded points, Len() == len(Points)
}

// Len returns the number of recorded points.
func (s State) Len() int {
	return len(s.Points)
}

// Point returns the recorded point at 1-based position i.
func (s State) Point(i int) (sequence.Point, bool) {
	if i < 1 || i > len(s.Points) {
		return sequence.Point{}, false
	}
	return s.Points[i-1], true
}
