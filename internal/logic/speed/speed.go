// Package speed holds the table of named transition speeds used when
// playing back a focus sequence.
package speed

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/FocusRail/internal/config"
)

// ErrIndexOutOfRange is returned for a speed index outside the table.
var ErrIndexOutOfRange = errors.New("speed index out of range")

// Entry is one named speed. Duration is the pause after every motor
// step of a transition.
type Entry struct {
	Label    string
	Duration time.Duration
}

// Table is an immutable, ordered list of speeds, fastest first by convention.
type Table struct {
	entries []Entry
}

// NewTable builds a table from entries. It needs at least one entry and
// rejects negative durations.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, errors.New("speed table needs at least one entry")
	}
	for i, e := range entries {
		if e.Duration < 0 {
			return nil, fmt.Errorf("speed %d (%s): negative duration %v", i, e.Label, e.Duration)
		}
	}
	return &Table{entries: append([]Entry(nil), entries...)}, nil
}

// FromConfig builds the table from the speeds section.
func FromConfig(speeds []config.SpeedConfig) (*Table, error) {
	entries := make([]Entry, len(speeds))
	for i, s := range speeds {
		entries[i] = Entry{
			Label:    s.Label,
			Duration: time.Duration(s.TransitionMs) * time.Millisecond,
		}
	}
	return NewTable(entries)
}

// Default returns the reference table: fastest 0ms, fast 10ms, medium 50ms,
// slow 100ms, slowest 200ms.
func Default() *Table {
	t, err := FromConfig(config.DefaultSpeeds())
	if err != nil {
		panic(err)
	}
	return t
}

// Count returns the number of speeds.
func (t *Table) Count() int {
	return len(t.entries)
}

// Valid reports whether i indexes the table.
func (t *Table) Valid(i int) bool {
	return i >= 0 && i < len(t.entries)
}

// Entry returns speed i.
func (t *Table) Entry(i int) (Entry, error) {
	if !t.Valid(i) {
		return Entry{}, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, i, len(t.entries))
	}
	return t.entries[i], nil
}

// Label returns the label of speed i. An invalid index is a programming
// error and yields "?".
func (t *Table) Label(i int) string {
	e, err := t.Entry(i)
	if err != nil {
		return "?"
	}
	return e.Label
}

// Duration returns the per-step pause of speed i, zero for an invalid index.
func (t *Table) Duration(i int) time.Duration {
	e, err := t.Entry(i)
	if err != nil {
		return 0
	}
	return e.Duration
}

// DurationMs returns Duration(i) in whole milliseconds.
func (t *Table) DurationMs(i int) int {
	return int(t.Duration(i) / time.Millisecond)
}

// Advance returns the next speed index, wrapping to the first.
func (t *Table) Advance(i int) int {
	return (i + 1) % len(t.entries)
}
