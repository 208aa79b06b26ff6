// Package sequence stores the recorded focus points and the playback
// cursor, and persists them across power cycles.
package sequence

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/logic/speed"
)

// DefaultCapacity is the maximum number of recorded points.
const DefaultCapacity = 100

var (
	// ErrCapacityExceeded is returned by Append when the sequence is full.
	ErrCapacityExceeded = errors.New("focus sequence capacity exceeded")
	// ErrPersistence wraps any failure to read or write the state file.
	ErrPersistence = errors.New("focus sequence persistence unavailable")
)

// Point is one recorded focus position.
type Point struct {
	Steps      int // absolute steps since controller startup
	SpeedIndex int // speed used to reach this point
	DistanceMm int // lens distance when recorded, display only
}

// Snapshot is the persisted form of a sequence.
type Snapshot struct {
	Cursor int
	Points []Point
}

// Persister reads and writes snapshots. Read must not return more than
// maxPoints points.
type Persister interface {
	Read(maxPoints int) (Snapshot, error)
	Write(s Snapshot) error
}

// Store is a bounded, ordered list of focus points plus a 1-based cursor.
// Points live in a fixed arena; only the first Len() are meaningful.
//
// Store is not safe for concurrent use.
type Store struct {
	points     []Point
	length     int
	cursor     int
	selected   int
	speedCount int
	persist    Persister
}

// NewStore creates an empty store holding up to capacity points whose
// speed indexes must be below speedCount.
func NewStore(capacity, speedCount int, p Persister) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		points:     make([]Point, capacity),
		speedCount: speedCount,
		persist:    p,
	}
}

// Cap returns the maximum number of points.
func (s *Store) Cap() int { return len(s.points) }

// Len returns the number of recorded points.
func (s *Store) Len() int { return s.length }

// Cursor returns the 1-based playback cursor, 0 when empty.
func (s *Store) Cursor() int { return s.cursor }

// SelectedSpeed returns the speed index captured by the next recorded point.
func (s *Store) SelectedSpeed() int { return s.selected }

// SelectSpeed sets the speed index used for recording.
func (s *Store) SelectSpeed(i int) error {
	if i < 0 || i >= s.speedCount {
		return fmt.Errorf("%w: %d", speed.ErrIndexOutOfRange, i)
	}
	s.selected = i
	return nil
}

// At returns the point at 1-based position i.
func (s *Store) At(i int) (Point, bool) {
	if i < 1 || i > s.length {
		return Point{}, false
	}
	return s.points[i-1], true
}

// Points returns a copy of the recorded points.
func (s *Store) Points() []Point {
	return append([]Point(nil), s.points[:s.length]...)
}

// Append records p at the end of the sequence.
func (s *Store) Append(p Point) error {
	if s.length == len(s.points) {
		return fmt.Errorf("%w: %d points", ErrCapacityExceeded, len(s.points))
	}
	if p.SpeedIndex < 0 || p.SpeedIndex >= s.speedCount {
		return fmt.Errorf("%w: point speed %d", speed.ErrIndexOutOfRange, p.SpeedIndex)
	}
	s.points[s.length] = p
	s.length++
	return nil
}

// Reset empties the sequence. Stale points stay in the arena but are
// never read again.
func (s *Store) Reset() {
	s.length = 0
	s.cursor = 0
}

// WrapNext returns the cursor that follows cursor, wrapping from the last
// point back to 1. It returns 0 for an empty sequence.
func (s *Store) WrapNext(cursor int) int {
	if s.length == 0 {
		return 0
	}
	next := cursor + 1
	if next < 1 || next > s.length {
		return 1
	}
	return next
}

// Advance moves the cursor to WrapNext and returns it.
func (s *Store) Advance() int {
	s.cursor = s.WrapNext(s.cursor)
	return s.cursor
}

// SeekEnd puts the cursor on the last point, so the next Advance starts
// over from point 1.
func (s *Store) SeekEnd() {
	s.cursor = s.length
}

// Save replaces the persisted sequence with the current one.
func (s *Store) Save() error {
	if s.persist == nil {
		return nil
	}
	snap := Snapshot{Cursor: s.cursor, Points: s.Points()}
	if err := s.persist.Write(snap); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	debug.Verbose("Sequence saved: cursor=%d length=%d", s.cursor, s.length)
	return nil
}

// Load replaces the sequence with the persisted one. A missing state file
// leaves the store empty and is not an error. Loaded data is clamped to
// the arena: extra points are dropped, a cursor outside [1, Len] is moved
// to Len, and unknown speed indexes fall back to 0.
func (s *Store) Load() error {
	if s.persist == nil {
		return nil
	}
	snap, err := s.persist.Read(len(s.points))
	if errors.Is(err, fs.ErrNotExist) {
		debug.Info("No saved focus sequence, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	points := snap.Points
	if len(points) > len(s.points) {
		debug.Info("Saved sequence has %d points, keeping the first %d", len(points), len(s.points))
		points = points[:len(s.points)]
	}
	s.length = copy(s.points, points)
	for i := 0; i < s.length; i++ {
		if idx := s.points[i].SpeedIndex; idx < 0 || idx >= s.speedCount {
			debug.Info("Saved point %d has unknown speed %d, using 0", i+1, idx)
			s.points[i].SpeedIndex = 0
		}
	}

	s.cursor = snap.Cursor
	if s.length == 0 {
		s.cursor = 0
	} else if s.cursor < 1 || s.cursor > s.length {
		debug.Verbose("Saved cursor %d out of range, using %d", snap.Cursor, s.length)
		s.cursor = s.length
	}

	debug.Info("Loaded focus sequence: %d points, cursor %d", s.length, s.cursor)
	return nil
}
