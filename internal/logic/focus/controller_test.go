package focus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/FocusRail/internal/logic/sequence"
	"github.com/cjeanneret/FocusRail/internal/logic/speed"
)

type move struct {
	delta int
	wait  time.Duration
}

// fakeMotor records every MoveFocus call. When gate is set the move
// blocks until the gate is closed, after signalling started.
type fakeMotor struct {
	mu      sync.Mutex
	moves   []move
	limit   int // if > 0, moves are cut to this many steps
	err     error
	gate    chan struct{}
	started chan struct{}
}

func (m *fakeMotor) MoveFocus(ctx context.Context, delta int, wait time.Duration) (int, error) {
	m.mu.Lock()
	m.moves = append(m.moves, move{delta, wait})
	gate, started := m.gate, m.started
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	moved := delta
	if m.limit > 0 && abs(moved) > m.limit {
		moved = sign(delta) * m.limit
	}
	return moved, m.err
}

func (m *fakeMotor) recorded() []move {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]move(nil), m.moves...)
}

type fixedLens int

func (l fixedLens) DistanceMm() int { return int(l) }

type recordingScreen struct {
	calls []bool
	err   error
}

func (s *recordingScreen) SetPower(on bool) error {
	s.calls = append(s.calls, on)
	return s.err
}

type memoryState struct {
	snap   sequence.Snapshot
	saved  bool
	writes int
}

func (m *memoryState) Read(int) (sequence.Snapshot, error) {
	if !m.saved {
		return sequence.Snapshot{}, errors.New("nothing saved")
	}
	return m.snap, nil
}

func (m *memoryState) Write(s sequence.Snapshot) error {
	m.snap, m.saved = s, true
	m.writes++
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func newTestController(t *testing.T) (*Controller, *fakeMotor, *memoryState) {
	t.Helper()
	speeds := speed.Default()
	state := &memoryState{}
	motor := &fakeMotor{}
	c := New(Config{
		Store:       sequence.NewStore(sequence.DefaultCapacity, speeds.Count(), state),
		Speeds:      speeds,
		Motor:       motor,
		Lens:        fixedLens(1500),
		FineSteps:   1,
		CoarseSteps: 10,
	})
	return c, motor, state
}

// enterEdit enables the controller and switches from play to edit mode.
func enterEdit(t *testing.T, c *Controller) {
	t.Helper()
	c.ToggleEnabled()
	require.NoError(t, c.ToggleMode())
	require.False(t, c.Snapshot().ModePlay)
}

// recordAt jogs to steps and records a point with the given speed.
func recordAt(t *testing.T, c *Controller, steps, speedIndex int) {
	t.Helper()
	ctx := context.Background()
	for c.Snapshot().CurrentSteps != steps {
		delta := steps - c.Snapshot().CurrentSteps
		if delta >= 10 || delta <= -10 {
			require.NoError(t, c.JogCoarse(ctx, delta))
		} else {
			require.NoError(t, c.JogFine(ctx, delta))
		}
	}
	for c.Snapshot().SelectedSpeed != speedIndex {
		require.NoError(t, c.CycleSpeed())
	}
	require.NoError(t, c.RecordOrAdvance(ctx))
}

func TestNew_InitialState(t *testing.T) {
	c, _, _ := newTestController(t)
	s := c.Snapshot()
	assert.False(t, s.Enabled)
	assert.True(t, s.ModePlay)
	assert.True(t, s.DisplayOn)
	assert.False(t, s.InTransition)
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Cursor)
	assert.Equal(t, 1500, s.DistanceMm)
	assert.False(t, c.Running())

	c.MarkRunning()
	assert.True(t, c.Running())
}

func TestDisabled_IgnoresMotionCommands(t *testing.T) {
	c, motor, state := newTestController(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.JogFine(ctx, 1), ErrDisabled)
	assert.ErrorIs(t, c.JogCoarse(ctx, -1), ErrDisabled)
	assert.ErrorIs(t, c.ToggleMode(), ErrDisabled)
	assert.ErrorIs(t, c.RecordOrAdvance(ctx), ErrDisabled)
	assert.ErrorIs(t, c.CycleSpeed(), ErrDisabled)

	assert.Empty(t, motor.recorded())
	assert.Zero(t, state.writes)
	s := c.Snapshot()
	assert.True(t, s.ModePlay)
	assert.Zero(t, s.SelectedSpeed)
}

func TestToggleEnabled_KeepsModeAndSequence(t *testing.T) {
	c, _, _ := newTestController(t)
	enterEdit(t, c)
	recordAt(t, c, 5, 0)

	c.ToggleEnabled()
	s := c.Snapshot()
	assert.False(t, s.Enabled)
	assert.False(t, s.ModePlay)
	assert.Equal(t, 1, s.Len())

	c.ToggleEnabled()
	assert.True(t, c.Snapshot().Enabled)
}

func TestRecord_ThreePoints(t *testing.T) {
	c, _, state := newTestController(t)
	enterEdit(t, c)

	recordAt(t, c, 0, 0)
	recordAt(t, c, 50, 2)
	recordAt(t, c, 120, 4)

	s := c.Snapshot()
	require.Equal(t, 3, s.Len())
	want := []sequence.Point{
		{Steps: 0, SpeedIndex: 0, DistanceMm: 1500},
		{Steps: 50, SpeedIndex: 2, DistanceMm: 1500},
		{Steps: 120, SpeedIndex: 4, DistanceMm: 1500},
	}
	assert.Equal(t, want, s.Points)
	assert.Equal(t, 3, state.writes, "each record is saved")
}

func TestAdvance_WrapsToFirstPoint(t *testing.T) {
	c, motor, state := newTestController(t)
	ctx := context.Background()
	enterEdit(t, c)
	recordAt(t, c, 0, 0)
	recordAt(t, c, 50, 2)
	recordAt(t, c, 120, 4)
	jogs := len(motor.recorded())

	require.NoError(t, c.ToggleMode())
	s := c.Snapshot()
	require.True(t, s.ModePlay)
	assert.Equal(t, 3, s.Cursor)
	assert.Equal(t, 3, state.snap.Cursor, "entering play saves")

	require.NoError(t, c.RecordOrAdvance(ctx))
	s = c.Snapshot()
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, 3, s.From)
	assert.Zero(t, s.CurrentSteps)
	assert.False(t, s.InTransition)
	assert.Equal(t, 1, state.snap.Cursor)

	moves := motor.recorded()[jogs:]
	require.Len(t, moves, 1)
	assert.Equal(t, move{delta: -120, wait: 0}, moves[0])

	require.NoError(t, c.RecordOrAdvance(ctx))
	moves = motor.recorded()[jogs:]
	assert.Equal(t, move{delta: 50, wait: 50 * time.Millisecond}, moves[1])
	assert.Equal(t, 2, c.Snapshot().Cursor)
}

func TestSnapshot_PreviewsNextPoint(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()
	enterEdit(t, c)
	recordAt(t, c, 0, 0)
	recordAt(t, c, 50, 2)
	recordAt(t, c, 120, 4)
	require.NoError(t, c.ToggleMode())

	require.NoError(t, c.RecordOrAdvance(ctx))
	require.NoError(t, c.RecordOrAdvance(ctx))
	s := c.Snapshot()
	require.Equal(t, 2, s.Cursor)
	assert.Equal(t, 3, s.Next)

	require.NoError(t, c.RecordOrAdvance(ctx))
	assert.Equal(t, 1, c.Snapshot().Next)
}

func TestJog_DoesNotTouchSequence(t *testing.T) {
	c, motor, state := newTestController(t)
	ctx := context.Background()
	enterEdit(t, c)
	recordAt(t, c, 7, 1)
	writes := state.writes
	before := c.Snapshot()

	require.NoError(t, c.JogCoarse(ctx, 1))
	s := c.Snapshot()
	assert.Equal(t, before.CurrentSteps+10, s.CurrentSteps)
	assert.Equal(t, before.Points, s.Points)
	assert.Equal(t, before.Cursor, s.Cursor)
	assert.Equal(t, writes, state.writes)
	assert.False(t, s.InTransition)

	moves := motor.recorded()
	assert.Equal(t, move{delta: 10, wait: 0}, moves[len(moves)-1])

	require.NoError(t, c.JogFine(ctx, -5))
	assert.Equal(t, before.CurrentSteps+9, c.Snapshot().CurrentSteps)
}

func TestJog_WorksInPlayMode(t *testing.T) {
	c, _, _ := newTestController(t)
	c.ToggleEnabled()
	require.NoError(t, c.JogCoarse(context.Background(), -1))
	assert.Equal(t, -10, c.Snapshot().CurrentSteps)
}

func TestJog_IntegratesOnlyMovedSteps(t *testing.T) {
	c, motor, _ := newTestController(t)
	c.ToggleEnabled()
	motor.limit = 4
	motor.err = context.Canceled

	err := c.JogCoarse(context.Background(), 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, c.Snapshot().CurrentSteps)
}

func TestToggleMode_EditClearsSequence(t *testing.T) {
	c, _, state := newTestController(t)
	enterEdit(t, c)
	recordAt(t, c, 3, 0)
	recordAt(t, c, 9, 0)
	require.NoError(t, c.ToggleMode())
	writes := state.writes

	require.NoError(t, c.ToggleMode())
	s := c.Snapshot()
	assert.False(t, s.ModePlay)
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Cursor)
	assert.Equal(t, writes, state.writes, "entering edit does not save")
	assert.Len(t, state.snap.Points, 2, "saved sequence survives until the next record")
}

func TestAdvance_EmptySequenceIsNoop(t *testing.T) {
	c, motor, state := newTestController(t)
	c.ToggleEnabled()

	require.NoError(t, c.RecordOrAdvance(context.Background()))
	assert.Empty(t, motor.recorded())
	assert.Zero(t, state.writes)
	s := c.Snapshot()
	assert.Zero(t, s.Cursor)
	assert.False(t, s.InTransition)
}

func TestRecord_CapacityExceeded(t *testing.T) {
	speeds := speed.Default()
	state := &memoryState{}
	c := New(Config{
		Store:  sequence.NewStore(2, speeds.Count(), state),
		Speeds: speeds,
		Motor:  &fakeMotor{},
		Lens:   fixedLens(800),
	})
	enterEdit(t, c)
	ctx := context.Background()

	require.NoError(t, c.RecordOrAdvance(ctx))
	require.NoError(t, c.RecordOrAdvance(ctx))
	err := c.RecordOrAdvance(ctx)
	assert.ErrorIs(t, err, sequence.ErrCapacityExceeded)
	assert.Equal(t, 2, c.Snapshot().Len())
	assert.Equal(t, 2, state.writes)
}

func TestCycleSpeed_Wraps(t *testing.T) {
	c, _, _ := newTestController(t)
	c.ToggleEnabled()
	got := []int{}
	for i := 0; i < 6; i++ {
		require.NoError(t, c.CycleSpeed())
		got = append(got, c.Snapshot().SelectedSpeed)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 0, 1}, got)
}

func TestAdvance_InTransitionDuringMove(t *testing.T) {
	c, motor, _ := newTestController(t)
	ctx := context.Background()
	enterEdit(t, c)
	recordAt(t, c, 0, 0)
	recordAt(t, c, 30, 3)
	require.NoError(t, c.ToggleMode())

	motor.mu.Lock()
	motor.gate = make(chan struct{})
	motor.started = make(chan struct{}, 1)
	motor.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.RecordOrAdvance(ctx) }()

	<-motor.started
	s := c.Snapshot()
	assert.True(t, s.InTransition)
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, 2, s.From)
	assert.Equal(t, 30, s.CurrentSteps, "position is integrated after the move")

	close(motor.gate)
	require.NoError(t, <-done)
	s = c.Snapshot()
	assert.False(t, s.InTransition)
	assert.Zero(t, s.CurrentSteps)
}

func TestToggleDisplay_WorksWhileDisabled(t *testing.T) {
	screen := &recordingScreen{}
	speeds := speed.Default()
	c := New(Config{
		Store:  sequence.NewStore(4, speeds.Count(), nil),
		Speeds: speeds,
		Motor:  &fakeMotor{},
		Lens:   fixedLens(0),
		Screen: screen,
	})

	require.NoError(t, c.ToggleDisplay())
	assert.False(t, c.Snapshot().DisplayOn)
	require.NoError(t, c.ToggleDisplay())
	assert.True(t, c.Snapshot().DisplayOn)
	assert.Equal(t, []bool{false, true}, screen.calls)

	screen.err = errors.New("backlight")
	assert.Error(t, c.ToggleDisplay())
}

func TestLoad_RestoresAndClamps(t *testing.T) {
	speeds := speed.Default()
	state := &memoryState{saved: true, snap: sequence.Snapshot{
		Cursor: 9,
		Points: []sequence.Point{{Steps: 4, SpeedIndex: 1}, {Steps: 8, SpeedIndex: 2}},
	}}
	c := New(Config{
		Store:  sequence.NewStore(10, speeds.Count(), state),
		Speeds: speeds,
		Motor:  &fakeMotor{},
		Lens:   fixedLens(0),
	})
	c.Load()

	s := c.Snapshot()
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.Cursor)
	assert.Equal(t, 1, s.Next)
}

func TestLoad_FailureStartsEmpty(t *testing.T) {
	c, _, _ := newTestController(t)
	c.Load() // memoryState with nothing saved fails to read
	assert.Zero(t, c.Snapshot().Len())
}

func TestState_Point(t *testing.T) {
	s := State{Points: []sequence.Point{{Steps: 1}, {Steps: 2}}}
	p, ok := s.Point(2)
	assert.True(t, ok)
	assert.Equal(t, 2, p.Steps)

	for _, i := range []int{0, -1, 3} {
		_, ok := s.Point(i)
		assert.False(t, ok, "index %d", i)
	}
}
