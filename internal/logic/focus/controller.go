// Package focus implements the focus sequence state machine: recording
// focus points in edit mode and moving the lens between them in play mode.
package focus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/logic/sequence"
	"github.com/cjeanneret/FocusRail/internal/logic/speed"
)

// ErrDisabled is returned by motion and sequence commands while the
// controller is disabled. Such commands are ignored.
var ErrDisabled = errors.New("focus controller disabled")

// Motor moves the lens focus. MoveFocus blocks until the move is over and
// returns the number of steps actually moved.
type Motor interface {
	MoveFocus(ctx context.Context, deltaSteps int, wait time.Duration) (int, error)
}

// DistanceReader reports the live lens focus distance.
type DistanceReader interface {
	DistanceMm() int
}

// Screen switches the camera display on and off.
type Screen interface {
	SetPower(on bool) error
}

// Config wires a controller to its collaborators.
type Config struct {
	Store       *sequence.Store
	Speeds      *speed.Table
	Motor       Motor
	Lens        DistanceReader
	Screen      Screen // optional
	FineSteps   int    // default 1
	CoarseSteps int    // default 10
}

// Controller owns the controller state. Commands are expected one at a
// time (see input.Dispatch); Snapshot may be called concurrently from the
// render loop, including while a transition is running.
type Controller struct {
	mu     sync.RWMutex
	store  *sequence.Store
	speeds *speed.Table
	motor  Motor
	lens   DistanceReader
	screen Screen
	fine   int
	coarse int

	enabled   bool
	modePlay  bool
	displayOn bool
	steps     int
	from      int

	inTransition atomic.Bool
	running      atomic.Bool
}

// New creates a disabled controller in play mode with the display on.
func New(cfg Config) *Controller {
	fine := cfg.FineSteps
	if fine <= 0 {
		fine = 1
	}
	coarse := cfg.CoarseSteps
	if coarse <= 0 {
		coarse = 10
	}
	return &Controller{
		store:     cfg.Store,
		speeds:    cfg.Speeds,
		motor:     cfg.Motor,
		lens:      cfg.Lens,
		screen:    cfg.Screen,
		fine:      fine,
		coarse:    coarse,
		modePlay:  true,
		displayOn: true,
	}
}

// Load restores the persisted sequence. Persistence failures leave the
// sequence empty and are only logged.
func (c *Controller) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Load(); err != nil {
		debug.Error(err)
		c.store.Reset()
	}
}

// MarkRunning records that the status loop is up. Until then the command
// router passes every input through.
func (c *Controller) MarkRunning() {
	c.running.Store(true)
}

// Running reports whether MarkRunning was called.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Enabled reports whether the controller reacts to motion commands.
func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// ToggleEnabled switches between idle and enabled. Mode and sequence are kept.
func (c *Controller) ToggleEnabled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = !c.enabled
	debug.Verbose("Controller enabled=%v", c.enabled)
}

// ToggleDisplay switches the camera display. It works while disabled.
func (c *Controller) ToggleDisplay() error {
	c.mu.Lock()
	c.displayOn = !c.displayOn
	on := c.displayOn
	c.mu.Unlock()

	debug.Verbose("Display on=%v", on)
	if c.screen == nil {
		return nil
	}
	return c.screen.SetPower(on)
}

// ToggleMode switches between play and edit. Entering edit clears the
// sequence for a fresh recording; entering play puts the cursor on the
// last point so the first advance goes to point 1, and saves.
func (c *Controller) ToggleMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return ErrDisabled
	}

	c.modePlay = !c.modePlay
	if c.modePlay {
		c.store.SeekEnd()
		c.save()
		debug.Verbose("Play mode: %d points, cursor %d", c.store.Len(), c.store.Cursor())
		return nil
	}
	c.store.Reset()
	debug.Verbose("Edit mode: sequence cleared")
	return nil
}

// CycleSpeed selects the next speed for recording.
func (c *Controller) CycleSpeed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return ErrDisabled
	}
	next := c.speeds.Advance(c.store.SelectedSpeed())
	if err := c.store.SelectSpeed(next); err != nil {
		return err
	}
	debug.Verbose("Speed selected: %s", c.speeds.Label(next))
	return nil
}

// JogFine moves the focus by the fine step size; dir > 0 focuses nearer.
func (c *Controller) JogFine(ctx context.Context, dir int) error {
	return c.jog(ctx, sign(dir)*c.fine)
}

// JogCoarse moves the focus by the coarse step size; dir > 0 focuses nearer.
func (c *Controller) JogCoarse(ctx context.Context, dir int) error {
	return c.jog(ctx, sign(dir)*c.coarse)
}

// jog moves the lens right away in either mode. It does not touch the
// sequence.
func (c *Controller) jog(ctx context.Context, delta int) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	moved, err := c.motor.MoveFocus(ctx, delta, 0)
	c.mu.Lock()
	c.steps += moved
	c.mu.Unlock()
	return err
}

// RecordOrAdvance records a point in edit mode, or moves to the next
// point in play mode.
func (c *Controller) RecordOrAdvance(ctx context.Context) error {
	c.mu.RLock()
	enabled, play := c.enabled, c.modePlay
	c.mu.RUnlock()
	if !enabled {
		return ErrDisabled
	}
	if play {
		return c.advance(ctx)
	}
	return c.record()
}

// record appends the current position with the selected speed and saves.
// A full sequence returns sequence.ErrCapacityExceeded and changes nothing.
func (c *Controller) record() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := sequence.Point{
		Steps:      c.steps,
		SpeedIndex: c.store.SelectedSpeed(),
		DistanceMm: c.lens.DistanceMm(),
	}
	if err := c.store.Append(p); err != nil {
		return err
	}
	debug.Point(c.store.Len(), p.Steps, p.SpeedIndex, p.DistanceMm)
	c.save()
	return nil
}

// advance moves the cursor to the next point (wrapping to 1), saves it,
// then runs the transition to that point at the point's recorded speed.
// An empty sequence is a no-op.
func (c *Controller) advance(ctx context.Context) error {
	c.mu.Lock()
	if c.store.Len() == 0 {
		c.mu.Unlock()
		return nil
	}
	from := c.store.Cursor()
	if from < 1 || from > c.store.Len() {
		from = c.store.Len()
	}
	cursor := c.store.Advance()
	c.save()

	target, _ := c.store.At(cursor)
	delta := target.Steps - c.steps
	wait := c.speeds.Duration(target.SpeedIndex)
	c.from = from
	c.inTransition.Store(true)
	c.mu.Unlock()

	debug.Live("Transition %d>%d: %d steps at %s", from, cursor, delta, c.speeds.Label(target.SpeedIndex))
	moved, err := c.motor.MoveFocus(ctx, delta, wait)

	c.mu.Lock()
	c.steps += moved
	c.inTransition.Store(false)
	c.mu.Unlock()
	return err
}

// save persists the sequence; failures are logged, not returned.
// Callers hold c.mu.
func (c *Controller) save() {
	if err := c.store.Save(); err != nil {
		debug.Error(err)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cursor := c.store.Cursor()
	return State{
		Enabled:       c.enabled,
		ModePlay:      c.modePlay,
		InTransition:  c.inTransition.Load(),
		DisplayOn:     c.displayOn,
		CurrentSteps:  c.steps,
		SelectedSpeed: c.store.SelectedSpeed(),
		DistanceMm:    c.lens.DistanceMm(),
		Cursor:        cursor,
		Next:          c.store.WrapNext(cursor),
		From:          c.from,
		Points:        c.store.Points(),
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
