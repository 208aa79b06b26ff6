package motion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/hw/stepper"
	"github.com/cjeanneret/FocusRail/internal/logic/geometry"
)

// FocusDrive moves the lens focus ring through the focus stepper and
// reports the resulting focus distance. It sits between the sequence
// logic and the low-level motor driver.
type FocusDrive struct {
	motor    *stepper.Stepper
	lens     *geometry.Lens
	position atomic.Int64 // steps since startup, updated per pulse
}

func NewFocusDrive(motor *stepper.Stepper, lens *geometry.Lens) *FocusDrive {
	return &FocusDrive{
		motor: motor,
		lens:  lens,
	}
}

// MoveFocus moves the focus by deltaSteps, pausing wait after every step.
// It blocks until the move is complete and returns the steps actually moved.
func (d *FocusDrive) MoveFocus(ctx context.Context, deltaSteps int, wait time.Duration) (int, error) {
	if deltaSteps == 0 {
		return 0, nil
	}
	debug.Move(deltaSteps, wait)

	if err := d.motor.Enable(); err != nil {
		return 0, err
	}
	return d.motor.MoveSteps(ctx, deltaSteps, wait, func(dir int) {
		d.position.Add(int64(dir))
	})
}

// Position returns the drive's own step count since startup.
func (d *FocusDrive) Position() int {
	return int(d.position.Load())
}

// DistanceMm returns the live focus distance. Safe to call during a move.
func (d *FocusDrive) DistanceMm() int {
	return d.lens.DistanceMm(d.Position())
}

// Release disables the motor driver so the focus ring can be turned by hand.
func (d *FocusDrive) Release() error {
	return d.motor.Disable()
}
