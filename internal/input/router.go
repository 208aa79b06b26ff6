package input

import (
	"context"
	"errors"
	"fmt"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/logic/focus"
)

// Controller is the command surface of the focus controller.
type Controller interface {
	Running() bool
	ToggleEnabled()
	JogFine(ctx context.Context, dir int) error
	JogCoarse(ctx context.Context, dir int) error
	ToggleMode() error
	RecordOrAdvance(ctx context.Context) error
	CycleSpeed() error
	ToggleDisplay() error
}

// Router maps commands onto the controller and reports whether each one
// was consumed. Unconsumed inputs belong to the host.
type Router struct {
	ctrl Controller
}

// NewRouter creates a router for ctrl.
func NewRouter(ctrl Controller) *Router {
	return &Router{ctrl: ctrl}
}

// Handle runs cmd to completion, including any motor move.
//
// Nothing is consumed before the controller is running. The enable and
// display toggles are always consumed after that; every other command
// only while the controller is enabled. A consumed command may still
// return an error, such as sequence.ErrCapacityExceeded.
func (r *Router) Handle(ctx context.Context, cmd Command) (bool, error) {
	if !r.ctrl.Running() {
		return false, nil
	}

	var err error
	switch cmd {
	case ToggleEnabled:
		r.ctrl.ToggleEnabled()
		return true, nil
	case ToggleDisplay:
		return true, r.ctrl.ToggleDisplay()
	case JogFineNear:
		err = r.ctrl.JogFine(ctx, 1)
	case JogFineFar:
		err = r.ctrl.JogFine(ctx, -1)
	case JogCoarseNear:
		err = r.ctrl.JogCoarse(ctx, 1)
	case JogCoarseFar:
		err = r.ctrl.JogCoarse(ctx, -1)
	case ToggleMode:
		err = r.ctrl.ToggleMode()
	case RecordOrAdvance:
		err = r.ctrl.RecordOrAdvance(ctx)
	case CycleSpeed:
		err = r.ctrl.CycleSpeed()
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}

	if errors.Is(err, focus.ErrDisabled) {
		return false, nil
	}
	return true, err
}

// Handler handles one command.
type Handler interface {
	Handle(ctx context.Context, cmd Command) (bool, error)
}

// Dispatch feeds commands to h one at a time until ctx is done or cmds is
// closed. Command errors are logged; they never stop the dispatcher.
// With an unbuffered cmds, Offer only succeeds while Dispatch is idle.
func Dispatch(ctx context.Context, h Handler, cmds <-chan Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			consumed, err := h.Handle(ctx, cmd)
			debug.Command(cmd.String(), consumed)
			if err != nil {
				debug.Error(fmt.Errorf("%s: %w", cmd, err))
			}
		}
	}
}

// Offer hands cmd to the dispatcher without waiting. A press made while a
// command is still running is dropped, never queued.
func Offer(out chan<- Command, cmd Command) bool {
	select {
	case out <- cmd:
		return true
	default:
		debug.Info("Dropped %s: busy", cmd)
		return false
	}
}
