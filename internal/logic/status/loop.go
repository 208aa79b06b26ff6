package status

import (
	"context"
	"time"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/hw/display"
	"github.com/cjeanneret/FocusRail/internal/logic/focus"
)

// Source provides state snapshots. *focus.Controller implements it.
type Source interface {
	Snapshot() focus.State
}

// Loop periodically formats the state and draws it. It only reads state.
type Loop struct {
	Source    Source
	Formatter Formatter
	Display   display.Display
	Interval  time.Duration
	Position  display.Position
	Style     display.Style
	OnStart   func() // called once before the first frame
}

// Run draws a frame right away and then on every tick until ctx is done.
// Draw failures are logged and do not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if l.OnStart != nil {
		l.OnStart()
	}
	debug.Info("Status loop started (every %s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		l.Tick()
		select {
		case <-ctx.Done():
			debug.Info("Status loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick draws one frame.
func (l *Loop) Tick() {
	line := l.Formatter.Format(l.Source.Snapshot())
	if err := l.Display.Draw(line, l.Position, l.Style); err != nil {
		debug.Error(err)
	}
}
