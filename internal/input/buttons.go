package input

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/hw/gpio"
)

// ButtonSource polls push buttons wired between a GPIO pin and ground.
// A press is a debounced High to Low change.
type ButtonSource struct {
	gpio     gpio.Driver
	pins     []int
	commands map[int]Command
	poll     time.Duration
	debounce time.Duration
	state    map[int]*buttonState
}

type buttonState struct {
	stable    gpio.Level
	candidate gpio.Level
	since     time.Time
}

// NewButtonSource creates a source for a {command name: pin} table.
func NewButtonSource(g gpio.Driver, buttons map[string]int, poll, debounce time.Duration) (*ButtonSource, error) {
	bound, err := bindings(buttons)
	if err != nil {
		return nil, fmt.Errorf("buttons: %w", err)
	}
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	pins := make([]int, 0, len(bound))
	state := make(map[int]*buttonState, len(bound))
	for pin := range bound {
		pins = append(pins, pin)
		state[pin] = &buttonState{stable: gpio.High, candidate: gpio.High}
	}
	sort.Ints(pins)
	return &ButtonSource{
		gpio:     g,
		pins:     pins,
		commands: bound,
		poll:     poll,
		debounce: debounce,
		state:    state,
	}, nil
}

// Run configures the pins and polls them until ctx is done. Presses are
// offered to the dispatcher with Offer.
func (b *ButtonSource) Run(ctx context.Context, out chan<- Command) error {
	for _, pin := range b.pins {
		if err := b.gpio.SetupPin(pin, gpio.InputPullUp); err != nil {
			return fmt.Errorf("button pin %d: %w", pin, err)
		}
	}
	debug.Info("Polling %d buttons every %s", len(b.pins), b.poll)

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			cmds, err := b.scan(now)
			if err != nil {
				return err
			}
			for _, cmd := range cmds {
				Offer(out, cmd)
			}
		}
	}
}

// scan reads every pin once and returns the commands of buttons whose
// press has been stable for the debounce period.
func (b *ButtonSource) scan(now time.Time) ([]Command, error) {
	var out []Command
	for _, pin := range b.pins {
		level, err := b.gpio.ReadPin(pin)
		if err != nil {
			return out, fmt.Errorf("read button pin %d: %w", pin, err)
		}
		st := b.state[pin]
		if level != st.candidate {
			st.candidate = level
			st.since = now
		}
		if st.candidate == st.stable || now.Sub(st.since) < b.debounce {
			continue
		}
		st.stable = st.candidate
		if st.stable == gpio.Low {
			out = append(out, b.commands[pin])
		}
	}
	return out, nil
}
