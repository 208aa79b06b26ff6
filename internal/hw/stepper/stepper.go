package stepper

import (
	"context"
	"time"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/hw/gpio"
)

// Config holds the hardware configuration for the focus stepper motor.
type Config struct {
	StepPin       int
	DirPin        int
	EnablePin     int // A4988 ENABLE pin (BCM). 0 = not used. Active LOW (LOW=enabled).
	StepsPerRev   int
	Microstepping int
	StepDelay     time.Duration // delay per half-cycle of STEP pulse. Total step = 2*StepDelay.
}

// Stepper drives a step/dir motor driver (A4988 or compatible).
type Stepper struct {
	gpio  gpio.Driver
	cfg   Config
	delay time.Duration // delay between STEP pulse half-cycles
	sleep func(time.Duration)
}

// NewStepper creates a new stepper motor controller.
// cfg.StepDelay: if 0, defaults to 1ms.
func NewStepper(g gpio.Driver, cfg Config) *Stepper {
	_ = g.SetupPin(cfg.StepPin, gpio.Output)
	_ = g.SetupPin(cfg.DirPin, gpio.Output)

	delay := cfg.StepDelay
	if delay <= 0 {
		delay = 1 * time.Millisecond
	}

	s := &Stepper{
		gpio:  g,
		cfg:   cfg,
		delay: delay,
		sleep: time.Sleep,
	}

	// A4988 ENABLE: active LOW. LOW = enabled, HIGH = disabled.
	if cfg.EnablePin > 0 {
		_ = g.SetupPin(cfg.EnablePin, gpio.Output)
		_ = g.WritePin(cfg.EnablePin, gpio.Low) // enable by default
	}

	return s
}

// MoveSteps moves the motor by a number of steps (positive or negative),
// pausing wait after every full step to pace the move. onStep, when not
// nil, is called after each completed step with +1 or -1.
//
// The move stops early if ctx is cancelled; the returned count is the
// signed number of steps actually performed.
func (s *Stepper) MoveSteps(ctx context.Context, steps int, wait time.Duration, onStep func(dir int)) (int, error) {
	if steps == 0 {
		return 0, nil
	}

	dirLevel := gpio.High
	dir := 1
	count := steps
	if steps < 0 {
		dirLevel = gpio.Low
		dir = -1
		count = -steps
	}

	debug.Printf("Stepper: moving %d steps (dir=%d, wait=%v) on pin %d", count, dir, wait, s.cfg.StepPin)

	if err := s.gpio.WritePin(s.cfg.DirPin, dirLevel); err != nil {
		return 0, err
	}

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return dir * i, err
		}
		if err := s.stepPulse(); err != nil {
			return dir * i, err
		}
		if onStep != nil {
			onStep(dir)
		}
		if wait > 0 {
			s.sleep(wait)
		}
	}
	return steps, nil
}

func (s *Stepper) stepPulse() error {
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	s.sleep(s.delay)
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		return err
	}
	s.sleep(s.delay)
	return nil
}

// Enable turns on the motor driver (A4988 ENABLE=LOW). The focus ring holds position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). The focus ring can be turned by hand.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}
