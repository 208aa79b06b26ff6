//go:build !linux

package input

import (
	"context"
	"errors"
)

// EvdevSource is only available on Linux.
type EvdevSource struct{}

// NewEvdevSource always fails outside Linux.
func NewEvdevSource(path string, keys map[string]int) (*EvdevSource, error) {
	return nil, errors.New("evdev input requires linux")
}

func (s *EvdevSource) Run(ctx context.Context, out chan<- Command) error {
	return errors.New("evdev input requires linux")
}
