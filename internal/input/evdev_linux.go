//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cjeanneret/FocusRail/internal/debug"
)

// EvdevSource reads key presses from a Linux input device.
type EvdevSource struct {
	path string
	keys map[int]Command
}

// NewEvdevSource creates a source for the device at path. An empty key
// table uses DefaultEvdevKeys.
func NewEvdevSource(path string, keys map[string]int) (*EvdevSource, error) {
	if len(keys) == 0 {
		keys = DefaultEvdevKeys()
	}
	bound, err := bindings(keys)
	if err != nil {
		return nil, fmt.Errorf("evdev keys: %w", err)
	}
	return &EvdevSource{path: path, keys: bound}, nil
}

// Run offers a command for every bound key press until ctx is done.
// The device is polled with epoll so cancellation is noticed promptly.
func (s *EvdevSource) Run(ctx context.Context, out chan<- Command) error {
	fd, err := unix.Open(s.path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer unix.Close(fd)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		return fmt.Errorf("epoll_ctl_add %s: %w", s.path, err)
	}
	debug.Info("Reading keys from %s", s.path)

	const pollMs = 200
	ready := make([]unix.EpollEvent, 1)
	buf := make([]byte, 64*inputEventSize)

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := unix.EpollWait(epfd, ready, pollMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}
		if n == 0 {
			continue
		}
		if ready[0].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			return fmt.Errorf("device error/hangup: %s", s.path)
		}

		read, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("read %s: %w", s.path, err)
		}
		for _, cmd := range keyCommands(decodeEvents(buf[:read]), s.keys) {
			Offer(out, cmd)
		}
	}
}
