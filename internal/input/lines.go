package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cjeanneret/FocusRail/internal/debug"
)

// LineSource reads one command name per line, for driving the controller
// from a terminal or a script. Blank lines and lines starting with # are
// skipped; unknown names are logged.
type LineSource struct {
	r io.Reader
}

// NewLineSource creates a source reading from r.
func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

// Run sends commands until the reader is exhausted or ctx is done. The
// blocking read continues in the background after ctx is done.
func (s *LineSource) Run(ctx context.Context, out chan<- Command) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errs <- nil
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-errs; err != nil {
					return fmt.Errorf("read commands: %w", err)
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			cmd, err := ParseCommand(line)
			if err != nil {
				debug.Error(err)
				continue
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
