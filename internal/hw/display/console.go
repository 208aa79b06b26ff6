package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console prints the status line to a writer each time it changes.
// Nothing is printed while the display is off.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	on   bool
	last string
}

// NewConsole creates a console display that starts switched on.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, on: true}
}

func (c *Console) SetPower(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = on
	c.last = ""
	return nil
}

func (c *Console) Draw(line string, _ Position, _ Style) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.on || line == c.last {
		return nil
	}
	c.last = line
	if _, err := fmt.Fprintln(c.out, strings.TrimRight(line, " ")); err != nil {
		return fmt.Errorf("console draw: %w", err)
	}
	return nil
}
