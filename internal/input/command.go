// Package input turns physical inputs into controller commands and routes
// them to the focus controller one at a time.
package input

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCommand is returned for command names or values that do not
// exist.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a logical controller command, independent of the button or
// key that produced it.
type Command int

const (
	ToggleEnabled Command = iota + 1
	JogFineNear
	JogFineFar
	JogCoarseNear
	JogCoarseFar
	ToggleMode
	RecordOrAdvance
	CycleSpeed
	ToggleDisplay
)

var commandNames = map[Command]string{
	ToggleEnabled:   "toggle_enabled",
	JogFineNear:     "jog_fine_near",
	JogFineFar:      "jog_fine_far",
	JogCoarseNear:   "jog_coarse_near",
	JogCoarseFar:    "jog_coarse_far",
	ToggleMode:      "toggle_mode",
	RecordOrAdvance: "record_or_advance",
	CycleSpeed:      "cycle_speed",
	ToggleDisplay:   "toggle_display",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ParseCommand returns the command with the given configuration name.
func ParseCommand(name string) (Command, error) {
	for c, n := range commandNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Commands lists every command in declaration order.
func Commands() []Command {
	out := make([]Command, 0, len(commandNames))
	for c := range commandNames {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// bindings parses a {command name: code} table into {code: command}.
func bindings(table map[string]int) (map[int]Command, error) {
	out := make(map[int]Command, len(table))
	for name, code := range table {
		cmd, err := ParseCommand(name)
		if err != nil {
			return nil, err
		}
		if prev, dup := out[code]; dup {
			return nil, fmt.Errorf("code %d bound to both %s and %s", code, prev, cmd)
		}
		out[code] = cmd
	}
	return out, nil
}
