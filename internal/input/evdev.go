package input

import (
	"bytes"
	"encoding/binary"
)

// Linux input event constants (linux/input-event-codes.h).
const (
	evKey      = 0x01
	keyPressed = 1
)

// DefaultEvdevKeys binds commands to keys of a standard keyboard or
// keypad, laid out like the camera buttons: I = info, arrows, Q, Enter =
// set, R = rate, P = play.
func DefaultEvdevKeys() map[string]int {
	return map[string]int{
		"toggle_enabled":    23,  // KEY_I
		"jog_fine_far":      103, // KEY_UP
		"jog_fine_near":     108, // KEY_DOWN
		"jog_coarse_far":    106, // KEY_RIGHT
		"jog_coarse_near":   105, // KEY_LEFT
		"toggle_mode":       16,  // KEY_Q
		"record_or_advance": 28,  // KEY_ENTER
		"cycle_speed":       19,  // KEY_R
		"toggle_display":    25,  // KEY_P
	}
}

// inputEvent mirrors struct input_event:
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
// The timeval fields are longs, so the event is 24 bytes on 64-bit kernels
// and 16 bytes on 32-bit ones.
type inputEvent struct {
	Sec   eventTime
	Usec  eventTime
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeEvents parses every complete event in data. A trailing partial
// event is ignored.
func decodeEvents(data []byte) []inputEvent {
	n := len(data) / inputEventSize
	events := make([]inputEvent, 0, n)
	reader := bytes.NewReader(nil)
	for i := 0; i < n; i++ {
		reader.Reset(data[i*inputEventSize : (i+1)*inputEventSize])
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// keyCommands returns the commands bound to key presses in events.
// Releases and autorepeat are ignored.
func keyCommands(events []inputEvent, keys map[int]Command) []Command {
	var out []Command
	for _, ev := range events {
		if ev.Type != evKey || ev.Value != keyPressed {
			continue
		}
		if cmd, ok := keys[int(ev.Code)]; ok {
			out = append(out, cmd)
		}
	}
	return out
}
