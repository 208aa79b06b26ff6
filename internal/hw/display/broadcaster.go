package display

import "sync"

// Frame is one status update sent to subscribers.
type Frame struct {
	Line string
	On   bool
}

// Broadcaster is a display that forwards every frame to subscribers, such
// as the terminal host. Slow subscribers miss frames; they never block
// the render loop. A missed frame is sent again on the next draw, so every
// subscriber catches up with the current line.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan Frame]struct{}
	on      bool
	last    string
	stale   bool // some subscriber missed the last frame
}

// NewBroadcaster creates a broadcaster that starts switched on.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan Frame]struct{}),
		on:      true,
	}
}

// Subscribe returns a channel that receives frames and a cleanup function.
// The current line, if any, is the first frame received.
// The caller must call the cleanup when done.
func (b *Broadcaster) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	if b.last != "" {
		ch <- Frame{Line: b.last, On: b.on}
	}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

func (b *Broadcaster) SetPower(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.on = on
	b.send(Frame{Line: b.last, On: on})
	return nil
}

func (b *Broadcaster) Draw(line string, _ Position, _ Style) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if line == b.last && !b.stale {
		return nil
	}
	b.last = line
	b.send(Frame{Line: line, On: b.on})
	return nil
}

// send must be called with mu held.
func (b *Broadcaster) send(f Frame) {
	b.stale = false
	for ch := range b.clients {
		select {
		case ch <- f:
		default:
			b.stale = true
		}
	}
}
