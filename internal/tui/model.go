// Package tui hosts the controller in a terminal: it shows the status
// line and turns key presses into commands.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cjeanneret/FocusRail/internal/hw/display"
	"github.com/cjeanneret/FocusRail/internal/input"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	screenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("0")).
			Padding(0, 1)
	offStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// DefaultKeys binds terminal keys to commands, laid out like the camera
// buttons.
func DefaultKeys() map[string]input.Command {
	return map[string]input.Command{
		"i":     input.ToggleEnabled,
		"up":    input.JogFineFar,
		"down":  input.JogFineNear,
		"right": input.JogCoarseFar,
		"left":  input.JogCoarseNear,
		"q":     input.ToggleMode,
		"enter": input.RecordOrAdvance,
		" ":     input.RecordOrAdvance,
		"r":     input.CycleSpeed,
		"p":     input.ToggleDisplay,
	}
}

type frameMsg display.Frame

type framesClosedMsg struct{}

// Model is the bubbletea model of the terminal host.
type Model struct {
	frames  <-chan display.Frame
	cmds    chan<- input.Command
	keys    map[string]input.Command
	line    string
	on      bool
	last    string
	dropped int
}

// New creates a model that shows frames and sends commands on cmds.
// Commands are never blocked on: a key pressed while the dispatcher is busy
// is dropped.
func New(frames <-chan display.Frame, cmds chan<- input.Command) Model {
	return Model{
		frames: frames,
		cmds:   cmds,
		keys:   DefaultKeys(),
		on:     true,
	}
}

func waitFrame(frames <-chan display.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg(f)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitFrame(m.frames)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.line = msg.Line
		m.on = msg.On
		return m, waitFrame(m.frames)
	case framesClosedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		cmd, ok := m.keys[msg.String()]
		if !ok {
			return m, nil
		}
		select {
		case m.cmds <- cmd:
			m.last = cmd.String()
		default:
			m.dropped++
			m.last = cmd.String() + " (busy, dropped)"
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("FocusRail"))
	b.WriteString("\n\n")
	if m.on {
		b.WriteString(screenStyle.Render(m.line))
	} else {
		b.WriteString(offStyle.Render("(display off)"))
	}
	b.WriteString("\n\n")
	if m.last != "" {
		b.WriteString(helpStyle.Render("last: " + m.last))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("i enable  ↑↓ fine  ←→ coarse  q mode  enter set  r speed  p display  esc quit"))
	b.WriteString("\n")
	return b.String()
}

// Line returns the status line currently shown.
func (m Model) Line() string {
	return m.line
}
