package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-addition/host"
	"go-addition/instrument"
	"go-addition/midi"
	"go-addition/theme"
	"go-addition/widgets"
)

// layoutBounds holds cached layout info
type layoutBounds struct {
	gridTop int
}

type Model struct {
	Manager   *host.Manager
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme
	Backend   string
	Step      float64 // fundamental step for +/-

	quitting bool
	pressed  *instrument.Cell // cell held by the mouse
	bounds   *layoutBounds
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(manager *host.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme, backend string, step float64) Model {
	return Model{
		Manager:   manager,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Backend:   backend,
		Step:      step,
		bounds:    &layoutBounds{},
	}
}

func ListenForUpdates(manager *host.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Manager)}
	if m.DeviceMgr != nil {
		cmds = append(cmds, ListenForDevices(m.DeviceMgr))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "+", "=":
			m.Manager.SetFundamental(m.Manager.Snapshot().Fundamental + m.Step)

		case "-", "_":
			m.Manager.SetFundamental(m.Manager.Snapshot().Fundamental - m.Step)

		case "r":
			m.Manager.Refresh()

		case "c":
			m.Manager.Redraw()
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case DeviceEventMsg:
		m.Manager.HandleDevice(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

// handleMouse turns clicks on the virtual grid into key press/release
func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		if cell, ok := m.hitTest(msg.X, msg.Y); ok {
			m.pressed = &cell
			m.Manager.Key(cell.X, cell.Y, 1)
		}
	case tea.MouseActionRelease:
		if m.pressed != nil {
			m.Manager.Key(m.pressed.X, m.pressed.Y, 0)
			m.pressed = nil
		}
	}
}

func (m Model) hitTest(x, y int) (instrument.Cell, bool) {
	cx, cy, ok := widgets.GridCellAt(x, y-m.bounds.gridTop, instrument.GridWidth, instrument.GridHeight)
	return instrument.Cell{X: cx, Y: cy}, ok
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	state := m.Manager.Snapshot()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	deviceStatus := ""
	if m.Manager.GridID() != "" {
		deviceStatus = " LP:X"
	}

	header := headerStyle.Render(fmt.Sprintf("go-addition  %s  fundamental:%.2fHz%s", m.Backend, state.Fundamental, deviceStatus))

	levels := make([][]int, instrument.GridHeight)
	for y := range levels {
		levels[y] = state.LEDs[y][:]
	}
	grid := widgets.RenderGrid(levels,
		func(level int) [3]uint8 { return m.Manager.Color(level) },
		func(level int) rune { return m.Theme.Symbol(level, state.DimLevel) })

	voices := m.renderVoices(state)

	help := dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeySection{{
		Keys: []widgets.KeyBinding{
			{Key: "click", Desc: "press a grid key"},
			{Key: "+/-", Desc: fmt.Sprintf("fundamental ±%.0fHz", m.Step)},
			{Key: "r", Desc: "refresh the control row"},
			{Key: "c", Desc: "clear and redraw the grid"},
			{Key: "q", Desc: "quit"},
		},
	}}))

	// Compute layout bounds
	m.bounds.gridTop = 1 + lipgloss.Height(header) + 1

	// Build output
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(grid)
	out.WriteString("\n\n")
	out.WriteString(voices)
	out.WriteString("\n\n")
	out.WriteString(help)

	if state.LastError != nil {
		out.WriteString("\n\n")
		out.WriteString(errStyle.Render("last error: " + state.LastError.Error()))
	}

	return out.String()
}

func (m Model) renderVoices(state host.State) string {
	mapper := instrument.NewMapper(state.Fundamental)
	var lines []string
	for i, v := range state.Voices {
		status := "off"
		if v.Gated {
			status = "sounding"
		} else if v.On {
			status = "on"
		}
		where := "-"
		if v.Placed {
			hz := mapper.Frequency(v.Position.X)
			pan, _ := mapper.Pan(v.Position.Y)
			where = fmt.Sprintf("(%2d,%d) %8.2fHz pan %+.2f", v.Position.X, v.Position.Y, hz, pan)
		}
		lines = append(lines, fmt.Sprintf("  v%d %-9s %s", i+1, status, where))
	}
	return strings.Join(lines, "\n")
}
