package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"modbus-rtu-tools/tester"
	"modbus-rtu-tools/version"
)

// --- STYLES ---
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	statusKeyStyle = lipgloss.NewStyle().Bold(true)

	changedStyle = lipgloss.NewStyle().Background(lipgloss.Color("202")).Foreground(lipgloss.Color("0"))

	addrColStyle  = lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Padding(0, 1)
	labelColStyle = lipgloss.NewStyle().Width(24).Padding(0, 1)
	decColStyle   = lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Padding(0, 1)
	hexColStyle   = lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Padding(0, 1)
)

// highlight register rows for this long after a change
const changeHighlightWindow = 3 * time.Second

type tickMsg time.Time

// Model renders the register table, status pane and event log from a
// shared State on a 250ms tick.
type Model struct {
	state         *State
	target        string
	viewport      viewport.Model
	ready         bool
	lastLogRender string
}

func NewModel(state *State, target string) Model {
	return Model{state: state, target: target}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		statusPaneHeight := 8
		registerPaneHeight := tester.RegisterCount + 4
		footerHeight := 1
		verticalMargin := statusPaneHeight + int(registerPaneHeight) + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			m.viewport.Style = baseStyle
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMargin
		}
		m.lastLogRender = ""

	case tickMsg:
		_, _, _, events := m.state.Snapshot()
		newRender := strings.Join(events, "\n")
		if m.lastLogRender != newRender {
			atBottom := m.viewport.AtBottom()
			m.viewport.SetContent(newRender)
			if atBottom {
				m.viewport.GotoBottom()
			}
			m.lastLogRender = newRender
		}
		return m, tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatusPane(),
		m.renderRegisterPane(),
		m.viewport.View(),
		m.renderFooter(),
	)
}

func (m Model) renderStatusPane() string {
	_, _, status, _ := m.state.Snapshot()
	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Modbus RTU Monitor"),
		statusKeyStyle.Render("Version:  ")+version.Version,
		statusKeyStyle.Render("Target:   ")+m.target,
		statusKeyStyle.Render("Polls:    ")+fmt.Sprintf("%d", m.state.PollCount.Load()),
		statusKeyStyle.Render("Errors:   ")+fmt.Sprintf("%d", m.state.ErrorCount.Load()),
		statusKeyStyle.Render("Status:   ")+status,
	)
	return baseStyle.Width(m.viewport.Width - 2).Render(content)
}

func (m Model) renderRegisterPane() string {
	current, lastChange, _, _ := m.state.Snapshot()

	var content strings.Builder
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		addrColStyle.Render("Register"),
		labelColStyle.Render("Label"),
		decColStyle.Render("Value"),
		hexColStyle.Render("Hex"),
	)
	content.WriteString(titleStyle.Render(header) + "\n")

	for addr := uint16(0); addr < tester.RegisterCount; addr++ {
		value := current[addr]
		line := lipgloss.JoinHorizontal(lipgloss.Left,
			addrColStyle.Render(fmt.Sprintf("%d", addr)),
			labelColStyle.Render(tester.RegisterLabel(int(addr))),
			decColStyle.Render(fmt.Sprintf("%d", value)),
			hexColStyle.Render(fmt.Sprintf("0x%04X", value)),
		)

		style := lipgloss.NewStyle()
		if t, ok := lastChange[addr]; ok && time.Since(t) < changeHighlightWindow {
			style = changedStyle
		}
		content.WriteString(style.Render(line) + "\n")
	}

	return baseStyle.Width(m.viewport.Width - 2).Render(strings.TrimRight(content.String(), "\n"))
}

func (m Model) renderFooter() string {
	return "Use arrow keys or mouse to scroll the event log | (q) to quit"
}
