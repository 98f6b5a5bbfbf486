// Package tui provides a Bubble Tea picker for browsing recorded sessions.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/ttycap/internal/history"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	exitOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	exitFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Model is the root Bubble Tea model for the session picker.
type Model struct {
	entries  []history.Entry
	cursor   int
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	// Selected is set when the user confirms a row; nil after cancel.
	Selected *history.Entry
}

// New creates a picker over the given entries (expected newest first).
func New(entries []history.Entry) Model {
	return Model{entries: entries}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Title plus hint line bracket the list.
		m.viewport = viewport.New(msg.Width, max(1, msg.Height-3))
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Selected = nil
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.entries) > 0 {
				e := m.entries[m.cursor]
				m.Selected = &e
			}
			return m, tea.Quit
		}
	}

	if m.ready {
		m.viewport.SetContent(m.renderRows())
		m.scrollToCursor()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("ttycap sessions"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("↑/↓ move · enter replay · q quit"))
	return b.String()
}

func (m *Model) renderRows() string {
	if len(m.entries) == 0 {
		return dimStyle.Render("no recordings yet — run 'ttycap record' first")
	}
	var b strings.Builder
	for i, e := range m.entries {
		row := formatEntry(e)
		if i == m.cursor {
			row = selectedRowStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) scrollToCursor() {
	top := m.viewport.YOffset
	bottom := top + m.viewport.Height - 1
	if m.cursor < top {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor > bottom {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func formatEntry(e history.Entry) string {
	cmd := e.Command
	if cmd == "" {
		cmd = "(shell)"
	}
	exit := exitOKStyle.Render("ok")
	if e.ExitCode != 0 {
		exit = exitFailStyle.Render(fmt.Sprintf("exit %d", e.ExitCode))
	}
	return fmt.Sprintf("%s  %-24s %s  %s",
		timeStyle.Render(e.StartTime.Format(time.DateTime)),
		truncate(cmd, 24),
		dimStyle.Render(e.Transcript),
		exit,
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
