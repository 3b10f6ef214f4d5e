package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui/command"
)

// Model is the overlay listing the board's key bindings, its columns in
// pipeline order and the palette commands. It also shows who is signed in
// and which store the board reads.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	session string
	store   string
	width   int
	height  int
}

func New(k *keys.KeyMap, width, height int) Model {
	m := Model{keys: k, help: help.New()}
	m.help.ShowAll = true
	m.SetSize(width, height)
	return m
}

// Update ignores every message; the app closes the overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	columns := make([]string, len(model.Columns))
	for i, c := range model.Columns {
		columns[i] = c.Title()
	}

	sections := []string{
		heading.MarginBottom(1).Render("Board keys"),
		m.help.View(m.keys),
		heading.MarginTop(1).Render("Columns"),
		theme.DimmedStyle.Render(strings.Join(columns, " → ") + "   (" +
			m.keys.MoveLeft.Help().Key + " / " + m.keys.MoveRight.Help().Key + " moves a task)"),
		heading.MarginTop(1).Render("Commands"),
		theme.DimmedStyle.Render(strings.Join(command.Names, " · ")),
	}
	if m.session != "" {
		sections = append(sections, theme.DimmedStyle.
			MarginTop(1).
			Render("Signed in as "+m.session+" · store "+m.store))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

// SetAbout sets the session name and store location shown at the bottom.
func (m *Model) SetAbout(session, store string) {
	m.session = session
	m.store = store
}
