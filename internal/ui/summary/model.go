package summary

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/projection"
	"github.com/nhle/taskboard/internal/theme"
)

// Model is the dashboard view.
type Model struct {
	summary model.Summary
	user    string
	now     time.Time
	width   int
	height  int
}

// New creates a new summary view model.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// SetData recomputes the summary from tasks as of now.
func (m *Model) SetData(tasks []model.Task, now time.Time) {
	m.summary = projection.ComputeSummary(tasks, now)
	m.now = now
}

// SetUser sets the name used in the greeting.
func (m *Model) SetUser(name string) {
	m.user = name
}

// Summary returns the last computed summary.
func (m Model) Summary() model.Summary {
	return m.summary
}

// Update handles messages for the summary view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the summary view.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{titleStyle.Render(greeting(m.now, m.user))}

	var tiles []string
	for _, c := range model.Columns {
		tiles = append(tiles, tile(theme.ColumnTitleStyle(c), c.Title(), fmt.Sprint(m.summary.Count(c))))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, tiles...))

	deadline := "No upcoming deadline"
	if m.summary.NextDeadline != "" {
		deadline = m.summary.NextDeadline
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
		tile(theme.PriorityStyle(model.PriorityUrgent), "Urgent", fmt.Sprint(m.summary.Urgent)),
		tile(lipgloss.NewStyle().Bold(true), "Upcoming deadline", deadline),
		tile(lipgloss.NewStyle().Bold(true), "Tasks on board", fmt.Sprint(m.summary.Total)),
	))

	if len(m.summary.UrgentDates) > 0 {
		sections = append(sections, theme.DimmedStyle.Render("Urgent due: "+strings.Join(m.summary.UrgentDates, ", ")))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func tile(style lipgloss.Style, label, value string) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		style.Render(value),
		theme.DimmedStyle.Render(label),
	)
	return theme.BorderStyle.
		Padding(0, 2).
		MarginRight(1).
		Align(lipgloss.Center).
		Width(22).
		Render(content)
}

func greeting(now time.Time, user string) string {
	var part string
	switch h := now.Hour(); {
	case h < 12:
		part = "Good morning"
	case h < 18:
		part = "Good afternoon"
	default:
		part = "Good evening"
	}
	if user == "" {
		return part
	}
	return part + ", " + user
}

// SetSize updates the summary view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
