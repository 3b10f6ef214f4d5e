package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/projection"
	"github.com/nhle/taskboard/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// Actions carried by ActionMsg.
const (
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// ActionMsg signals the parent to execute an action on the current task.
type ActionMsg struct {
	Action string
	TaskID string
}

// ToggleSubtaskMsg asks the parent to flip a subtask's done flag.
type ToggleSubtaskMsg struct {
	TaskID string
	Index  int
	Done   bool
}

// MoveMsg asks the parent to move the task to another column.
type MoveMsg struct {
	TaskID string
	Column model.Column
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	cursor   int
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// TaskID returns the ID of the task on screen, or "".
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// Cursor returns the index of the highlighted subtask.
func (m Model) Cursor() int {
	return m.cursor
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.task == nil {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	id := m.task.ID
	switch {
	case key.Matches(keyMsg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.refresh()
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.task.Subtasks)-1 {
			m.cursor++
			m.refresh()
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Toggle):
		if m.cursor < len(m.task.Subtasks) {
			idx := m.cursor
			done := !m.task.Subtasks[idx].Done
			return m, func() tea.Msg { return ToggleSubtaskMsg{TaskID: id, Index: idx, Done: done} }
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Edit):
		return m, func() tea.Msg { return ActionMsg{Action: ActionEdit, TaskID: id} }

	case key.Matches(keyMsg, m.keys.Delete):
		return m, func() tea.Msg { return ActionMsg{Action: ActionDelete, TaskID: id} }

	case key.Matches(keyMsg, m.keys.MoveLeft):
		return m, m.move(m.task.BoardCategory.Prev())

	case key.Matches(keyMsg, m.keys.MoveRight):
		return m, m.move(m.task.BoardCategory.Next())
	}

	// Delegate to viewport for scrolling (pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) move(to model.Column) tea.Cmd {
	if to == m.task.BoardCategory {
		return nil
	}
	id := m.task.ID
	return func() tea.Msg { return MoveMsg{TaskID: id, Column: to} }
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	colBadge := theme.ColumnTitleStyle(task.BoardCategory).Render(task.BoardCategory.Title())
	if !task.BoardCategory.Valid() {
		colBadge = theme.DimmedStyle.Render(string(task.BoardCategory))
	}
	priBadge := theme.PriorityStyle(task.Priority).Render(string(task.Priority))
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, colBadge, "  ", priBadge))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%-10s %s", metaStyle.Render(label), valStyle.Render(value)))
	}

	if task.Category != "" {
		meta("Category:", task.Category)
	}
	if task.Date != "" {
		meta("Due:", projection.FormatDate(task.Date))
	}
	if len(task.Assignees) > 0 {
		names := make([]string, len(task.Assignees))
		for i, n := range task.Assignees {
			names[i] = theme.AvatarStyle(model.ColorTag(n)).Render(model.Initials(n)) + " " + n
		}
		meta("Assigned:", strings.Join(names, "  "))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	sections = append(sections, headerStyle.Render("Description"))
	body := task.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	sections = append(sections, "", separator, "")

	p := projection.ProgressOf(*task)
	header := "Subtasks"
	if p.HasPercent {
		header = fmt.Sprintf("Subtasks %d/%d (%d%%)", p.Completed, p.Total, p.Percent)
	}
	sections = append(sections, headerStyle.Render(header))

	if len(task.Subtasks) == 0 {
		sections = append(sections, theme.DimmedStyle.Render("No subtasks"))
	}
	for i, st := range task.Subtasks {
		box := "[ ]"
		if st.Done {
			box = "[x]"
		}
		line := box + " " + st.Name
		if i == m.cursor {
			sections = append(sections, theme.SelectedItemStyle.Render(line))
		} else {
			sections = append(sections, theme.ListItemStyle.Render(line))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTask updates the task being displayed and re-renders the content. The
// subtask cursor is kept when the same task is shown again.
func (m *Model) SetTask(t *model.Task) {
	if t == nil || m.task == nil || m.task.ID != t.ID {
		m.cursor = 0
		m.viewport.GotoTop()
	}
	if t != nil {
		c := t.Clone()
		m.task = &c
		if m.cursor >= len(c.Subtasks) {
			m.cursor = max(len(c.Subtasks)-1, 0)
		}
	} else {
		m.task = nil
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.refresh()
}
