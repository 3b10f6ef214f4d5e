package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/projection"
	"github.com/nhle/taskboard/internal/theme"
)

// OpenTaskMsg asks the parent to show a task's detail view.
type OpenTaskMsg struct {
	TaskID string
}

// NewTaskMsg asks the parent to open an empty task form.
type NewTaskMsg struct{}

// EditTaskMsg asks the parent to open the task form for a task.
type EditTaskMsg struct {
	TaskID string
}

// DeleteTaskMsg asks the parent to delete a task.
type DeleteTaskMsg struct {
	TaskID string
}

// MoveTaskMsg asks the parent to move a task to another column.
type MoveTaskMsg struct {
	TaskID string
	Column model.Column
}

// Model is the kanban board view.
type Model struct {
	keys        *keys.KeyMap
	tasks       []model.Task
	contacts    map[string]model.Contact
	board       projection.Board
	unknown     int
	col         int
	row         int
	searchMode  bool
	searchInput textinput.Model
	query       string
	bar         progress.Model
	width       int
	height      int
}

// New creates a new board model.
func New(k *keys.KeyMap, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "find task..."
	si.Prompt = "/ "
	si.Width = width - 4

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)

	m := Model{
		keys:        k,
		contacts:    make(map[string]model.Contact),
		searchInput: si,
		bar:         bar,
		width:       width,
		height:      height,
	}
	m.regroup()
	return m
}

// SetData replaces the tasks and contacts shown on the board. The cursor
// stays on the same task when it still exists.
func (m *Model) SetData(tasks []model.Task, contacts []model.Contact) {
	selected, hadSelection := m.SelectedTask()

	m.tasks = tasks
	m.contacts = make(map[string]model.Contact, len(contacts))
	for _, c := range contacts {
		m.contacts[c.Name] = c
	}
	m.regroup()

	if hadSelection {
		m.focusTask(selected.ID)
	}
	m.clampCursor()
}

// UnknownCount returns how many tasks were left off the board because their
// column is not recognised.
func (m Model) UnknownCount() int {
	return m.unknown
}

// Query returns the active search text.
func (m Model) Query() string {
	return m.query
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SelectedTask returns the task under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	if m.col < 0 || m.col >= len(m.board.Columns) {
		return model.Task{}, false
	}
	tasks := m.board.Columns[m.col].Tasks
	if m.row < 0 || m.row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.row], true
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.searchMode {
		return m.handleSearchKeys(keyMsg)
	}
	return m.handleNormalKeys(keyMsg)
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.query = ""
		m.regroup()
		m.clampCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if q := m.searchInput.Value(); q != m.query {
		m.query = q
		m.regroup()
		m.clampCursor()
	}
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.col = max(m.col-1, 0)
		m.clampCursor()

	case key.Matches(msg, m.keys.Right):
		m.col = min(m.col+1, len(m.board.Columns)-1)
		m.clampCursor()

	case key.Matches(msg, m.keys.Up):
		m.row = max(m.row-1, 0)

	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clampCursor()

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query)
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return NewTaskMsg{} }

	case key.Matches(msg, m.keys.Select):
		if t, ok := m.SelectedTask(); ok {
			return m, func() tea.Msg { return OpenTaskMsg{TaskID: t.ID} }
		}

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.SelectedTask(); ok {
			return m, func() tea.Msg { return EditTaskMsg{TaskID: t.ID} }
		}

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.SelectedTask(); ok {
			return m, func() tea.Msg { return DeleteTaskMsg{TaskID: t.ID} }
		}

	case key.Matches(msg, m.keys.MoveLeft):
		return m, m.move(func(c model.Column) model.Column { return c.Prev() })

	case key.Matches(msg, m.keys.MoveRight):
		return m, m.move(func(c model.Column) model.Column { return c.Next() })
	}

	return m, nil
}

// move emits a MoveTaskMsg for the selected task and follows it with the
// cursor.
func (m *Model) move(to func(model.Column) model.Column) tea.Cmd {
	t, ok := m.SelectedTask()
	if !ok {
		return nil
	}
	target := to(t.BoardCategory)
	if target == t.BoardCategory {
		return nil
	}
	return func() tea.Msg { return MoveTaskMsg{TaskID: t.ID, Column: target} }
}

func (m *Model) regroup() {
	var errs []error
	m.board, errs = projection.GroupTasksByColumn(projection.SearchTasks(m.tasks, m.query))
	m.unknown = len(errs)
}

func (m *Model) focusTask(id string) {
	for ci, col := range m.board.Columns {
		for ri, t := range col.Tasks {
			if t.ID == id {
				m.col, m.row = ci, ri
				return
			}
		}
	}
}

func (m *Model) clampCursor() {
	if m.col >= len(m.board.Columns) {
		m.col = len(m.board.Columns) - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	n := 0
	if m.col < len(m.board.Columns) {
		n = len(m.board.Columns[m.col].Tasks)
	}
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// View renders the board view.
func (m Model) View() string {
	var top string
	switch {
	case m.searchMode:
		top = lipgloss.NewStyle().Padding(0, 1).Render(m.searchInput.View())
	case m.query != "":
		top = theme.DimmedStyle.Padding(0, 1).Render(fmt.Sprintf("filter: %q (/ to change, esc in search to clear)", m.query))
	}

	colWidth := m.columnWidth()
	cols := make([]string, len(m.board.Columns))
	for i, col := range m.board.Columns {
		cols[i] = m.renderColumn(col, i == m.col, colWidth)
	}
	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	if top == "" {
		return board
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, board)
}

func (m Model) columnWidth() int {
	n := len(model.Columns)
	w := m.width/n - 4
	if w < 16 {
		w = 16
	}
	return w
}

func (m Model) renderColumn(col projection.ColumnTasks, focused bool, width int) string {
	heading := theme.ColumnTitleStyle(col.Column).
		Render(fmt.Sprintf("%s (%d)", col.Column.Title(), len(col.Tasks)))

	lines := []string{heading, ""}
	if len(col.Tasks) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("No tasks"))
	}
	for i, t := range col.Tasks {
		lines = append(lines, m.renderCard(t, focused && i == m.row, width))
	}

	style := theme.ColumnStyle
	if focused {
		style = theme.FocusedColumnStyle
	}
	return style.
		Width(width).
		Height(max(m.height-4, 3)).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderCard(t model.Task, selected bool, width int) string {
	var b strings.Builder

	title := truncate(t.Title, width-2)
	if selected {
		b.WriteString(theme.SelectedItemStyle.Render(title))
	} else {
		b.WriteString(theme.ListItemStyle.Bold(true).Render(title))
	}
	b.WriteString("\n")

	meta := theme.DimmedStyle.Render(truncate(t.Category, width-12)) + " " +
		theme.PriorityStyle(t.Priority).Render(string(t.Priority))
	b.WriteString(theme.ListItemStyle.Render(meta))
	b.WriteString("\n")

	if p := projection.ProgressOf(t); p.HasPercent {
		bar := m.bar
		bar.Width = max(width-10, 4)
		line := bar.ViewAs(float64(p.Percent)/100) + fmt.Sprintf(" %d/%d", p.Completed, p.Total)
		b.WriteString(theme.ListItemStyle.Render(line))
		b.WriteString("\n")
	}

	if len(t.Assignees) > 0 {
		var avatars []string
		for _, name := range t.Assignees {
			// Assignees are stored by name and may outlive the contact.
			if _, ok := m.contacts[name]; !ok && len(m.contacts) > 0 {
				avatars = append(avatars, theme.DimmedStyle.Render(model.Initials(name)))
				continue
			}
			avatars = append(avatars, theme.AvatarStyle(model.ColorTag(name)).Render(model.Initials(name)))
		}
		b.WriteString(theme.ListItemStyle.Render(strings.Join(avatars, " ")))
		b.WriteString("\n")
	}

	return b.String()
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = width - 4
}

func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
