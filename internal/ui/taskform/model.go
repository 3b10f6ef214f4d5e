package taskform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/draft"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// SubmitMsg asks the parent to submit the draft.
type SubmitMsg struct {
	Draft *draft.Draft
}

// CancelMsg is dispatched when the user abandons the form.
type CancelMsg struct{}

type phase int

const (
	phaseFields phase = iota
	phaseSubtasks
)

// Model is the Bubble Tea model for the task create/edit form. The huh
// form binds directly to the draft's exported fields; the draft lives on
// the heap so the pointers stay valid across model copies.
type Model struct {
	form     *huh.Form
	draft    *draft.Draft
	contacts []model.Contact
	phase    phase
	input    textinput.Model
	cursor   int
	errMsg   string
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "add a subtask and press enter"
	ti.Prompt = "+ "
	ti.Width = width - 8

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// SetContacts sets the contacts offered as assignees.
func (m *Model) SetContacts(contacts []model.Contact) {
	m.contacts = contacts
}

// Draft returns the draft being edited, or nil when the form is idle.
func (m Model) Draft() *draft.Draft {
	return m.draft
}

// StartCreate opens the form on an empty draft.
func (m *Model) StartCreate() tea.Cmd {
	return m.start(draft.New())
}

// StartEdit opens the form on a draft copied from t.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	return m.start(draft.Open(draft.ModeEdit, &t))
}

func (m *Model) start(d *draft.Draft) tea.Cmd {
	m.draft = d
	m.cursor = 0
	m.errMsg = ""
	m.input.Reset()
	return m.showFields()
}

func (m *Model) showFields() tea.Cmd {
	m.phase = phaseFields
	m.input.Blur()
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) showSubtasks() tea.Cmd {
	m.phase = phaseSubtasks
	return m.input.Focus()
}

// SubmitFailed returns the form to editing after a rejected submit. The
// draft keeps its contents.
func (m *Model) SubmitFailed(err error) tea.Cmd {
	if m.draft == nil {
		return nil
	}
	m.errMsg = errorText(m.draft.Errors(), err)
	if len(m.draft.Errors()) > 0 {
		return m.showFields()
	}
	return nil
}

// Close drops the draft and resets the form.
func (m *Model) Close() {
	m.draft = nil
	m.form = nil
	m.errMsg = ""
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.draft == nil {
		return m, nil
	}
	if m.draft.State() == draft.StateSubmitting {
		return m, nil
	}

	if m.phase == phaseSubtasks {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			return m.handleSubtaskKeys(keyMsg)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		cmd := m.showSubtasks()
		return m, cmd
	case huh.StateAborted:
		d := m.draft
		d.Cancel()
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

func (m Model) handleSubtaskKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	d := m.draft
	editing := d.EditingIndex() >= 0

	switch msg.String() {
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if editing {
			if err := d.ConfirmEditSubtask(value); err != nil {
				m.errMsg = err.Error()
			}
			m.input.Reset()
			return m, nil
		}
		if value != "" {
			d.AddSubtask(value)
			m.input.Reset()
			m.cursor = 0
			return m, nil
		}
		cmd := m.submit()
		return m, cmd

	case "ctrl+s":
		cmd := m.submit()
		return m, cmd

	case "esc":
		if editing {
			_ = d.CancelEditSubtask()
			m.input.Reset()
			return m, nil
		}
		cmd := m.showFields()
		return m, cmd

	case "up":
		m.cursor = max(m.cursor-1, 0)
		return m, nil

	case "down":
		m.cursor = min(m.cursor+1, max(len(d.Subtasks())-1, 0))
		return m, nil

	case "ctrl+e":
		subs := d.Subtasks()
		if m.cursor < len(subs) {
			if err := d.BeginEditSubtask(m.cursor); err == nil {
				m.input.SetValue(subs[m.cursor].Name)
				m.input.CursorEnd()
			}
		}
		return m, nil

	case "ctrl+d":
		if err := d.RemoveSubtask(m.cursor); err == nil {
			m.cursor = min(m.cursor, max(len(d.Subtasks())-1, 0))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	d := m.draft
	m.errMsg = ""
	return func() tea.Msg { return SubmitMsg{Draft: d} }
}

// View renders the task form.
func (m Model) View() string {
	if m.draft == nil {
		return ""
	}

	titleText := "Add Task"
	if m.draft.Mode() == draft.ModeEdit {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{titleStyle.Render(titleText)}

	if m.draft.State() == draft.StateSubmitting {
		sections = append(sections, theme.DimmedStyle.Render("Saving..."))
		return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	}

	if m.errMsg != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errMsg))
	}

	if m.phase == phaseFields && m.form != nil {
		sections = append(sections, m.form.View())
	} else {
		if hint := m.draft.DateHint(); hint != "" {
			sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(hint))
		}
		sections = append(sections, m.renderSubtasks())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderSubtasks() string {
	d := m.draft
	subs := d.Subtasks()

	header := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Subtasks (%d)", len(subs)))
	lines := []string{header, m.input.View(), ""}

	for i, st := range subs {
		line := "• " + st.Name
		if st.Done {
			line = "✓ " + st.Name
		}
		if i == d.EditingIndex() {
			line += theme.DimmedStyle.Render("  (editing)")
		}
		if i == m.cursor {
			lines = append(lines, theme.SelectedItemStyle.Render(line))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(line))
		}
	}

	lines = append(lines, "", theme.HelpStyle.Render(
		"enter add · ctrl+e edit · ctrl+d remove · enter on empty or ctrl+s save · esc back"))
	return strings.Join(lines, "\n")
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 8
}

func (m *Model) buildForm() *huh.Form {
	d := m.draft

	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("Enter a title").
			Value(&d.Title),
		huh.NewText().
			Title("Description").
			Placeholder("Enter a description").
			Value(&d.Description),
		huh.NewInput().
			Title("Due date").
			Description("Today or later").
			Placeholder("YYYY-MM-DD").
			Value(&d.Date),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(
				huh.NewOption("Urgent", model.PriorityUrgent),
				huh.NewOption("Medium", model.PriorityMedium),
				huh.NewOption("Low", model.PriorityLow),
			).
			Value(&d.Priority),
		m.categoryField(),
	}
	if f := m.assigneeField(); f != nil {
		fields = append(fields, f)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) categoryField() huh.Field {
	d := m.draft
	opts := make([]huh.Option[string], 0, len(model.Categories)+1)
	opts = append(opts, huh.NewOption("Select task category", ""))
	known := false
	for _, c := range model.Categories {
		opts = append(opts, huh.NewOption(c, c))
		if c == d.Category {
			known = true
		}
	}
	// Keep categories written by other clients selectable.
	if !known && d.Category != "" {
		opts = append(opts, huh.NewOption(d.Category, d.Category))
	}
	return huh.NewSelect[string]().
		Title("Category").
		Options(opts...).
		Value(&d.Category)
}

func (m *Model) assigneeField() huh.Field {
	d := m.draft
	names := make(map[string]bool)
	var opts []huh.Option[string]
	for _, c := range m.contacts {
		if names[c.Name] {
			continue
		}
		names[c.Name] = true
		opts = append(opts, huh.NewOption(c.Name, c.Name))
	}
	// Assignees whose contact was deleted stay visible so they can be removed.
	for _, a := range d.Assignees {
		if !names[a] {
			names[a] = true
			opts = append(opts, huh.NewOption(a+" (removed)", a))
		}
	}
	if len(opts) == 0 {
		return nil
	}
	return huh.NewMultiSelect[string]().
		Title("Assigned to").
		Options(opts...).
		Value(&d.Assignees)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

func errorText(fields map[string]string, err error) string {
	if len(fields) == 0 {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fields[name]
	}
	return strings.Join(parts, "; ")
}
