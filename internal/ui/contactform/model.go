package contactform

import (
	"errors"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/draft"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// SubmitMsg asks the parent to submit the contact draft.
type SubmitMsg struct {
	Draft *draft.ContactDraft
}

// CancelMsg is dispatched when the user abandons the form.
type CancelMsg struct{}

// Model is the Bubble Tea model for the contact create/edit form.
type Model struct {
	form   *huh.Form
	draft  *draft.ContactDraft
	errMsg string
	width  int
	height int
}

// New creates a new contact form model.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// Draft returns the draft being edited, or nil when the form is idle.
func (m Model) Draft() *draft.ContactDraft {
	return m.draft
}

// StartCreate opens the form on an empty contact.
func (m *Model) StartCreate() tea.Cmd {
	return m.start(draft.OpenContact(draft.ModeCreate, nil))
}

// StartEdit opens the form on a copy of c.
func (m *Model) StartEdit(c model.Contact) tea.Cmd {
	return m.start(draft.OpenContact(draft.ModeEdit, &c))
}

func (m *Model) start(d *draft.ContactDraft) tea.Cmd {
	m.draft = d
	m.errMsg = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// SubmitFailed reopens the form with the error shown above it.
func (m *Model) SubmitFailed(err error) tea.Cmd {
	if m.draft == nil {
		return nil
	}
	m.errMsg = errorText(err)
	m.form = m.buildForm()
	return m.form.Init()
}

// Close drops the draft and resets the form.
func (m *Model) Close() {
	m.draft = nil
	m.form = nil
	m.errMsg = ""
}

// Update handles messages for the contact form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.draft == nil {
		return m, nil
	}
	if m.draft.State() == draft.StateSubmitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		d := m.draft
		return m, func() tea.Msg { return SubmitMsg{Draft: d} }
	case huh.StateAborted:
		m.draft.Cancel()
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the contact form.
func (m Model) View() string {
	if m.form == nil || m.draft == nil {
		return ""
	}

	titleText := "Add contact"
	if m.draft.Mode() == draft.ModeEdit {
		titleText = "Edit contact"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{titleStyle.Render(titleText)}
	if m.errMsg != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errMsg))
	}
	if m.draft.State() == draft.StateSubmitting {
		sections = append(sections, theme.DimmedStyle.Render("Saving..."))
	} else {
		sections = append(sections, m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	d := m.draft
	w := min(max(m.width-4, 40), 80)

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Name").
				Value(&d.Name),
			huh.NewInput().
				Title("Email").
				Placeholder("Email").
				Value(&d.Email),
			huh.NewInput().
				Title("Phone").
				Placeholder("Phone").
				Value(&d.Phone),
		),
	).WithWidth(w)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	names := make([]string, 0, len(verr.Fields))
	for n := range verr.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = verr.Fields[n]
	}
	return strings.Join(parts, "; ")
}
