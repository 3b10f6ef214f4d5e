package contacts

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/projection"
	"github.com/nhle/taskboard/internal/theme"
)

// NewContactMsg asks the parent to open an empty contact form.
type NewContactMsg struct{}

// EditContactMsg asks the parent to open the contact form for a contact.
type EditContactMsg struct {
	ContactID string
}

// DeleteContactMsg asks the parent to delete a contact.
type DeleteContactMsg struct {
	ContactID string
}

// Model is the address book view: contacts grouped by initial on the left
// and the selected contact on the right.
type Model struct {
	keys        *keys.KeyMap
	contacts    []model.Contact
	tasks       []model.Task
	groups      []projection.LetterGroup
	flat        []model.Contact
	cursor      int
	filterMode  bool
	filterInput textinput.Model
	query       string
	width       int
	height      int
}

// New creates a new contacts view model.
func New(k *keys.KeyMap, width, height int) Model {
	fi := textinput.New()
	fi.Placeholder = "filter by name..."
	fi.Prompt = "/ "
	fi.Width = width/3 - 4

	return Model{
		keys:        k,
		filterInput: fi,
		width:       width,
		height:      height,
	}
}

// SetData replaces the contacts and the tasks used for assignment counts.
func (m *Model) SetData(contacts []model.Contact, tasks []model.Task) {
	selected, had := m.Selected()
	m.contacts = contacts
	m.tasks = tasks
	m.regroup()

	if had {
		for i, c := range m.flat {
			if c.ID == selected.ID {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()
}

// Groups returns the letter groups currently shown.
func (m Model) Groups() []projection.LetterGroup {
	return m.groups
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.filterMode
}

// Selected returns the contact under the cursor.
func (m Model) Selected() (model.Contact, bool) {
	if m.cursor < 0 || m.cursor >= len(m.flat) {
		return model.Contact{}, false
	}
	return m.flat[m.cursor], true
}

// Update handles messages for the contacts view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.filterMode {
		switch keyMsg.String() {
		case "enter":
			m.filterMode = false
			m.filterInput.Blur()
			return m, nil
		case "esc":
			m.filterMode = false
			m.filterInput.Blur()
			m.filterInput.Reset()
			m.query = ""
			m.regroup()
			m.clampCursor()
			return m, nil
		}

		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(keyMsg)
		if q := m.filterInput.Value(); q != m.query {
			m.query = q
			m.regroup()
			m.clampCursor()
		}
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)

	case key.Matches(keyMsg, m.keys.Down):
		m.cursor++
		m.clampCursor()

	case key.Matches(keyMsg, m.keys.Search):
		m.filterMode = true
		m.filterInput.SetValue(m.query)
		cmd := m.filterInput.Focus()
		return m, cmd

	case key.Matches(keyMsg, m.keys.New):
		return m, func() tea.Msg { return NewContactMsg{} }

	case key.Matches(keyMsg, m.keys.Edit), key.Matches(keyMsg, m.keys.Select):
		if c, ok := m.Selected(); ok {
			return m, func() tea.Msg { return EditContactMsg{ContactID: c.ID} }
		}

	case key.Matches(keyMsg, m.keys.Delete):
		if c, ok := m.Selected(); ok {
			return m, func() tea.Msg { return DeleteContactMsg{ContactID: c.ID} }
		}
	}
	return m, nil
}

func (m *Model) regroup() {
	m.groups = projection.GroupContactsByFirstLetter(projection.FilterContactsByQuery(m.contacts, m.query))
	m.flat = nil
	for _, g := range m.groups {
		m.flat = append(m.flat, g.Contacts...)
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.flat) {
		m.cursor = len(m.flat) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the contacts view.
func (m Model) View() string {
	listWidth := max(m.width/3, 24)
	list := lipgloss.NewStyle().Width(listWidth).Render(m.renderList())
	detail := theme.DetailPanelStyle.
		Width(max(m.width-listWidth-4, 20)).
		Render(m.renderDetail())
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m Model) renderList() string {
	var lines []string
	switch {
	case m.filterMode:
		lines = append(lines, m.filterInput.View(), "")
	case m.query != "":
		lines = append(lines, theme.DimmedStyle.Render(fmt.Sprintf("filter: %q", m.query)), "")
	}

	if len(m.flat) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("No contacts"))
		return strings.Join(lines, "\n")
	}

	letterStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	i := 0
	for _, g := range m.groups {
		lines = append(lines, letterStyle.Render(g.Letter))
		for _, c := range g.Contacts {
			avatar := theme.AvatarStyle(c.ColorTag()).Render(c.Initials())
			line := avatar + " " + c.Name
			if i == m.cursor {
				lines = append(lines, theme.SelectedItemStyle.Render(line))
			} else {
				lines = append(lines, theme.ListItemStyle.Render(line))
			}
			i++
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail() string {
	c, ok := m.Selected()
	if !ok {
		return theme.DimmedStyle.Render("Select a contact")
	}

	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	assigned := 0
	for _, t := range m.tasks {
		if t.IsAssigned(c.Name) {
			assigned++
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.AvatarStyle(c.ColorTag()).Render(c.Initials())+" "+nameStyle.Render(c.Name),
		"",
		metaStyle.Render("Email: ")+c.Email,
		metaStyle.Render("Phone: ")+c.Phone,
		metaStyle.Render("Tasks: ")+fmt.Sprint(assigned),
	)
}

// SetSize updates the contacts view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.filterInput.Width = width/3 - 4
}
