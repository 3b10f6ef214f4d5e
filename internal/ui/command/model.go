package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/theme"
)

// Names of the palette commands.
const (
	NameBoard      = "board"
	NameSummary    = "summary"
	NameContacts   = "contacts"
	NameSettings   = "settings"
	NameRefresh    = "refresh"
	NameNewTask    = "new task"
	NameNewContact = "new contact"
	NameLogin      = "login"
	NameLogout     = "logout"
	NameQuit       = "quit"
)

// Names lists every command in the order the palette suggests them.
var Names = []string{
	NameBoard, NameSummary, NameContacts, NameSettings, NameRefresh,
	NameNewTask, NameNewContact, NameLogin, NameLogout, NameQuit,
}

// Command is a parsed palette entry.
type Command struct {
	Name string
	Args []string
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Command Command
}

// ErrorMsg is emitted when the input does not parse.
type ErrorMsg struct {
	Err error
}

// Parse turns palette input into a Command. Two-word commands are matched
// before single-word ones, and "login" takes a user ID followed by an
// optional display name.
func Parse(input string) (Command, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	raw := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return Command{}, invalid("is empty")
	}

	if len(fields) >= 2 {
		two := fields[0] + " " + fields[1]
		if two == NameNewTask || two == NameNewContact {
			return Command{Name: two}, nil
		}
	}

	switch fields[0] {
	case NameBoard, NameSummary, NameContacts, NameSettings, NameRefresh, NameLogout, NameQuit:
		return Command{Name: fields[0]}, nil
	case NameLogin:
		if len(raw) < 2 {
			return Command{}, invalid("login needs a user id")
		}
		return Command{Name: NameLogin, Args: raw[1:]}, nil
	}

	return Command{}, invalid(fmt.Sprintf("unknown command %q", fields[0]))
}

func invalid(message string) error {
	verr := apperrors.NewValidationError()
	verr.Add("command", message)
	return verr
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			input := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if input == "" {
				return m, nil
			}
			cmd, err := Parse(input)
			if err != nil {
				return m, func() tea.Msg { return ErrorMsg{Err: err} }
			}
			return m, func() tea.Msg { return CommandMsg{Command: cmd} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()
	hint := theme.HelpStyle.MarginTop(1).Render(strings.Join(Names, " · "))

	content := lipgloss.JoinVertical(lipgloss.Left, title, input, hint)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
