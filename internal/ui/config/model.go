package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/remote"
	"github.com/nhle/taskboard/internal/theme"
)

// ConfigMode represents the current state of the settings view.
type ConfigMode int

const (
	ModeForm           ConfigMode = iota // Editing the store settings
	ModeValidating                       // Testing connection
	ModeValidateResult                   // Show validation result
)

// SavedMsg is emitted once the new settings reached the store successfully.
type SavedMsg struct {
	Config model.AppConfig
	Token  string
}

// CancelMsg signals the settings view should close without changes.
type CancelMsg struct{}

// ValidateResultMsg carries the result of a connection validation attempt.
type ValidateResultMsg struct {
	Err error
}

// Model is the Bubble Tea model for the store settings UI.
type Model struct {
	mode ConfigMode
	base model.AppConfig

	form *huh.Form

	// Form field values (huh binds to these)
	formBaseURL      string
	formToken        string
	formGuestPrefix  string
	formMemberPrefix string
	formTimeout      string
	formPoll         string

	validError error
	spinner    spinner.Model

	keys          *keys.KeyMap
	width, height int
}

// New creates a new settings view model.
func New(k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeForm,
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Open fills the form from cfg and the stored token.
func (m *Model) Open(cfg model.AppConfig, token string) tea.Cmd {
	m.base = cfg
	m.formBaseURL = cfg.Store.BaseURL
	m.formToken = token
	m.formGuestPrefix = cfg.Store.GuestPrefix
	m.formMemberPrefix = cfg.Store.MemberPrefix
	m.formTimeout = strconv.Itoa(cfg.Store.TimeoutSec)
	m.formPoll = strconv.Itoa(cfg.Display.PollIntervalSec)
	m.validError = nil
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns the current mode.
func (m Model) Mode() ConfigMode {
	return m.mode
}

// Config returns the settings as currently entered.
func (m Model) Config() model.AppConfig {
	cfg := m.base
	cfg.Store.BaseURL = strings.TrimRight(strings.TrimSpace(m.formBaseURL), "/")
	cfg.Store.GuestPrefix = strings.Trim(strings.TrimSpace(m.formGuestPrefix), "/")
	cfg.Store.MemberPrefix = strings.Trim(strings.TrimSpace(m.formMemberPrefix), "/")
	if n, err := strconv.Atoi(strings.TrimSpace(m.formTimeout)); err == nil {
		cfg.Store.TimeoutSec = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(m.formPoll)); err == nil {
		cfg.Display.PollIntervalSec = n
	}
	return cfg
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ValidateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		if msg.Err == nil {
			cfg, token := m.Config(), strings.TrimSpace(m.formToken)
			m.mode = ModeForm
			m.form = nil
			return m, func() tea.Msg { return SavedMsg{Config: cfg, Token: token} }
		}
		m.validError = msg.Err
		m.mode = ModeValidateResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			// Only allow escape during validation
			if key.Matches(msg, m.keys.Back) {
				m.mode = ModeForm
				cmd := m.rebuild()
				return m, cmd
			}
			return m, nil
		case ModeValidateResult:
			return m.handleValidateResultKeys(msg)
		}
	}

	return m.updateForm(msg)
}

// handleValidateResultKeys processes key events on the validation result screen.
func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		cmd := m.rebuild()
		return m, cmd
	case "r":
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.validate())
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.validate())
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// rebuild returns to the form keeping what was entered.
func (m *Model) rebuild() tea.Cmd {
	m.mode = ModeForm
	m.validError = nil
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Store URL").
				Description("Root of the document store").
				Placeholder("https://board-default-rtdb.example.com").
				Value(&m.formBaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Auth token").
				Description("Leave empty for an open store").
				EchoMode(huh.EchoModePassword).
				Value(&m.formToken),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Guest prefix").
				Value(&m.formGuestPrefix).
				Validate(validateRequired("Guest prefix")),
			huh.NewInput().
				Title("Member prefix").
				Description("{user} is replaced with the user ID").
				Value(&m.formMemberPrefix).
				Validate(validateMemberPrefix),
			huh.NewInput().
				Title("Request timeout (seconds)").
				Value(&m.formTimeout).
				Validate(validateNumber("Timeout", 1)),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Description("0 disables automatic refresh").
				Value(&m.formPoll).
				Validate(validateNumber("Poll interval", 0)),
		),
	).WithWidth(m.formWidth())
}

// validate reads the guest contacts with the new settings. A missing
// collection is fine; transport and auth failures are not.
func (m Model) validate() tea.Cmd {
	cfg, token := m.Config(), strings.TrimSpace(m.formToken)
	return func() tea.Msg {
		timeout := time.Duration(cfg.Store.TimeoutSec) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		c := remote.NewClient(cfg.Store.BaseURL, remote.WithTimeout(timeout), remote.WithAuthToken(token))
		var raw json.RawMessage
		_, err := c.WithPrefix(cfg.Store.GuestPrefix).Get(ctx, "contacts", &raw)
		return ValidateResultMsg{Err: err}
	}
}

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		if m.form == nil {
			return ""
		}
		title := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1).
			Render("Store settings")
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(lipgloss.JoinVertical(lipgloss.Left, title, m.form.View()))
	}
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Testing connection to %s...\n\nPress esc to cancel.",
		m.spinner.View(), m.Config().Store.BaseURL,
	)

	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	errStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorRed)
	content := errStyle.Render("Connection failed") + "\n\n" +
		m.validError.Error() + "\n\n" +
		lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render("r retry | enter/esc edit settings")

	return style.Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("Store URL is required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	return nil
}

func validateMemberPrefix(s string) error {
	if err := validateRequired("Member prefix")(s); err != nil {
		return err
	}
	if !strings.Contains(s, "{user}") {
		return fmt.Errorf("Member prefix must contain {user}")
	}
	return nil
}

func validateNumber(fieldName string, minimum int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a whole number", fieldName)
		}
		if n < minimum {
			return fmt.Errorf("%s must be at least %d", fieldName, minimum)
		}
		return nil
	}
}
