package app

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/remote"
	"github.com/nhle/taskboard/internal/repository"
	"github.com/nhle/taskboard/internal/session"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui"
	"github.com/nhle/taskboard/internal/ui/board"
	"github.com/nhle/taskboard/internal/ui/command"
	settingsview "github.com/nhle/taskboard/internal/ui/config"
	"github.com/nhle/taskboard/internal/ui/contactform"
	"github.com/nhle/taskboard/internal/ui/contacts"
	"github.com/nhle/taskboard/internal/ui/detail"
	helpview "github.com/nhle/taskboard/internal/ui/help"
	"github.com/nhle/taskboard/internal/ui/summary"
	"github.com/nhle/taskboard/internal/ui/taskform"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewSummary
	ViewContacts
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewContactForm
	ViewSettings
)

// defaultTimeout bounds a single repository call when the config sets none.
const defaultTimeout = 15 * time.Second

// Config wires the application to its store and identity.
type Config struct {
	// Client talks to the store root; the session prefix is applied on top.
	Client *remote.Client
	Store  model.StoreConfig

	// Sessions persists login state. It may be nil, in which case logins
	// last for the process only.
	Sessions *session.Manager
	Session  session.Session

	// PollInterval is how often the board reloads. Zero disables polling.
	PollInterval time.Duration

	// Timeout bounds each repository call made from the UI.
	Timeout time.Duration

	// Settings is the loaded configuration the settings view edits. When
	// ConfigPath is set, saved settings are written back to it.
	Settings   model.AppConfig
	ConfigPath string

	// Credentials holds the store token. It may be nil.
	Credentials *credential.Store
	StoreToken  string
}

// confirmation is a pending destructive action waiting for "y".
type confirmation struct {
	prompt string
	run    tea.Cmd
}

// Model is the root Bubble Tea model that manages view routing, layout and
// the link between the views and the repository.
type Model struct {
	cfg          Config
	session      session.Session
	repo         *repository.Repository
	poller       *appsync.Poller
	pollerGen    int
	currentView  ViewState
	previousView ViewState
	formReturn   ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	board        board.Model
	detail       detail.Model
	summary      summary.Model
	contacts     contacts.Model
	helpView     helpview.Model
	commandView  command.Model
	taskForm     taskform.Model
	contactForm  contactform.Model
	settings     settingsview.Model
	confirm      *confirmation
	errMessage   string
	notice       string
	ready        bool
	now          func() time.Time
}

// New creates the root application model.
func New(cfg Config) Model {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Settings.Store == (model.StoreConfig{}) {
		cfg.Settings.Store = cfg.Store
	}
	k := keys.DefaultKeyMap()

	m := Model{
		cfg:         cfg,
		currentView: ViewBoard,
		keys:        k,
		board:       board.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		summary:     summary.New(80, 24),
		contacts:    contacts.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		taskForm:    taskform.New(80, 24),
		contactForm: contactform.New(80, 24),
		settings:    settingsview.New(k, 80, 24),
		now:         time.Now,
	}
	m.bindSession(cfg.Session)
	return m
}

// bindSession points the repository and poller at the session's board.
func (m *Model) bindSession(s session.Session) {
	if m.poller != nil {
		m.poller.Stop()
	}
	m.session = s
	prefix := s.Prefix(m.cfg.Store)
	m.repo = repository.New(m.cfg.Client.WithPrefix(prefix))
	m.poller = appsync.New(m.repo, m.cfg.PollInterval)
	m.pollerGen++
	m.helpView.SetAbout(s.DisplayName(), m.cfg.Client.BaseURL()+"/"+prefix)
	m.summary.SetUser(s.DisplayName())
	m.refreshViews()
}

// Repository returns the repository for the current session.
func (m Model) Repository() *repository.Repository {
	return m.repo
}

// Session returns the current session.
func (m Model) Session() session.Session {
	return m.session
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// ErrorMessage returns the text in the error bar, if any.
func (m Model) ErrorMessage() string {
	return m.errMessage
}

// Init starts the poller, which performs the first load.
func (m Model) Init() tea.Cmd {
	return m.startPoller()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.BoardSize()
		m.board.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.summary.SetSize(w, h)
		m.contacts.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.contactForm.SetSize(w, h)
		m.settings.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case syncMsg:
		if msg.gen != m.pollerGen {
			// Result from a poller that belonged to a previous session.
			return m, nil
		}
		return m.handleSync(msg.result)

	case board.OpenTaskMsg:
		return m.openDetail(msg.TaskID), nil

	case board.NewTaskMsg:
		cmd := m.openTaskForm("")
		return m, cmd

	case board.EditTaskMsg:
		cmd := m.openTaskForm(msg.TaskID)
		return m, cmd

	case board.DeleteTaskMsg:
		return m.confirmDeleteTask(msg.TaskID), nil

	case board.MoveTaskMsg:
		return m, m.moveTask(msg.TaskID, msg.Column)

	case detail.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionEdit:
			cmd := m.openTaskForm(msg.TaskID)
			return m, cmd
		case detail.ActionDelete:
			return m.confirmDeleteTask(msg.TaskID), nil
		}
		return m, nil

	case detail.MoveMsg:
		return m, m.moveTask(msg.TaskID, msg.Column)

	case detail.ToggleSubtaskMsg:
		if t, ok := m.repo.Task(msg.TaskID); ok && msg.Index < len(t.Subtasks) {
			// Show the new state immediately; the repository applies it
			// before the write is acknowledged too.
			t.Subtasks[msg.Index].Done = msg.Done
			m.detail.SetTask(&t)
		}
		return m, m.setSubtaskDone(msg.TaskID, msg.Index, msg.Done)

	case contacts.NewContactMsg:
		cmd := m.openContactForm("")
		return m, cmd

	case contacts.EditContactMsg:
		cmd := m.openContactForm(msg.ContactID)
		return m, cmd

	case contacts.DeleteContactMsg:
		return m.confirmDeleteContact(msg.ContactID), nil

	case taskform.SubmitMsg:
		return m, m.submitTask(msg.Draft)

	case taskform.CancelMsg:
		m.taskForm.Close()
		m.currentView = m.formReturn
		return m, nil

	case contactform.SubmitMsg:
		return m, m.submitContact(msg.Draft)

	case contactform.CancelMsg:
		m.contactForm.Close()
		m.currentView = m.formReturn
		return m, nil

	case settingsview.SavedMsg:
		cmd := m.applySettings(msg.Config, msg.Token)
		return m, cmd

	case settingsview.CancelMsg:
		m.currentView = m.formReturn
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.errMessage = "Could not save settings: " + msg.err.Error()
		}
		return m, nil

	case taskSavedMsg:
		return m.handleTaskSaved(msg)

	case contactSavedMsg:
		return m.handleContactSaved(msg)

	case mutationDoneMsg:
		return m.handleMutation(msg), nil

	case sessionSavedMsg:
		if msg.err != nil {
			m.errMessage = "Could not remember the session: " + msg.err.Error()
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(msg.Command)
		return m, cmd

	case command.ErrorMsg:
		m.currentView = m.previousView
		m.errMessage = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		return m, tea.Quit
	}

	if m.confirm != nil {
		c := m.confirm
		m.confirm = nil
		if msg.String() == "y" || msg.String() == "Y" {
			return m, c.run
		}
		m.notice = "Cancelled"
		return m, nil
	}

	if m.capturingInput() {
		return m.updateActiveView(msg)
	}

	if msg.String() == "esc" && m.errMessage != "" {
		m.errMessage = ""
		return m, nil
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewBoard || m.currentView == ViewSummary || m.currentView == ViewContacts {
			m.poller.Stop()
			return m, tea.Quit
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd

	case "1":
		m.currentView = ViewBoard
		return m, nil

	case "2":
		m.currentView = ViewSummary
		return m, nil

	case "3":
		m.currentView = ViewContacts
		return m, nil

	case "r":
		m.notice = "Refreshing..."
		return m, m.poller.Refresh()

	case "s":
		if m.currentView == ViewBoard || m.currentView == ViewSummary || m.currentView == ViewContacts {
			cmd := m.openSettings()
			return m, cmd
		}

	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// capturingInput reports whether keys must go straight to the active view
// because it is reading text.
func (m Model) capturingInput() bool {
	switch m.currentView {
	case ViewTaskForm, ViewContactForm, ViewSettings:
		return true
	case ViewCommand:
		return true
	case ViewBoard:
		return m.board.Searching()
	case ViewContacts:
		return m.contacts.Filtering()
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewSummary:
		m.summary, cmd = m.summary.Update(msg)
	case ViewContacts:
		m.contacts, cmd = m.contacts.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewContactForm:
		m.contactForm, cmd = m.contactForm.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

func (m Model) handleSync(msg appsync.SyncResultMsg) (tea.Model, tea.Cmd) {
	wait := m.waitForSync()
	if msg.Error != nil {
		m.errMessage = "Sync failed: " + apperrors.UserMessage(msg.Error)
		return m, wait
	}

	if strings.HasPrefix(m.errMessage, "Sync failed") {
		m.errMessage = ""
	}
	m.notice = ""
	if msg.NewTaskCount > 0 {
		m.notice = fmt.Sprintf("%d new task(s)", msg.NewTaskCount)
	}
	m.refreshViews()

	// The task on the detail view may have been deleted elsewhere.
	if m.currentView == ViewDetail {
		if _, ok := m.repo.Task(m.detail.TaskID()); !ok {
			m.currentView = ViewBoard
		}
	}
	return m, wait
}

// refreshViews pushes the repository's current state into every view.
func (m *Model) refreshViews() {
	tasks := m.repo.Tasks()
	people := m.repo.Contacts()

	m.board.SetData(tasks, people)
	m.summary.SetData(tasks, m.now())
	m.contacts.SetData(people, tasks)
	m.taskForm.SetContacts(people)

	if id := m.detail.TaskID(); id != "" {
		if t, ok := m.repo.Task(id); ok {
			m.detail.SetTask(&t)
		}
	}
}

func (m Model) openDetail(taskID string) Model {
	t, ok := m.repo.Task(taskID)
	if !ok {
		m.errMessage = apperrors.UserMessage(&apperrors.NotFoundError{Kind: "task", ID: taskID})
		return m
	}
	m.detail.SetTask(&t)
	m.currentView = ViewDetail
	return m
}

// openTaskForm opens the task form, editing taskID when it is not empty.
func (m *Model) openTaskForm(taskID string) tea.Cmd {
	m.formReturn = m.currentView
	if taskID == "" {
		m.currentView = ViewTaskForm
		return m.taskForm.StartCreate()
	}
	t, ok := m.repo.Task(taskID)
	if !ok {
		m.errMessage = apperrors.UserMessage(&apperrors.NotFoundError{Kind: "task", ID: taskID})
		return nil
	}
	m.currentView = ViewTaskForm
	return m.taskForm.StartEdit(t)
}

func (m *Model) openContactForm(contactID string) tea.Cmd {
	m.formReturn = m.currentView
	if contactID == "" {
		m.currentView = ViewContactForm
		return m.contactForm.StartCreate()
	}
	c, ok := m.repo.Contact(contactID)
	if !ok {
		m.errMessage = apperrors.UserMessage(&apperrors.NotFoundError{Kind: "contact", ID: contactID})
		return nil
	}
	m.currentView = ViewContactForm
	return m.contactForm.StartEdit(c)
}

func (m Model) confirmDeleteTask(taskID string) Model {
	t, ok := m.repo.Task(taskID)
	if !ok {
		return m
	}
	m.confirm = &confirmation{
		prompt: fmt.Sprintf("Delete task %q? (y/n)", t.Title),
		run:    m.deleteTask(taskID),
	}
	return m
}

func (m Model) confirmDeleteContact(contactID string) Model {
	c, ok := m.repo.Contact(contactID)
	if !ok {
		return m
	}
	m.confirm = &confirmation{
		prompt: fmt.Sprintf("Delete contact %q? (y/n)", c.Name),
		run:    m.deleteContact(contactID),
	}
	return m
}

func (m Model) handleTaskSaved(msg taskSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if apperrors.IsValidation(msg.err) {
			cmd := m.taskForm.SubmitFailed(msg.err)
			return m, cmd
		}
		m.errMessage = apperrors.UserMessage(msg.err)
		cmd := m.taskForm.SubmitFailed(msg.err)
		return m, cmd
	}

	m.taskForm.Close()
	m.errMessage = ""
	m.notice = fmt.Sprintf("Saved %q", msg.task.Title)
	m.currentView = m.formReturn
	m.refreshViews()
	return m, nil
}

func (m Model) handleContactSaved(msg contactSavedMsg) (tea.Model, tea.Cmd) {
	if apperrors.IsPartialUpdate(msg.err) {
		m.contactForm.Close()
		m.errMessage = apperrors.UserMessage(msg.err)
		m.currentView = m.formReturn
		m.refreshViews()
		return m, nil
	}
	if msg.err != nil {
		if !apperrors.IsValidation(msg.err) {
			m.errMessage = apperrors.UserMessage(msg.err)
		}
		cmd := m.contactForm.SubmitFailed(msg.err)
		return m, cmd
	}

	m.contactForm.Close()
	m.errMessage = ""
	m.notice = fmt.Sprintf("Saved %q", msg.contact.Name)
	m.currentView = m.formReturn
	m.refreshViews()
	return m, nil
}

func (m Model) handleMutation(msg mutationDoneMsg) Model {
	if msg.err != nil {
		m.errMessage = apperrors.UserMessage(msg.err)
	} else {
		m.notice = msg.done
	}
	m.refreshViews()

	if msg.op == opDeleteTask && m.currentView == ViewDetail && m.detail.TaskID() == msg.id {
		m.currentView = ViewBoard
	}
	return m
}

// executeCommand handles a parsed command from the command palette.
func (m *Model) executeCommand(c command.Command) tea.Cmd {
	switch c.Name {
	case command.NameBoard:
		m.currentView = ViewBoard
	case command.NameSummary:
		m.currentView = ViewSummary
	case command.NameContacts:
		m.currentView = ViewContacts
	case command.NameSettings:
		return m.openSettings()
	case command.NameRefresh:
		m.notice = "Refreshing..."
		return m.poller.Refresh()
	case command.NameNewTask:
		return m.openTaskForm("")
	case command.NameNewContact:
		return m.openContactForm("")
	case command.NameLogin:
		u := session.User{ID: c.Args[0], Name: strings.Join(c.Args[1:], " ")}
		return m.switchSession(session.Member(u))
	case command.NameLogout:
		return m.switchSession(session.Guest())
	case command.NameQuit:
		m.poller.Stop()
		return tea.Quit
	}
	return nil
}

// switchSession moves the client to another board and restarts polling.
func (m *Model) switchSession(s session.Session) tea.Cmd {
	m.bindSession(s)
	m.currentView = ViewBoard
	m.notice = "Signed in as " + s.DisplayName()
	return tea.Batch(m.startPoller(), m.persistSession(s))
}

// openSettings shows the settings form filled with the current values.
func (m *Model) openSettings() tea.Cmd {
	m.formReturn = m.currentView
	m.currentView = ViewSettings
	return m.settings.Open(m.cfg.Settings, m.cfg.StoreToken)
}

// applySettings points the app at the store described by cfg and keeps
// the current session.
func (m *Model) applySettings(cfg model.AppConfig, token string) tea.Cmd {
	timeout := time.Duration(cfg.Store.TimeoutSec) * time.Second
	m.cfg.Settings = cfg
	m.cfg.Store = cfg.Store
	m.cfg.StoreToken = token
	m.cfg.Timeout = timeout
	m.cfg.PollInterval = time.Duration(cfg.Display.PollIntervalSec) * time.Second
	m.cfg.Client = remote.NewClient(cfg.Store.BaseURL, remote.WithTimeout(timeout), remote.WithAuthToken(token))

	m.bindSession(m.session)
	m.currentView = m.formReturn
	m.notice = "Settings saved"
	return tea.Batch(m.startPoller(), m.persistSettings(cfg, token))
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.Header(m.headerTitle(), m.syncStatus())
	content := m.renderContent()

	var footer string
	switch {
	case m.confirm != nil:
		footer = m.layout.Footer(m.confirm.prompt, true)
	case m.errMessage != "":
		footer = m.layout.Footer(m.errMessage+" (esc to dismiss)", true)
	default:
		footer = m.layout.Footer(m.keyHints(), false)
	}

	return m.layout.Compose(header, content, footer)
}

func (m Model) headerTitle() string {
	tabs := []struct {
		view  ViewState
		label string
	}{
		{ViewBoard, "1 Board"},
		{ViewSummary, "2 Summary"},
		{ViewContacts, "3 Contacts"},
	}
	parts := []string{"Taskboard"}
	for _, t := range tabs {
		label := t.label
		if m.currentView == t.view || (t.view == ViewBoard && m.currentView == ViewDetail) {
			label = lipgloss.NewStyle().Underline(true).Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.board.View()
	case ViewDetail:
		return m.detail.View()
	case ViewSummary:
		return m.summary.View()
	case ViewContacts:
		return m.contacts.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewContactForm:
		return m.contactForm.View()
	case ViewSettings:
		return m.settings.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the session and sync state.
func (m Model) syncStatus() string {
	who := theme.AvatarStyle(model.ColorTag(m.session.DisplayName())).Render(m.session.Initials()) +
		" " + m.session.DisplayName()

	st := m.poller.Status()
	switch st.State {
	case appsync.SyncRunning:
		return who + " · syncing"
	case appsync.SyncError:
		return who + " · offline"
	}
	if st.LastSync.IsZero() {
		return who
	}
	return who + " · synced " + st.LastSync.Format("15:04")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	hints := m.viewHints()
	if m.notice != "" {
		return m.notice + " | " + hints
	}
	return hints
}

func (m Model) viewHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | j/k select | space toggle | </> move | e edit | d delete"
	case ViewSummary:
		return "1 board | 3 contacts | r refresh | q quit"
	case ViewContacts:
		return "n new | e edit | d delete | / filter | q quit"
	case ViewTaskForm:
		return "tab next field | enter continue | esc cancel"
	case ViewContactForm:
		return "tab next field | enter submit | esc cancel"
	case ViewSettings:
		return "tab next field | enter save and test | esc cancel"
	default:
		if n := m.board.UnknownCount(); n > 0 {
			return fmt.Sprintf("%d task(s) in unknown columns hidden | ? help", n)
		}
		return "q quit | ? help | n new | / search | enter open | </> move | s settings | : command"
	}
}
