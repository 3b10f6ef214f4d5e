package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/docstore"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/remote"
	"github.com/nhle/taskboard/internal/session"
	"github.com/nhle/taskboard/internal/ui/board"
	"github.com/nhle/taskboard/internal/ui/command"
	settingsview "github.com/nhle/taskboard/internal/ui/config"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/tests/testutil"
)

func storeConfig() model.StoreConfig {
	return model.StoreConfig{GuestPrefix: "guest", MemberPrefix: "users/{user}"}
}

func seed(t *testing.T, s *docstore.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "guest/tasks/task_1", map[string]interface{}{
		"id": "task_1", "title": "Seeded", "description": "from the store",
		"date": "2030-01-01", "priority": "urgent", "category": "User Story",
		"boardCategory": "todo",
	}))
	require.NoError(t, s.Set(ctx, "guest/contacts/c1", map[string]interface{}{
		"name": "Ada Lovelace", "email": "ada@example.com", "phone": "",
	}))
}

func newTestApp(t *testing.T) (Model, *docstore.SQLiteStore) {
	t.Helper()
	srv, s := testutil.NewTestServer(t, "")

	m := New(Config{
		Client:  remote.NewClient(srv.URL),
		Store:   storeConfig(),
		Session: session.Guest(),
		Timeout: 5 * time.Second,
	})
	t.Cleanup(func() { m.poller.Stop() })

	sized, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return sized.(Model), s
}

// run executes cmd and feeds the resulting message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		next, follow := m.Update(msg)
		return next.(Model), follow
	case <-time.After(5 * time.Second):
		t.Fatal("command did not finish")
		return m, nil
	}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestApp_InitialLoadFillsViews(t *testing.T) {
	m, s := newTestApp(t)
	seed(t, s)

	m, _ = run(t, m, m.Init())

	sel, ok := m.board.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "Seeded", sel.Title)
	assert.Equal(t, 1, m.summary.Summary().Urgent)
	assert.Len(t, m.contacts.Groups(), 1)
	assert.Contains(t, m.View(), "Seeded")
}

func TestApp_CreateTaskThroughForm(t *testing.T) {
	m, _ := newTestApp(t)

	m, cmd := update(m, board.NewTaskMsg{})
	assert.NotNil(t, cmd)
	require.Equal(t, ViewTaskForm, m.CurrentView())

	d := m.taskForm.Draft()
	require.NotNil(t, d)
	d.Title = "Write release notes"
	d.Description = "for 1.0"
	d.Date = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	d.Category = "Technical Task"
	d.AddSubtask("draft")

	m, cmd = update(m, taskform.SubmitMsg{Draft: d})
	m, _ = run(t, m, cmd)

	assert.Equal(t, ViewBoard, m.CurrentView())
	assert.Empty(t, m.ErrorMessage())

	tasks := m.Repository().Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write release notes", tasks[0].Title)
	assert.Equal(t, model.ColumnTodo, tasks[0].BoardCategory)

	sel, ok := m.board.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, tasks[0].ID, sel.ID)
}

func TestApp_InvalidDraftStaysOnForm(t *testing.T) {
	m, _ := newTestApp(t)

	m, _ = update(m, board.NewTaskMsg{})
	d := m.taskForm.Draft()

	m, cmd := update(m, taskform.SubmitMsg{Draft: d})
	m, _ = run(t, m, cmd)

	assert.Equal(t, ViewTaskForm, m.CurrentView())
	assert.Empty(t, m.ErrorMessage(), "validation errors are shown on the form")
	assert.Contains(t, m.View(), "Title is required")
	assert.Empty(t, m.Repository().Tasks())
}

func TestApp_DeleteNeedsConfirmation(t *testing.T) {
	m, s := newTestApp(t)
	seed(t, s)
	m, _ = run(t, m, m.Init())

	m, _ = update(m, board.DeleteTaskMsg{TaskID: "task_1"})
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Delete task")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	assert.Len(t, m.Repository().Tasks(), 1)

	m, _ = update(m, board.DeleteTaskMsg{TaskID: "task_1"})
	m, cmd = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	m, _ = run(t, m, cmd)

	assert.Empty(t, m.Repository().Tasks())
	got, err := s.Get(context.Background(), "guest/tasks/task_1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestApp_MoveTask(t *testing.T) {
	m, s := newTestApp(t)
	seed(t, s)
	m, _ = run(t, m, m.Init())

	m, _ = run(t, m, m.moveTask("task_1", model.ColumnDoing))

	task, ok := m.Repository().Task("task_1")
	require.True(t, ok)
	assert.Equal(t, model.ColumnDoing, task.BoardCategory)
	assert.Equal(t, "Moved to In progress", m.notice)
}

func TestApp_FailedWriteShowsErrorBar(t *testing.T) {
	srv, s := testutil.NewTestServer(t, "")
	seed(t, s)

	m := New(Config{Client: remote.NewClient(srv.URL), Store: storeConfig(), Session: session.Guest()})
	t.Cleanup(func() { m.poller.Stop() })
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m = sized.(Model)
	m, _ = run(t, m, m.Init())

	srv.Close()
	m, _ = run(t, m, m.moveTask("task_1", model.ColumnDone))

	assert.NotEmpty(t, m.ErrorMessage())
	task, _ := m.Repository().Task("task_1")
	assert.Equal(t, model.ColumnTodo, task.BoardCategory, "a failed move leaves the task where it was")

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.ErrorMessage())
}

func TestApp_LoginSwitchesBoard(t *testing.T) {
	m, s := newTestApp(t)
	seed(t, s)
	m, _ = run(t, m, m.Init())
	require.Len(t, m.Repository().Tasks(), 1)

	staleGen := m.pollerGen
	m, cmd := update(m, command.CommandMsg{Command: command.Command{Name: command.NameLogin, Args: []string{"u1", "Ada"}}})
	require.NotNil(t, cmd)
	member := m.poller
	t.Cleanup(member.Stop)
	assert.True(t, m.Session().IsMember())
	assert.NotEqual(t, staleGen, m.pollerGen)
	assert.Empty(t, m.Repository().Tasks(), "the member board starts empty")

	// A late result from the guest poller is ignored.
	m, _ = update(m, syncMsg{gen: staleGen})
	assert.Empty(t, m.Repository().Tasks())

	m, _ = update(m, command.CommandMsg{Command: command.Command{Name: command.NameLogout}})
	assert.False(t, m.Session().IsMember())
}

func TestApp_GlobalKeys(t *testing.T) {
	m, _ := newTestApp(t)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	assert.Equal(t, ViewSummary, m.CurrentView())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	assert.Equal(t, ViewContacts, m.CurrentView())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Equal(t, ViewHelp, m.CurrentView())
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewContacts, m.CurrentView())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	assert.Equal(t, ViewCommand, m.CurrentView())
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewContacts, m.CurrentView())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Equal(t, ViewBoard, m.CurrentView())
}

func TestApp_SettingsSwitchStore(t *testing.T) {
	m, _ := newTestApp(t)
	m.cfg.ConfigPath = filepath.Join(t.TempDir(), "config.yaml")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.NotNil(t, cmd)
	require.Equal(t, ViewSettings, m.CurrentView())

	other, s := testutil.NewTestServer(t, "")
	seed(t, s)

	cfg := m.cfg.Settings
	cfg.Store.BaseURL = other.URL
	cfg.Store.TimeoutSec = 5
	m, cmd = update(m, settingsview.SavedMsg{Config: cfg})
	require.NotNil(t, cmd)
	t.Cleanup(m.poller.Stop)

	assert.Equal(t, ViewBoard, m.CurrentView())
	assert.Equal(t, other.URL, m.cfg.Client.BaseURL())
	assert.Equal(t, "Settings saved", m.notice)

	require.NoError(t, m.persistSettings(cfg, "")().(settingsSavedMsg).err)
	saved, err := model.LoadConfig(m.cfg.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, other.URL, saved.Store.BaseURL)

	_, err = m.Repository().Reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.Repository().Tasks(), 1)
}
