package app

import (
	"context"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/draft"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/session"
	appsync "github.com/nhle/taskboard/internal/sync"
)

const (
	opMoveTask      = "move task"
	opToggleSubtask = "toggle subtask"
	opDeleteTask    = "delete task"
	opDeleteContact = "delete contact"
)

// syncMsg tags a poller result with the session it belongs to.
type syncMsg struct {
	gen    int
	result appsync.SyncResultMsg
}

// taskSavedMsg is sent after a task draft submit finishes.
type taskSavedMsg struct {
	task model.Task
	err  error
}

// contactSavedMsg is sent after a contact draft submit finishes.
type contactSavedMsg struct {
	contact model.Contact
	err     error
}

// mutationDoneMsg is sent after a single repository write finishes.
type mutationDoneMsg struct {
	op   string
	id   string
	done string
	err  error
}

// sessionSavedMsg is sent after the session has been persisted.
type sessionSavedMsg struct {
	err error
}

// settingsSavedMsg is sent after the settings have been written out.
type settingsSavedMsg struct {
	err error
}

// startPoller starts the current poller and tags its results.
func (m Model) startPoller() tea.Cmd {
	return m.tagSync(m.poller.Start())
}

// waitForSync keeps listening to the current poller.
func (m Model) waitForSync() tea.Cmd {
	return m.tagSync(m.poller.WaitForNextResult())
}

func (m Model) tagSync(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	gen := m.pollerGen
	return func() tea.Msg {
		res, ok := cmd().(appsync.SyncResultMsg)
		if !ok {
			return nil
		}
		return syncMsg{gen: gen, result: res}
	}
}

// submitTask hands the draft to the repository.
func (m Model) submitTask(d *draft.Draft) tea.Cmd {
	repo, timeout := m.repo, m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		t, err := d.Submit(ctx, repo)
		if err != nil && !apperrors.IsValidation(err) {
			log.Printf("app: saving task failed (%s): %v", apperrors.Code(err), err)
		}
		return taskSavedMsg{task: t, err: err}
	}
}

// submitContact hands the contact draft to the repository.
func (m Model) submitContact(d *draft.ContactDraft) tea.Cmd {
	repo, timeout := m.repo, m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		c, err := d.Submit(ctx, repo)
		if err != nil && !apperrors.IsValidation(err) {
			log.Printf("app: saving contact failed (%s): %v", apperrors.Code(err), err)
		}
		return contactSavedMsg{contact: c, err: err}
	}
}

func (m Model) moveTask(id string, column model.Column) tea.Cmd {
	repo := m.repo
	return m.mutate(opMoveTask, id, "Moved to "+column.Title(), func(ctx context.Context) error {
		return repo.MoveTaskToColumn(ctx, id, column)
	})
}

func (m Model) setSubtaskDone(id string, index int, done bool) tea.Cmd {
	repo := m.repo
	return m.mutate(opToggleSubtask, id, "", func(ctx context.Context) error {
		return repo.SetSubtaskDone(ctx, id, index, done)
	})
}

func (m Model) deleteTask(id string) tea.Cmd {
	repo := m.repo
	return m.mutate(opDeleteTask, id, "Task deleted", func(ctx context.Context) error {
		return repo.DeleteTask(ctx, id)
	})
}

func (m Model) deleteContact(id string) tea.Cmd {
	repo := m.repo
	return m.mutate(opDeleteContact, id, "Contact deleted", func(ctx context.Context) error {
		return repo.DeleteContact(ctx, id)
	})
}

// mutate runs fn with the UI timeout and reports the outcome.
func (m Model) mutate(op, id, done string, fn func(ctx context.Context) error) tea.Cmd {
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := fn(ctx)
		if err != nil {
			log.Printf("app: %s %s failed (%s): %v", op, id, apperrors.Code(err), err)
			err = fmt.Errorf("%s: %w", op, err)
		}
		return mutationDoneMsg{op: op, id: id, done: done, err: err}
	}
}

// persistSession remembers s for the next start.
func (m Model) persistSession(s session.Session) tea.Cmd {
	mgr := m.cfg.Sessions
	if mgr == nil {
		return nil
	}
	return func() tea.Msg {
		var err error
		if s.IsMember() {
			err = mgr.Save(s)
		} else {
			err = mgr.Clear()
		}
		return sessionSavedMsg{err: err}
	}
}

// persistSettings writes cfg to the config file and the token to the
// keyring. Either destination may be absent.
func (m Model) persistSettings(cfg model.AppConfig, token string) tea.Cmd {
	path, creds := m.cfg.ConfigPath, m.cfg.Credentials
	return func() tea.Msg {
		if path != "" {
			if err := model.SaveConfig(path, &cfg); err != nil {
				log.Printf("app: saving settings: %v", err)
				return settingsSavedMsg{err: err}
			}
		}
		if creds == nil {
			return settingsSavedMsg{}
		}
		var err error
		if token == "" {
			err = creds.Delete(credential.KeyStoreToken)
		} else {
			err = creds.Set(credential.KeyStoreToken, token)
		}
		if err != nil {
			log.Printf("app: saving store token: %v", err)
		}
		return settingsSavedMsg{err: err}
	}
}
