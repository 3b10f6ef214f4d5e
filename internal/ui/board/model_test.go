package board

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "t1", Title: "Write docs", BoardCategory: model.ColumnTodo, Priority: model.PriorityLow},
		{ID: "t2", Title: "Fix login", BoardCategory: model.ColumnTodo, Priority: model.PriorityUrgent},
		{ID: "t3", Title: "Review PR", BoardCategory: model.ColumnDoing, Priority: model.PriorityMedium,
			Subtasks: []model.Subtask{{Name: "read", Done: true}, {Name: "comment"}}},
		{ID: "t4", Title: "Stray", BoardCategory: model.Column("archive")},
	}
}

func newBoard() Model {
	m := New(keys.DefaultKeyMap(), 120, 40)
	m.SetData(sampleTasks(), []model.Contact{{ID: "c1", Name: "Ada Lovelace"}})
	return m
}

func TestBoard_NavigationAndSelection(t *testing.T) {
	m := newBoard()

	sel, ok := m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "t1", sel.ID)

	m, _ = m.Update(runes("j"))
	sel, _ = m.SelectedTask()
	assert.Equal(t, "t2", sel.ID)

	m, _ = m.Update(runes("j"))
	sel, _ = m.SelectedTask()
	assert.Equal(t, "t2", sel.ID, "cursor stays on the last card")

	m, _ = m.Update(runes("l"))
	sel, _ = m.SelectedTask()
	assert.Equal(t, "t3", sel.ID)

	m, _ = m.Update(runes("l"))
	_, ok = m.SelectedTask()
	assert.False(t, ok, "feedback column is empty")

	assert.Equal(t, 1, m.UnknownCount())
}

func TestBoard_EmitsTaskMessages(t *testing.T) {
	m := newBoard()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, OpenTaskMsg{TaskID: "t1"}, cmd())

	_, cmd = m.Update(runes("e"))
	assert.Equal(t, EditTaskMsg{TaskID: "t1"}, cmd())

	_, cmd = m.Update(runes("d"))
	assert.Equal(t, DeleteTaskMsg{TaskID: "t1"}, cmd())

	_, cmd = m.Update(runes("n"))
	assert.Equal(t, NewTaskMsg{}, cmd())

	_, cmd = m.Update(runes(">"))
	assert.Equal(t, MoveTaskMsg{TaskID: "t1", Column: model.ColumnDoing}, cmd())

	_, cmd = m.Update(runes("<"))
	assert.Nil(t, cmd, "todo is the first column")
}

func TestBoard_Search(t *testing.T) {
	m := newBoard()

	m, _ = m.Update(runes("/"))
	require.True(t, m.Searching())
	for _, r := range "login" {
		m, _ = m.Update(runes(string(r)))
	}
	assert.Equal(t, "login", m.Query())

	sel, ok := m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "t2", sel.ID)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.Searching())
	assert.Equal(t, "login", m.Query(), "enter keeps the filter")

	m, _ = m.Update(runes("/"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.Query())
}

func TestBoard_SetDataKeepsCursorOnTask(t *testing.T) {
	m := newBoard()
	m, _ = m.Update(runes("j"))

	tasks := sampleTasks()
	tasks[1].BoardCategory = model.ColumnDone
	m.SetData(tasks, nil)

	sel, ok := m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "t2", sel.ID)
	assert.Equal(t, model.ColumnDone, sel.BoardCategory)
}

func TestBoard_View(t *testing.T) {
	m := newBoard()
	view := m.View()

	assert.Contains(t, view, "To do (2)")
	assert.Contains(t, view, "Write docs")
	assert.Contains(t, view, "1/2")
}
