package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func contacts(names ...string) []model.Contact {
	out := make([]model.Contact, len(names))
	for i, n := range names {
		out[i] = model.Contact{ID: n, Name: n}
	}
	return out
}

func TestGroupContactsByFirstLetter(t *testing.T) {
	input := contacts("bob", "Alice", "anna", "Émile", "Zed", "42 Club", "Ben")

	groups := GroupContactsByFirstLetter(input)

	var letters []string
	seen := make(map[string]int)
	for _, g := range groups {
		letters = append(letters, g.Letter)
		require.NotEmpty(t, g.Contacts, "group %s", g.Letter)
		for _, c := range g.Contacts {
			assert.Equal(t, g.Letter, FirstLetter(c.Name))
			seen[c.ID]++
		}
	}

	assert.Len(t, seen, len(input))
	for id, n := range seen {
		assert.Equal(t, 1, n, "contact %s", id)
	}

	assert.Equal(t, []string{"4", "A", "B", "É", "Z"}, letters)
	assert.Equal(t, "Alice", groups[1].Contacts[0].Name)
	assert.Equal(t, "anna", groups[1].Contacts[1].Name)

	assert.Equal(t, "bob", input[0].Name, "input must not be reordered")
}

func TestGroupContactsByFirstLetter_Empty(t *testing.T) {
	assert.Empty(t, GroupContactsByFirstLetter(nil))
}

func TestFirstLetter(t *testing.T) {
	assert.Equal(t, "A", FirstLetter("alice"))
	assert.Equal(t, "Ö", FirstLetter(" öz"))
	assert.Equal(t, "#", FirstLetter("   "))
}

func TestGroupTasksByColumn(t *testing.T) {
	tasks := []model.Task{
		{ID: "t1", BoardCategory: model.ColumnTodo},
		{ID: "t2", BoardCategory: model.ColumnDone},
		{ID: "t3", BoardCategory: "archived"},
		{ID: "t4", BoardCategory: model.ColumnTodo},
		{ID: "t5", BoardCategory: model.ColumnFeedback},
		{ID: "t6", BoardCategory: ""},
	}

	board, errs := GroupTasksByColumn(tasks)

	require.Len(t, board.Columns, 4)
	for i, c := range model.Columns {
		assert.Equal(t, c, board.Columns[i].Column)
	}

	ids := func(ts []model.Task) []string {
		out := []string{}
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}
	assert.Equal(t, []string{"t1", "t4"}, ids(board.Tasks(model.ColumnTodo)))
	assert.Equal(t, []string{}, ids(board.Tasks(model.ColumnDoing)))
	assert.Equal(t, []string{"t5"}, ids(board.Tasks(model.ColumnFeedback)))
	assert.Equal(t, []string{"t2"}, ids(board.Tasks(model.ColumnDone)))

	require.Len(t, errs, 2)
	var unknown *UnknownColumnError
	require.ErrorAs(t, errs[0], &unknown)
	assert.Equal(t, "t3", unknown.TaskID)
}

func TestComputeSummary(t *testing.T) {
	now := time.Date(2030, time.March, 10, 15, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "a", BoardCategory: model.ColumnTodo, Priority: model.PriorityUrgent, Date: "2030-04-01"},
		{ID: "b", BoardCategory: model.ColumnDoing, Priority: model.PriorityUrgent, Date: "2030-03-01"},
		{ID: "c", BoardCategory: model.ColumnDoing, Priority: model.PriorityLow, Date: "2030-03-11"},
		{ID: "d", BoardCategory: model.ColumnDone, Priority: model.PriorityUrgent, Date: "2030-03-10"},
		{ID: "e", BoardCategory: "bogus", Priority: model.PriorityMedium},
	}

	s := ComputeSummary(tasks, now)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.Count(model.ColumnTodo))
	assert.Equal(t, 2, s.Count(model.ColumnDoing))
	assert.Equal(t, 0, s.Count(model.ColumnFeedback))
	assert.Equal(t, 1, s.Count(model.ColumnDone))
	assert.Equal(t, 3, s.Urgent)
	assert.Equal(t, []string{"March 1, 2030", "March 10, 2030", "April 1, 2030"}, s.UrgentDates)
	assert.Equal(t, "March 10, 2030", s.NextDeadline)
}

func TestComputeSummary_NoTasks(t *testing.T) {
	s := ComputeSummary(nil, time.Now())
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Urgent)
	assert.Empty(t, s.UrgentDates)
	assert.Empty(t, s.NextDeadline)
	assert.Len(t, s.ByColumn, 4)
}

func TestFilterContactsByQuery(t *testing.T) {
	input := contacts("Alice", "Bob", "Sally", "Walter", "Zed")

	got := FilterContactsByQuery(input, "AL")

	var names []string
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Alice", "Sally", "Walter"}, names)

	assert.Len(t, FilterContactsByQuery(input, ""), len(input))
	assert.Empty(t, FilterContactsByQuery(input, "xyz"))
}

func TestSearchTasks(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Title: "Fix login", Description: "oauth flow"},
		{ID: "2", Title: "Write docs", Description: "Login page"},
		{ID: "3", Title: "Deploy"},
	}
	got := SearchTasks(tasks, "login")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestProgressOf(t *testing.T) {
	tests := []struct {
		name     string
		subtasks []model.Subtask
		want     model.Progress
	}{
		{"no subtasks", nil, model.Progress{}},
		{"none done", []model.Subtask{{Name: "a"}, {Name: "b"}}, model.Progress{Completed: 0, Total: 2, Percent: 0, HasPercent: true}},
		{"one of three", []model.Subtask{{Done: true}, {}, {}}, model.Progress{Completed: 1, Total: 3, Percent: 33, HasPercent: true}},
		{"two of three", []model.Subtask{{Done: true}, {Done: true}, {}}, model.Progress{Completed: 2, Total: 3, Percent: 67, HasPercent: true}},
		{"all done", []model.Subtask{{Done: true}}, model.Progress{Completed: 1, Total: 1, Percent: 100, HasPercent: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProgressOf(model.Task{Subtasks: tt.subtasks})
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.Completed, got.Total)
		})
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "January 15, 2030", FormatDate("2030-01-15"))
	assert.Equal(t, "soon", FormatDate("soon"))
}
