package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/remote"
	"github.com/nhle/taskboard/internal/repository"
	"github.com/nhle/taskboard/tests/testutil"
)

var fixedNow = time.Date(2030, time.January, 10, 9, 0, 0, 0, time.UTC)

// fakeSubmitter records calls and can block or fail them.
type fakeSubmitter struct {
	creates []model.TaskFields
	updates []string
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSubmitter) CreateTask(ctx context.Context, fields model.TaskFields) (model.Task, error) {
	f.creates = append(f.creates, fields)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return model.Task{}, f.err
	}
	return model.Task{ID: "task_1", Title: fields.Title}, nil
}

func (f *fakeSubmitter) UpdateTask(ctx context.Context, id string, fields model.TaskFields) (model.Task, error) {
	f.updates = append(f.updates, id)
	if f.err != nil {
		return model.Task{}, f.err
	}
	return model.Task{ID: id, Title: fields.Title}, nil
}

func filledDraft() *Draft {
	d := New()
	d.now = func() time.Time { return fixedNow }
	d.Title = "T"
	d.Description = "D"
	d.Date = "2030-01-10"
	d.Category = "Design"
	return d
}

func TestAddSubtask_PrependsAndIgnoresBlank(t *testing.T) {
	d := New()
	d.AddSubtask("first")
	d.AddSubtask("   ")
	d.AddSubtask("  second ")

	assert.Equal(t, []model.Subtask{{Name: "second"}, {Name: "first"}}, d.Subtasks())
}

func TestEditSubtask(t *testing.T) {
	d := New()
	d.AddSubtask("c")
	d.AddSubtask("b")
	d.AddSubtask("a")

	require.NoError(t, d.BeginEditSubtask(1))
	assert.Equal(t, StateEditingSubtask, d.State())
	require.NoError(t, d.ConfirmEditSubtask(" bee "))
	assert.Equal(t, StateOpen, d.State())
	assert.Equal(t, "bee", d.Subtasks()[1].Name)

	require.NoError(t, d.BeginEditSubtask(0))
	require.NoError(t, d.ConfirmEditSubtask("  "))
	assert.Equal(t, []model.Subtask{{Name: "bee"}, {Name: "c"}}, d.Subtasks(), "clearing a subtask removes it")

	require.NoError(t, d.BeginEditSubtask(1))
	require.NoError(t, d.CancelEditSubtask())
	assert.Equal(t, "c", d.Subtasks()[1].Name)

	assert.ErrorIs(t, d.ConfirmEditSubtask("x"), ErrNotEditing)
	assert.ErrorIs(t, d.BeginEditSubtask(5), ErrNoSubtask)
}

func TestRemoveSubtask(t *testing.T) {
	d := New()
	d.AddSubtask("b")
	d.AddSubtask("a")

	require.NoError(t, d.RemoveSubtask(0))
	assert.Equal(t, []model.Subtask{{Name: "b"}}, d.Subtasks())
	assert.ErrorIs(t, d.RemoveSubtask(3), ErrNoSubtask)
}

func TestOpen_EditCopiesWithoutAliasing(t *testing.T) {
	task := model.Task{
		ID:        "task_1",
		Title:     "Original",
		Assignees: []string{"Alice"},
		Subtasks:  []model.Subtask{{Name: "a", Done: true}},
		Priority:  model.PriorityLow,
	}

	d := Open(ModeEdit, &task)
	d.ToggleAssignee("Bob")
	d.ToggleAssignee("Alice")
	d.AddSubtask("new")
	require.NoError(t, d.BeginEditSubtask(1))
	require.NoError(t, d.ConfirmEditSubtask("renamed"))
	d.Title = "Changed"

	assert.Equal(t, []string{"Alice"}, task.Assignees)
	assert.Equal(t, []model.Subtask{{Name: "a", Done: true}}, task.Subtasks)
	assert.Equal(t, "Original", task.Title)

	assert.Equal(t, []string{"Bob"}, d.Assignees)
	assert.Equal(t, []model.Subtask{{Name: "new"}, {Name: "renamed", Done: true}}, d.Subtasks())
	assert.Equal(t, model.PriorityLow, d.Priority)
	assert.Equal(t, "task_1", d.TaskID())
}

func TestToggleAssigneeAndPriority(t *testing.T) {
	d := New()
	assert.Equal(t, model.PriorityMedium, d.Priority)

	d.ToggleAssignee("Alice")
	assert.True(t, d.HasAssignee("Alice"))
	d.ToggleAssignee("Alice")
	assert.False(t, d.HasAssignee("Alice"))

	d.SetPriority(model.PriorityUrgent)
	assert.Equal(t, model.PriorityUrgent, d.Priority)
	d.SetPriority("bogus")
	assert.Equal(t, model.PriorityMedium, d.Priority)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft)
		field  string
	}{
		{"empty title", func(d *Draft) { d.Title = "  " }, "title"},
		{"empty description", func(d *Draft) { d.Description = "" }, "description"},
		{"control characters", func(d *Draft) { d.Title = "bad\x00title" }, "title"},
		{"missing category", func(d *Draft) { d.Category = "" }, "category"},
		{"missing date", func(d *Draft) { d.Date = "" }, "date"},
		{"malformed date", func(d *Draft) { d.Date = "10/01/2030" }, "date"},
	}

	require.NoError(t, filledDraft().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := filledDraft()
			tt.mutate(d)

			err := d.Validate()
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Field(tt.field))
		})
	}
}

func TestDateHint(t *testing.T) {
	d := filledDraft()
	d.Date = "2030-01-09"
	assert.NoError(t, d.Validate(), "a past due date is only a hint")
	assert.Equal(t, "Due date is before today", d.DateHint())

	d.Date = "2030-01-10"
	assert.Empty(t, d.DateHint())

	d.Date = "not a date"
	assert.Empty(t, d.DateHint())

	task := model.Task{ID: "task_1", Title: "T", Description: "D", Date: "2020-01-01", Category: "Design"}
	edit := Open(ModeEdit, &task)
	assert.NoError(t, edit.Validate())
	assert.Empty(t, edit.DateHint())
}

func TestSubmit_PastDateIsAccepted(t *testing.T) {
	s := &fakeSubmitter{}
	d := filledDraft()
	d.Date = "2025-01-01"

	_, err := d.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, s.creates, 1)
	assert.Equal(t, "2025-01-01", s.creates[0].Date)
	assert.Equal(t, StateClosed, d.State())
}

func TestSubmit_ValidationFailureMakesNoCall(t *testing.T) {
	s := &fakeSubmitter{}
	d := filledDraft()
	d.Title = ""

	_, err := d.Submit(context.Background(), s)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, s.creates)
	assert.Equal(t, StateOpen, d.State())
	assert.NotEmpty(t, d.Errors()["title"])
}

func TestSubmit_EmptyTitleIssuesZeroNetworkCalls(t *testing.T) {
	calls := 0
	srv, _ := testutil.NewTestServer(t, "")
	counting := &countingStore{Store: remote.NewClient(srv.URL), calls: &calls}
	repo := repository.New(counting)

	d := filledDraft()
	d.Title = ""
	_, err := d.Submit(context.Background(), repo)

	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, calls)
}

func TestSubmit_SuccessClosesAndClears(t *testing.T) {
	s := &fakeSubmitter{}
	d := filledDraft()
	d.AddSubtask("a")
	d.ToggleAssignee("Alice")

	task, err := d.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "task_1", task.ID)
	assert.Equal(t, StateClosed, d.State())
	assert.Empty(t, d.Subtasks())
	assert.Empty(t, d.Assignees)
	assert.Empty(t, d.Title)

	require.Len(t, s.creates, 1)
	assert.Equal(t, []string{"Alice"}, s.creates[0].Assignees)

	_, err = d.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmit_RemoteFailureKeepsDraft(t *testing.T) {
	s := &fakeSubmitter{err: &apperrors.NetworkError{Method: "PUT", Path: "tasks/x", Err: context.DeadlineExceeded}}
	d := filledDraft()
	d.AddSubtask("a")

	_, err := d.Submit(context.Background(), s)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Equal(t, StateOpen, d.State())
	assert.Equal(t, "T", d.Title)
	assert.Len(t, d.Subtasks(), 1)
}

func TestSubmit_EditUsesUpdate(t *testing.T) {
	task := model.Task{ID: "task_9", Title: "T", Description: "D", Date: "2020-01-01", Category: "Design"}
	s := &fakeSubmitter{}
	d := Open(ModeEdit, &task)

	_, err := d.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"task_9"}, s.updates)
	assert.Empty(t, s.creates)
}

func TestSubmit_SecondSubmitWhileInFlight(t *testing.T) {
	s := &fakeSubmitter{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	d := filledDraft()

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), s)
		done <- err
	}()

	<-s.entered
	assert.Equal(t, StateSubmitting, d.State())
	_, err := d.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(s.block)
	require.NoError(t, <-done)
	assert.Len(t, s.creates, 1)
}

func TestCancel(t *testing.T) {
	d := filledDraft()
	d.AddSubtask("a")
	d.Cancel()

	assert.Equal(t, StateClosed, d.State())
	assert.Empty(t, d.Subtasks())

	d.AddSubtask("ignored")
	assert.Empty(t, d.Subtasks())
}

func TestRoundTripThroughRepository(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, "")
	client := remote.NewClient(srv.URL).WithPrefix("guest")
	repo := repository.New(client)
	ctx := context.Background()

	d := New()
	d.Title = "T"
	d.Description = "D"
	d.Date = "2025-01-01"
	d.Category = "Design"
	d.SetPriority(model.PriorityLow)
	d.AddSubtask("b")
	d.AddSubtask("a")
	d.ToggleAssignee("Alice")

	created, err := d.Submit(ctx, repo)
	require.NoError(t, err)

	tasks, err := repository.New(client).LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got := tasks[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "D", got.Description)
	assert.Equal(t, "2025-01-01", got.Date)
	assert.Equal(t, "Design", got.Category)
	assert.Equal(t, model.PriorityLow, got.Priority)
	assert.Equal(t, []string{"Alice"}, got.Assignees)
	assert.Equal(t, model.ColumnTodo, got.BoardCategory)
	assert.Equal(t, []model.Subtask{{Name: "a", Done: false}, {Name: "b", Done: false}}, got.Subtasks)
}

func TestContactDraft(t *testing.T) {
	srv, _ := testutil.NewTestServer(t, "")
	repo := repository.New(remote.NewClient(srv.URL).WithPrefix("guest"))
	ctx := context.Background()

	d := OpenContact(ModeCreate, nil)
	d.Email = "not-an-email"
	err := d.Validate()
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Field("name"))
	assert.NotEmpty(t, verr.Field("email"))

	d.Name = "Alice Smith"
	d.Email = "alice@example.com"
	d.Phone = "+49 170 1234567"
	c, err := d.Submit(ctx, repo)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, StateClosed, d.State())

	edit := OpenContact(ModeEdit, &c)
	edit.Phone = "abc"
	_, err = edit.Submit(ctx, repo)
	assert.True(t, apperrors.IsValidation(err))

	edit.Phone = ""
	updated, err := edit.Submit(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, c.ID, updated.ID)
	assert.Empty(t, updated.Phone)
}

// partialContacts stores contacts but reports that tasks kept the old name.
type partialContacts struct{}

func (partialContacts) CreateContact(ctx context.Context, fields model.ContactFields) (model.Contact, error) {
	return model.Contact{}, errors.New("not used")
}

func (partialContacts) UpdateContact(ctx context.Context, id string, fields model.ContactFields) (model.Contact, error) {
	c := model.Contact{ID: id, Name: fields.Name}
	return c, &apperrors.PartialUpdateError{Op: "reassigning tasks", Err: errors.New("offline")}
}

func TestContactDraft_PartialUpdateCloses(t *testing.T) {
	d := OpenContact(ModeEdit, &model.Contact{ID: "c1", Name: "Alice"})
	d.Name = "Alice Smith"

	c, err := d.Submit(context.Background(), partialContacts{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPartialUpdate(err))
	assert.Equal(t, "Alice Smith", c.Name)
	assert.Equal(t, StateClosed, d.State(), "the contact itself was saved")
}

// countingStore counts every call that reaches the store.
type countingStore struct {
	remote.Store
	calls *int
}

func (s *countingStore) Get(ctx context.Context, path string, out interface{}) (bool, error) {
	*s.calls++
	return s.Store.Get(ctx, path, out)
}

func (s *countingStore) Put(ctx context.Context, path string, value interface{}) error {
	*s.calls++
	return s.Store.Put(ctx, path, value)
}

func (s *countingStore) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	*s.calls++
	return s.Store.Patch(ctx, path, fields)
}

func (s *countingStore) Post(ctx context.Context, path string, value interface{}) (string, error) {
	*s.calls++
	return s.Store.Post(ctx, path, value)
}

func (s *countingStore) Delete(ctx context.Context, path string) error {
	*s.calls++
	return s.Store.Delete(ctx, path)
}
