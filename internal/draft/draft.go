// Package draft holds the editable state behind the task and contact
// forms. A draft is private to one editor: nothing it holds reaches the
// repository until Submit succeeds.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// Mode says whether a draft creates a new entity or edits an existing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// State is the lifecycle position of a draft.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateEditingSubtask
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateEditingSubtask:
		return "editing subtask"
	case StateSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrSubmitInFlight is returned by Submit while an earlier submit has
	// not finished.
	ErrSubmitInFlight = errors.New("draft: submit already in flight")

	// ErrClosed is returned by operations on a closed draft.
	ErrClosed = errors.New("draft: closed")

	// ErrNoSubtask is returned when a subtask index is out of range.
	ErrNoSubtask = errors.New("draft: no such subtask")

	// ErrNotEditing is returned when a subtask edit is confirmed or
	// cancelled without one being in progress.
	ErrNotEditing = errors.New("draft: no subtask is being edited")
)

// TaskSubmitter persists task drafts. *repository.Repository implements it.
type TaskSubmitter interface {
	CreateTask(ctx context.Context, fields model.TaskFields) (model.Task, error)
	UpdateTask(ctx context.Context, id string, fields model.TaskFields) (model.Task, error)
}

// Draft is the editable state of the task form. The exported fields may be
// written directly (form widgets bind to them) while the draft is open.
type Draft struct {
	Title       string
	Description string
	Date        string
	Category    string
	Priority    model.Priority
	Assignees   []string

	mu       gosync.Mutex
	mode     Mode
	state    State
	taskID   string
	subtasks []model.Subtask
	editing  int
	errs     map[string]string

	now func() time.Time
}

// New opens an empty draft for creating a task.
func New() *Draft {
	return Open(ModeCreate, nil)
}

// Open starts a draft. In edit mode the fields are copied from task; the
// draft never shares slices with it.
func Open(mode Mode, task *model.Task) *Draft {
	d := &Draft{
		Priority:  model.PriorityMedium,
		Assignees: []string{},
		mode:      mode,
		state:     StateOpen,
		subtasks:  []model.Subtask{},
		editing:   -1,
		now:       time.Now,
	}

	if mode == ModeEdit && task != nil {
		d.taskID = task.ID
		d.Title = task.Title
		d.Description = task.Description
		d.Date = task.Date
		d.Category = task.Category
		d.Priority = task.Priority.OrDefault()
		d.Assignees = append(d.Assignees, task.Assignees...)
		d.subtasks = append(d.subtasks, task.Subtasks...)
	}
	return d
}

// Mode returns whether the draft creates or edits.
func (d *Draft) Mode() Mode {
	return d.mode
}

// TaskID returns the ID of the task being edited, or "" in create mode.
func (d *Draft) TaskID() string {
	return d.taskID
}

// State returns the current lifecycle state.
func (d *Draft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subtasks returns a copy of the draft's subtasks, newest first.
func (d *Draft) Subtasks() []model.Subtask {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Subtask{}, d.subtasks...)
}

// EditingIndex returns the subtask being edited, or -1.
func (d *Draft) EditingIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editing
}

// AddSubtask puts a new subtask at the top of the list. Blank names are
// ignored.
func (d *Draft) AddSubtask(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.editable() {
		return
	}
	d.subtasks = append([]model.Subtask{{Name: name}}, d.subtasks...)
	if d.editing >= 0 {
		d.editing++
	}
}

// BeginEditSubtask switches subtask i into edit mode.
func (d *Draft) BeginEditSubtask(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.editable() {
		return ErrClosed
	}
	if i < 0 || i >= len(d.subtasks) {
		return ErrNoSubtask
	}
	d.editing = i
	d.state = StateEditingSubtask
	return nil
}

// ConfirmEditSubtask ends the edit started by BeginEditSubtask. A blank
// value removes the subtask; anything else renames it.
func (d *Draft) ConfirmEditSubtask(value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateEditingSubtask {
		return ErrNotEditing
	}

	i := d.editing
	if value = strings.TrimSpace(value); value == "" {
		d.subtasks = append(d.subtasks[:i:i], d.subtasks[i+1:]...)
	} else {
		d.subtasks[i].Name = value
	}
	d.editing = -1
	d.state = StateOpen
	return nil
}

// CancelEditSubtask leaves the subtask being edited unchanged.
func (d *Draft) CancelEditSubtask() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateEditingSubtask {
		return ErrNotEditing
	}
	d.editing = -1
	d.state = StateOpen
	return nil
}

// RemoveSubtask deletes subtask i.
func (d *Draft) RemoveSubtask(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.editable() {
		return ErrClosed
	}
	if i < 0 || i >= len(d.subtasks) {
		return ErrNoSubtask
	}
	d.subtasks = append(d.subtasks[:i:i], d.subtasks[i+1:]...)
	switch {
	case d.editing == i:
		d.editing = -1
		d.state = StateOpen
	case d.editing > i:
		d.editing--
	}
	return nil
}

// ToggleAssignee adds name to the assignees, or removes it if present.
func (d *Draft) ToggleAssignee(name string) {
	for i, a := range d.Assignees {
		if a == name {
			d.Assignees = append(d.Assignees[:i:i], d.Assignees[i+1:]...)
			return
		}
	}
	d.Assignees = append(d.Assignees, name)
}

// HasAssignee reports whether name is assigned.
func (d *Draft) HasAssignee(name string) bool {
	for _, a := range d.Assignees {
		if a == name {
			return true
		}
	}
	return false
}

// SetPriority selects p, falling back to medium for unknown values.
func (d *Draft) SetPriority(p model.Priority) {
	d.Priority = p.OrDefault()
}

// Errors returns the per-field messages from the last failed validation.
func (d *Draft) Errors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.errs))
	for k, v := range d.errs {
		out[k] = v
	}
	return out
}

// Validate checks every field. It returns nil or a
// *apperrors.ValidationError.
func (d *Draft) Validate() error {
	verr := validateTask(d.Title, d.Description, d.Date, d.Category)
	if verr.Empty() {
		return nil
	}
	return verr
}

// DateHint warns when a new task is due before today. It never blocks
// Submit.
func (d *Draft) DateHint() string {
	if d.mode != ModeCreate {
		return ""
	}
	due, err := time.Parse(dateLayout, strings.TrimSpace(d.Date))
	if err != nil || !due.Before(startOfDay(d.now())) {
		return ""
	}
	return "Due date is before today"
}

// Fields converts the draft into repository input.
func (d *Draft) Fields() model.TaskFields {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fieldsLocked()
}

func (d *Draft) fieldsLocked() model.TaskFields {
	return model.TaskFields{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Assignees:   append([]string{}, d.Assignees...),
		Date:        strings.TrimSpace(d.Date),
		Priority:    d.Priority.OrDefault(),
		Category:    strings.TrimSpace(d.Category),
		Subtasks:    append([]model.Subtask{}, d.subtasks...),
	}
}

// Submit validates the draft and hands it to s. Validation failures keep
// the draft open and make no call. A failed call also leaves the draft
// open with its contents intact; success closes and clears it. Only one
// submit may be in flight at a time.
func (d *Draft) Submit(ctx context.Context, s TaskSubmitter) (model.Task, error) {
	d.mu.Lock()
	switch d.state {
	case StateSubmitting:
		d.mu.Unlock()
		return model.Task{}, ErrSubmitInFlight
	case StateClosed:
		d.mu.Unlock()
		return model.Task{}, ErrClosed
	}

	verr := validateTask(d.Title, d.Description, d.Date, d.Category)
	if !verr.Empty() {
		d.errs = verr.Fields
		d.mu.Unlock()
		return model.Task{}, verr
	}
	d.errs = nil

	// A pending subtask edit is dropped.
	d.editing = -1
	d.state = StateSubmitting
	fields := d.fieldsLocked()
	mode, id := d.mode, d.taskID
	d.mu.Unlock()

	var (
		task model.Task
		err  error
	)
	if mode == ModeEdit {
		task, err = s.UpdateTask(ctx, id, fields)
	} else {
		task, err = s.CreateTask(ctx, fields)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = StateOpen
		return model.Task{}, err
	}
	d.closeLocked()
	return task, nil
}

// Cancel discards the draft.
func (d *Draft) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

func (d *Draft) closeLocked() {
	d.Title = ""
	d.Description = ""
	d.Date = ""
	d.Category = ""
	d.Priority = model.PriorityMedium
	d.Assignees = []string{}
	d.subtasks = []model.Subtask{}
	d.editing = -1
	d.errs = nil
	d.state = StateClosed
}

// editable reports whether the subtask list may change. Callers hold mu.
func (d *Draft) editable() bool {
	return d.state == StateOpen || d.state == StateEditingSubtask
}
