package repository

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskboard/internal/apperrors"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/remote"
)

// Collection paths inside the (session-scoped) store.
const (
	contactsPath = "contacts"
	tasksPath    = "tasks"
)

// Repository owns the in-memory contact and task collections and keeps
// them in step with the remote store. It is safe for concurrent use; no
// lock is held while a request is in flight.
type Repository struct {
	store remote.Store

	mu       gosync.Mutex
	contacts map[string]model.Contact
	tasks    map[string]model.Task

	// rev counts local mutations. contactRevs and taskRevs record the rev
	// of the last local change per ID so a reload whose GET started
	// earlier keeps those entries instead of the stale remote copy.
	rev         uint64
	contactRevs map[string]uint64
	taskRevs    map[string]uint64

	// renames maps an old contact name to its new one while tasks still
	// carry the old name. Reload retries them.
	renames map[string]string

	now      func() time.Time
	idSuffix func() string
}

// New creates a Repository backed by the given store.
func New(s remote.Store) *Repository {
	return &Repository{
		store:    s,
		contacts:    make(map[string]model.Contact),
		tasks:       make(map[string]model.Task),
		contactRevs: make(map[string]uint64),
		taskRevs:    make(map[string]uint64),
		renames:     make(map[string]string),
		now:         time.Now,
		idSuffix:    randomSuffix,
	}
}

// touchContactLocked records a local change to contact id. Callers hold mu.
func (r *Repository) touchContactLocked(id string) {
	r.rev++
	r.contactRevs[id] = r.rev
}

// touchTaskLocked records a local change to task id. Callers hold mu.
func (r *Repository) touchTaskLocked(id string) {
	r.rev++
	r.taskRevs[id] = r.rev
}

// currentRev returns the mutation counter.
func (r *Repository) currentRev() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rev
}

// randomSuffix returns eight hex characters from a random UUID.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewTaskID returns a task ID made of the creation time and a random
// suffix, so two tasks created in the same millisecond do not collide.
func (r *Repository) NewTaskID() string {
	return fmt.Sprintf("task_%d_%s", r.now().UnixMilli(), r.idSuffix())
}

// === Contacts ===

// LoadContacts fetches every contact, replaces the in-memory set and
// returns it sorted by name. Contacts changed locally while the request was
// in flight keep their local state.
func (r *Repository) LoadContacts(ctx context.Context) ([]model.Contact, error) {
	since := r.currentRev()

	var remoteContacts map[string]model.Contact
	if _, err := r.store.Get(ctx, contactsPath, &remoteContacts); err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}

	contacts := make(map[string]model.Contact, len(remoteContacts))
	for id, c := range remoteContacts {
		c.ID = id
		contacts[id] = c
	}

	r.mu.Lock()
	for id, rev := range r.contactRevs {
		if rev <= since {
			continue
		}
		if c, ok := r.contacts[id]; ok {
			contacts[id] = c
		} else {
			delete(contacts, id)
		}
	}
	r.contacts = contacts
	r.mu.Unlock()

	return r.Contacts(), nil
}

// Contacts returns a copy of the contacts, sorted by name.
func (r *Repository) Contacts() []model.Contact {
	r.mu.Lock()
	out := make([]model.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, c)
	}
	r.mu.Unlock()

	model.SortContacts(out)
	return out
}

// Contact returns the contact with the given ID.
func (r *Repository) Contact(id string) (model.Contact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	return c, ok
}

// CreateContact stores a new contact and returns it with its generated ID.
func (r *Repository) CreateContact(ctx context.Context, fields model.ContactFields) (model.Contact, error) {
	c, err := contactFromFields(fields)
	if err != nil {
		return model.Contact{}, err
	}

	id, err := r.store.Post(ctx, contactsPath, c)
	if err != nil {
		return model.Contact{}, fmt.Errorf("creating contact: %w", err)
	}
	c.ID = id

	r.mu.Lock()
	r.contacts[id] = c
	r.touchContactLocked(id)
	r.mu.Unlock()

	return c, nil
}

// UpdateContact replaces the contact's fields. Memory is only changed once
// the store acknowledged the write. When the name changes, tasks assigned
// under the old name are moved to the new one; if that fails the contact
// is still saved, a *apperrors.PartialUpdateError is returned with it and
// the rename is retried on the next Reload.
func (r *Repository) UpdateContact(ctx context.Context, id string, fields model.ContactFields) (model.Contact, error) {
	updated, err := contactFromFields(fields)
	if err != nil {
		return model.Contact{}, err
	}
	updated.ID = id

	r.mu.Lock()
	existing, ok := r.contacts[id]
	r.mu.Unlock()
	if !ok {
		return model.Contact{}, &apperrors.NotFoundError{Kind: "contact", ID: id}
	}

	if err := r.store.Put(ctx, contactPath(id), updated); err != nil {
		return model.Contact{}, fmt.Errorf("updating contact %s: %w", id, err)
	}

	r.mu.Lock()
	r.contacts[id] = updated
	r.touchContactLocked(id)
	if existing.Name != updated.Name {
		// Earlier renames that never finished now point at the newest name.
		for from, to := range r.renames {
			switch {
			case to != existing.Name:
			case from == updated.Name:
				delete(r.renames, from)
			default:
				r.renames[from] = updated.Name
			}
		}
	}
	r.mu.Unlock()

	if existing.Name != updated.Name {
		if err := r.ReassignContactName(ctx, existing.Name, updated.Name); err != nil {
			r.mu.Lock()
			r.renames[existing.Name] = updated.Name
			r.mu.Unlock()
			log.Printf("contact %s renamed; tasks keep %q until the next reload: %v", id, existing.Name, err)
			return updated, &apperrors.PartialUpdateError{
				Op:  fmt.Sprintf("contact %s saved, reassigning tasks", id),
				Err: err,
			}
		}
	}

	return updated, nil
}

// PendingRenames returns the old→new contact names whose task updates
// have not completed.
func (r *Repository) PendingRenames() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.renames))
	for from, to := range r.renames {
		out[from] = to
	}
	return out
}

// retryRenames reapplies pending renames to the loaded tasks. Failures are
// logged and kept for the next attempt.
func (r *Repository) retryRenames(ctx context.Context) {
	for from, to := range r.PendingRenames() {
		if err := r.ReassignContactName(ctx, from, to); err != nil {
			log.Printf("retrying rename %q -> %q: %v", from, to, err)
			continue
		}
		r.mu.Lock()
		if r.renames[from] == to {
			delete(r.renames, from)
		}
		r.mu.Unlock()
	}
}

// DeleteContact removes the contact remotely and then from memory.
func (r *Repository) DeleteContact(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, contactPath(id)); err != nil {
		return fmt.Errorf("deleting contact %s: %w", id, err)
	}

	r.mu.Lock()
	delete(r.contacts, id)
	r.touchContactLocked(id)
	r.mu.Unlock()
	return nil
}

// ReassignContactName rewrites every task assigned to oldName so that it
// is assigned to newName instead.
func (r *Repository) ReassignContactName(ctx context.Context, oldName, newName string) error {
	if oldName == newName {
		return nil
	}

	var affected []model.Task
	r.mu.Lock()
	for _, t := range r.tasks {
		if t.IsAssigned(oldName) {
			affected = append(affected, t.Clone())
		}
	}
	r.mu.Unlock()

	for _, t := range affected {
		for i, a := range t.Assignees {
			if a == oldName {
				t.Assignees[i] = newName
			}
		}
		if _, err := r.UpdateTask(ctx, t.ID, fieldsOf(t)); err != nil {
			return fmt.Errorf("reassigning %q on task %s: %w", oldName, t.ID, err)
		}
	}
	return nil
}

func contactFromFields(fields model.ContactFields) (model.Contact, error) {
	c := model.Contact{
		Name:  strings.TrimSpace(fields.Name),
		Email: strings.TrimSpace(fields.Email),
		Phone: strings.TrimSpace(fields.Phone),
	}
	if c.Name == "" {
		verr := apperrors.NewValidationError()
		verr.Add("name", "Name is required")
		return model.Contact{}, verr
	}
	return c, nil
}

func contactPath(id string) string {
	return contactsPath + "/" + id
}

// === Tasks ===

// LoadTasks fetches every task and replaces the in-memory set. An empty
// store yields an empty slice. Tasks changed locally while the request was
// in flight keep their local state.
func (r *Repository) LoadTasks(ctx context.Context) ([]model.Task, error) {
	since := r.currentRev()

	var remoteTasks map[string]model.Task
	if _, err := r.store.Get(ctx, tasksPath, &remoteTasks); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	tasks := make(map[string]model.Task, len(remoteTasks))
	for key, t := range remoteTasks {
		if t.ID == "" {
			t.ID = key
		} else if t.ID != key {
			log.Printf("task stored under %q carries id %q; using the key", key, t.ID)
			t.ID = key
		}
		tasks[key] = t
	}

	r.mu.Lock()
	for id, rev := range r.taskRevs {
		if rev <= since {
			continue
		}
		if t, ok := r.tasks[id]; ok {
			tasks[id] = t
		} else {
			delete(tasks, id)
		}
	}
	r.tasks = tasks
	r.mu.Unlock()

	return r.Tasks(), nil
}

// Tasks returns copies of all tasks ordered by ID, which is creation order
// for client-generated IDs.
func (r *Repository) Tasks() []model.Task {
	r.mu.Lock()
	out := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Task returns a copy of the task with the given ID.
func (r *Repository) Task(id string) (model.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

// CreateTask stores a new task in the todo column and returns it.
func (r *Repository) CreateTask(ctx context.Context, fields model.TaskFields) (model.Task, error) {
	if strings.TrimSpace(fields.Title) == "" {
		verr := apperrors.NewValidationError()
		verr.Add("title", "Title is required")
		return model.Task{}, verr
	}

	t := taskFromFields(r.NewTaskID(), fields)
	t.BoardCategory = model.ColumnTodo
	for i := range t.Subtasks {
		t.Subtasks[i].Done = false
	}

	if err := r.store.Put(ctx, taskPath(t.ID), t); err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.touchTaskLocked(t.ID)
	r.mu.Unlock()

	return t.Clone(), nil
}

// UpdateTask overwrites the whole task. The column is carried over from
// the current task unless fields.BoardCategory names a new one.
func (r *Repository) UpdateTask(ctx context.Context, id string, fields model.TaskFields) (model.Task, error) {
	r.mu.Lock()
	existing, ok := r.tasks[id]
	r.mu.Unlock()
	if !ok {
		return model.Task{}, &apperrors.NotFoundError{Kind: "task", ID: id}
	}

	t := taskFromFields(id, fields)
	if fields.BoardCategory.Valid() {
		t.BoardCategory = fields.BoardCategory
	} else {
		t.BoardCategory = existing.BoardCategory
	}

	if err := r.store.Put(ctx, taskPath(id), t); err != nil {
		return model.Task{}, fmt.Errorf("updating task %s: %w", id, err)
	}

	r.mu.Lock()
	r.tasks[id] = t
	r.touchTaskLocked(id)
	r.mu.Unlock()

	return t.Clone(), nil
}

// MoveTaskToColumn changes only the task's column.
func (r *Repository) MoveTaskToColumn(ctx context.Context, id string, column model.Column) error {
	if !column.Valid() {
		verr := apperrors.NewValidationError()
		verr.Add("boardCategory", fmt.Sprintf("unknown column %q", column))
		return verr
	}

	r.mu.Lock()
	_, ok := r.tasks[id]
	r.mu.Unlock()
	if !ok {
		return &apperrors.NotFoundError{Kind: "task", ID: id}
	}

	err := r.store.Patch(ctx, taskPath(id), map[string]interface{}{
		"boardCategory": column,
	})
	if err != nil {
		return fmt.Errorf("moving task %s to %s: %w", id, column, err)
	}

	r.mu.Lock()
	if t, ok := r.tasks[id]; ok {
		t.BoardCategory = column
		r.tasks[id] = t
		r.touchTaskLocked(id)
	}
	r.mu.Unlock()
	return nil
}

// SetSubtaskDone marks one subtask done or not done. The in-memory task is
// changed before the request is sent and is not rolled back if the request
// fails.
func (r *Repository) SetSubtaskDone(ctx context.Context, id string, index int, done bool) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return &apperrors.NotFoundError{Kind: "task", ID: id}
	}
	if index < 0 || index >= len(t.Subtasks) {
		r.mu.Unlock()
		return &apperrors.NotFoundError{Kind: "subtask", ID: fmt.Sprintf("%s/%d", id, index)}
	}
	t = t.Clone()
	t.Subtasks[index].Done = done
	r.tasks[id] = t
	r.touchTaskLocked(id)
	r.mu.Unlock()

	err := r.store.Patch(ctx, taskPath(id), map[string]interface{}{
		fmt.Sprintf("subtasks/%d/done", index): done,
	})
	if err != nil {
		log.Printf("subtask %d of task %s kept locally as done=%t: %v", index, id, done, err)
		return fmt.Errorf("updating subtask %d of task %s: %w", index, id, err)
	}
	return nil
}

// DeleteTask removes the task from memory first and then from the store.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.tasks[id]
	delete(r.tasks, id)
	if ok {
		r.touchTaskLocked(id)
	}
	r.mu.Unlock()
	if !ok {
		return &apperrors.NotFoundError{Kind: "task", ID: id}
	}

	if err := r.store.Delete(ctx, taskPath(id)); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// Snapshot holds the result of a full reload.
type Snapshot struct {
	Contacts []model.Contact
	Tasks    []model.Task
}

// Reload fetches both collections and finishes any pending contact
// renames.
func (r *Repository) Reload(ctx context.Context) (Snapshot, error) {
	contacts, err := r.LoadContacts(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	tasks, err := r.LoadTasks(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if len(r.PendingRenames()) > 0 {
		r.retryRenames(ctx)
		tasks = r.Tasks()
	}
	return Snapshot{Contacts: contacts, Tasks: tasks}, nil
}

func taskFromFields(id string, fields model.TaskFields) model.Task {
	t := model.Task{
		ID:          id,
		Title:       strings.TrimSpace(fields.Title),
		Description: strings.TrimSpace(fields.Description),
		Assignees:   append([]string{}, fields.Assignees...),
		Date:        strings.TrimSpace(fields.Date),
		Priority:    fields.Priority.OrDefault(),
		Category:    strings.TrimSpace(fields.Category),
		Subtasks:    append([]model.Subtask{}, fields.Subtasks...),
	}
	return t
}

// fieldsOf converts a task back into update fields, keeping its column.
func fieldsOf(t model.Task) model.TaskFields {
	return model.TaskFields{
		Title:         t.Title,
		Description:   t.Description,
		Assignees:     t.Assignees,
		Date:          t.Date,
		Priority:      t.Priority,
		Category:      t.Category,
		Subtasks:      t.Subtasks,
		BoardCategory: t.BoardCategory,
	}
}

func taskPath(id string) string {
	return tasksPath + "/" + id
}
