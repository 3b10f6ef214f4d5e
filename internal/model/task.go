package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Column identifies the board pipeline column a task sits in.
type Column string

// Board columns in display order.
const (
	ColumnTodo     Column = "todo"
	ColumnDoing    Column = "doing"
	ColumnFeedback Column = "feedback"
	ColumnDone     Column = "done"
)

// Columns lists the board columns in display order.
var Columns = []Column{ColumnTodo, ColumnDoing, ColumnFeedback, ColumnDone}

// Valid reports whether c is one of the four board columns.
func (c Column) Valid() bool {
	switch c {
	case ColumnTodo, ColumnDoing, ColumnFeedback, ColumnDone:
		return true
	}
	return false
}

// Title returns the human-readable column heading.
func (c Column) Title() string {
	switch c {
	case ColumnTodo:
		return "To do"
	case ColumnDoing:
		return "In progress"
	case ColumnFeedback:
		return "Await feedback"
	case ColumnDone:
		return "Done"
	}
	return string(c)
}

// Next returns the column to the right of c, or c itself for the last column.
func (c Column) Next() Column {
	for i, col := range Columns {
		if col == c && i+1 < len(Columns) {
			return Columns[i+1]
		}
	}
	return c
}

// Prev returns the column to the left of c, or c itself for the first column.
func (c Column) Prev() Column {
	for i, col := range Columns {
		if col == c && i > 0 {
			return Columns[i-1]
		}
	}
	return c
}

// ParseColumn converts a string into a Column.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown board column %q", s)
	}
	return c, nil
}

// Priority is the urgency level of a task.
type Priority string

// Priority levels.
const (
	PriorityUrgent Priority = "urgent"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the priority levels from most to least urgent.
var Priorities = []Priority{PriorityUrgent, PriorityMedium, PriorityLow}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// OrDefault returns p when valid and PriorityMedium otherwise.
func (p Priority) OrDefault() Priority {
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// Categories are the task kinds offered by the task form.
var Categories = []string{"Technical Task", "User Story"}

// Subtask is a single checklist entry on a task.
type Subtask struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// Task is a card on the board.
type Task struct {
	// ID is generated client-side ("task_<millis>_<suffix>").
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Assignees holds contact display names, not contact IDs.
	Assignees []string `json:"assignees"`

	// Date is the due date as YYYY-MM-DD.
	Date     string   `json:"date"`
	Priority Priority `json:"priority"`
	Category string   `json:"category"`

	// BoardCategory is the pipeline column. The wire name is kept for
	// compatibility with existing board data.
	BoardCategory Column `json:"boardCategory"`

	// Subtasks are in display order, newest first.
	Subtasks []Subtask `json:"subtasks"`
}

// TaskFields is the caller-supplied part of a task for create and update.
type TaskFields struct {
	Title       string
	Description string
	Assignees   []string
	Date        string
	Priority    Priority
	Category    string
	Subtasks    []Subtask

	// BoardCategory is only honoured by full updates. Empty keeps the
	// task's current column.
	BoardCategory Column
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.Assignees != nil {
		c.Assignees = append([]string(nil), t.Assignees...)
	}
	if t.Subtasks != nil {
		c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	return c
}

// UnmarshalJSON decodes a stored task, normalising absent arrays and
// priorities. The store drops empty arrays, so missing fields are expected.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Assignees == nil {
		p.Assignees = []string{}
	}
	if p.Subtasks == nil {
		p.Subtasks = []Subtask{}
	}
	p.Priority = p.Priority.OrDefault()
	*t = Task(p)
	return nil
}

// IsAssigned reports whether name is among the task's assignees.
func (t Task) IsAssigned(name string) bool {
	for _, a := range t.Assignees {
		if a == name {
			return true
		}
	}
	return false
}
