// Package projection derives what the views render from repository state.
// Every function is pure: it reads its arguments, never modifies them and
// keeps no state between calls.
package projection

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/nhle/taskboard/internal/model"
)

// DateLayout is the wire format of task due dates.
const DateLayout = "2006-01-02"

// LongDateLayout is how due dates are shown on the summary.
const LongDateLayout = "January 2, 2006"

// LetterGroup is one alphabetical section of the contact list.
type LetterGroup struct {
	Letter   string
	Contacts []model.Contact
}

// GroupContactsByFirstLetter sorts a copy of contacts by name and splits it
// into sections keyed by the uppercased first character of the name.
func GroupContactsByFirstLetter(contacts []model.Contact) []LetterGroup {
	sorted := append([]model.Contact(nil), contacts...)
	model.SortContacts(sorted)

	var groups []LetterGroup
	index := make(map[string]int)
	for _, c := range sorted {
		letter := FirstLetter(c.Name)
		i, ok := index[letter]
		if !ok {
			i = len(groups)
			index[letter] = i
			groups = append(groups, LetterGroup{Letter: letter})
		}
		groups[i].Contacts = append(groups[i].Contacts, c)
	}
	return groups
}

// FirstLetter returns the uppercased first character of name, or "#" for a
// blank name.
func FirstLetter(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return string(unicode.ToUpper(r))
	}
	return "#"
}

// ColumnTasks is one column of the board.
type ColumnTasks struct {
	Column model.Column
	Tasks  []model.Task
}

// Board holds the four columns in display order.
type Board struct {
	Columns []ColumnTasks
}

// Tasks returns the tasks in column c.
func (b Board) Tasks(c model.Column) []model.Task {
	for _, col := range b.Columns {
		if col.Column == c {
			return col.Tasks
		}
	}
	return nil
}

// UnknownColumnError reports a task whose column is not one of the four.
type UnknownColumnError struct {
	TaskID string
	Column model.Column
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("task %s has unknown column %q", e.TaskID, e.Column)
}

// GroupTasksByColumn places every task in its column. Tasks with an unknown
// column are left out; one error per such task is returned and logged.
func GroupTasksByColumn(tasks []model.Task) (Board, []error) {
	board := Board{Columns: make([]ColumnTasks, len(model.Columns))}
	index := make(map[model.Column]int, len(model.Columns))
	for i, c := range model.Columns {
		board.Columns[i] = ColumnTasks{Column: c, Tasks: []model.Task{}}
		index[c] = i
	}

	var errs []error
	for _, t := range tasks {
		i, ok := index[t.BoardCategory]
		if !ok {
			err := &UnknownColumnError{TaskID: t.ID, Column: t.BoardCategory}
			log.Printf("projection: %v", err)
			errs = append(errs, err)
			continue
		}
		board.Columns[i].Tasks = append(board.Columns[i].Tasks, t)
	}
	return board, errs
}

// ComputeSummary aggregates tasks for the dashboard. now decides which
// urgent deadline counts as the next upcoming one.
func ComputeSummary(tasks []model.Task, now time.Time) model.Summary {
	s := model.Summary{
		Total:    len(tasks),
		ByColumn: make(map[model.Column]int, len(model.Columns)),
	}
	for _, c := range model.Columns {
		s.ByColumn[c] = 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var urgentDates []time.Time
	for _, t := range tasks {
		if t.BoardCategory.Valid() {
			s.ByColumn[t.BoardCategory]++
		}
		if t.Priority != model.PriorityUrgent {
			continue
		}
		s.Urgent++

		d, err := time.Parse(DateLayout, t.Date)
		if err != nil {
			log.Printf("projection: task %s has unparseable date %q", t.ID, t.Date)
			continue
		}
		urgentDates = append(urgentDates, d)
	}

	sort.Slice(urgentDates, func(i, j int) bool { return urgentDates[i].Before(urgentDates[j]) })
	s.UrgentDates = make([]string, 0, len(urgentDates))
	for _, d := range urgentDates {
		s.UrgentDates = append(s.UrgentDates, d.Format(LongDateLayout))
		if s.NextDeadline == "" && !d.Before(today) {
			s.NextDeadline = d.Format(LongDateLayout)
		}
	}
	return s
}

// FilterContactsByQuery keeps the contacts whose name contains query,
// ignoring case. Order is preserved and an empty query keeps everything.
func FilterContactsByQuery(contacts []model.Contact, query string) []model.Contact {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

// SearchTasks keeps the tasks whose title or description contains query,
// ignoring case. Order is preserved and an empty query keeps everything.
func SearchTasks(tasks []model.Task, query string) []model.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

// ProgressOf counts the finished subtasks of t.
func ProgressOf(t model.Task) model.Progress {
	p := model.Progress{Total: len(t.Subtasks)}
	for _, st := range t.Subtasks {
		if st.Done {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
		p.HasPercent = true
	}
	return p
}

// FormatDate renders a wire date in the long form, returning the input
// unchanged when it does not parse.
func FormatDate(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(LongDateLayout)
}
