package model

// Progress describes how much of a task's checklist is done.
type Progress struct {
	Completed int
	Total     int

	// Percent is only meaningful when HasPercent is true; a task without
	// subtasks has no progress to show.
	Percent    int
	HasPercent bool
}

// Summary is the dashboard aggregate over all tasks.
type Summary struct {
	Total        int
	ByColumn     map[Column]int
	Urgent       int
	UrgentDates  []string
	NextDeadline string
}

// Count returns the number of tasks in column c.
func (s Summary) Count(c Column) int {
	return s.ByColumn[c]
}
