package domain

import "time"

// TaskColumn is a Kanban board column.
type TaskColumn string

const (
	TaskColumnTodo       TaskColumn = "todo"
	TaskColumnInProgress TaskColumn = "in_progress"
	TaskColumnReview     TaskColumn = "review"
	TaskColumnDone       TaskColumn = "done"
)

// TaskColumns lists board columns in display order.
var TaskColumns = []TaskColumn{TaskColumnTodo, TaskColumnInProgress, TaskColumnReview, TaskColumnDone}

// Valid reports whether c is a known column.
func (c TaskColumn) Valid() bool {
	for _, col := range TaskColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Task is a Kanban card, optionally linked to a ticket.
type Task struct {
	ID          string
	Title       string
	Description string
	Column      TaskColumn
	Position    int
	AssigneeID  *string
	TicketID    *string
	CreatedBy   string
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
