package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TaskRequest payload.
type TaskRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	Column      domain.TaskColumn `json:"column" validate:"omitempty,oneof=todo in_progress review done"`
	AssigneeID  *string           `json:"assignee_id" validate:"omitempty,required"`
	TicketID    *string           `json:"ticket_id" validate:"omitempty,required"`
	DueDate     *time.Time        `json:"due_date"`
}

// MoveTaskRequest payload.
type MoveTaskRequest struct {
	Column   domain.TaskColumn `json:"column" validate:"required,oneof=todo in_progress review done"`
	Position int               `json:"position" validate:"min=0"`
}

// TaskResponse is the wire form of a card.
type TaskResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Column      domain.TaskColumn `json:"column"`
	Position    int               `json:"position"`
	AssigneeID  *string           `json:"assignee_id"`
	TicketID    *string           `json:"ticket_id"`
	CreatedBy   string            `json:"created_by"`
	DueDate     *time.Time        `json:"due_date"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewTaskResponse maps a task.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Column:      t.Column,
		Position:    t.Position,
		AssigneeID:  t.AssigneeID,
		TicketID:    t.TicketID,
		CreatedBy:   t.CreatedBy,
		DueDate:     t.DueDate,
		UpdatedAt:   t.UpdatedAt,
	}
}
