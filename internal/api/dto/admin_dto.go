package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SLAPolicyRequest payload.
type SLAPolicyRequest struct {
	Priority        domain.TicketPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	DepartmentID    *string               `json:"department_id" validate:"omitempty,required"`
	ResponseHours   int                   `json:"response_hours" validate:"required,min=1,max=8760"`
	ResolutionHours int                   `json:"resolution_hours" validate:"required,min=1,max=8760"`
	IsActive        *bool                 `json:"is_active"`
}

// TemplateRequest payload.
type TemplateRequest struct {
	Name         string                `json:"name" validate:"required,max=120"`
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description" validate:"max=20000"`
	Priority     domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DepartmentID *string               `json:"department_id" validate:"omitempty,required"`
}

// QuestionRequest payload.
type QuestionRequest struct {
	Question     string  `json:"question" validate:"required,max=500"`
	Answer       string  `json:"answer" validate:"required,max=5000"`
	DepartmentID *string `json:"department_id" validate:"omitempty,required"`
	SortOrder    int     `json:"sort_order" validate:"min=0"`
	IsActive     *bool   `json:"is_active"`
}

// SLAPolicyResponse is the wire form of a policy.
type SLAPolicyResponse struct {
	ID              string                `json:"id"`
	Priority        domain.TicketPriority `json:"priority"`
	DepartmentID    *string               `json:"department_id"`
	ResponseHours   int                   `json:"response_hours"`
	ResolutionHours int                   `json:"resolution_hours"`
	IsActive        bool                  `json:"is_active"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TemplateResponse is the wire form of a template.
type TemplateResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	DepartmentID *string               `json:"department_id"`
	CreatedBy    string                `json:"created_by"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// QuestionResponse is the wire form of a prefilled question.
type QuestionResponse struct {
	ID           string  `json:"id"`
	Question     string  `json:"question"`
	Answer       string  `json:"answer"`
	DepartmentID *string `json:"department_id"`
	SortOrder    int     `json:"sort_order"`
	IsActive     bool    `json:"is_active"`
}

// ActiveOrDefault reads an optional flag that defaults to true.
func ActiveOrDefault(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

// NewSLAPolicyResponse maps a policy.
func NewSLAPolicyResponse(p *domain.SLAPolicy) SLAPolicyResponse {
	return SLAPolicyResponse{
		ID:              p.ID,
		Priority:        p.Priority,
		DepartmentID:    p.DepartmentID,
		ResponseHours:   p.ResponseHours,
		ResolutionHours: p.ResolutionHours,
		IsActive:        p.IsActive,
		UpdatedAt:       p.UpdatedAt,
	}
}

// NewTemplateResponse maps a template.
func NewTemplateResponse(t *domain.TicketTemplate) TemplateResponse {
	return TemplateResponse{
		ID:           t.ID,
		Name:         t.Name,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		DepartmentID: t.DepartmentID,
		CreatedBy:    t.CreatedBy,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewQuestionResponse maps a question.
func NewQuestionResponse(q *domain.PrefilledQuestion) QuestionResponse {
	return QuestionResponse{
		ID:           q.ID,
		Question:     q.Question,
		Answer:       q.Answer,
		DepartmentID: q.DepartmentID,
		SortOrder:    q.SortOrder,
		IsActive:     q.IsActive,
	}
}
