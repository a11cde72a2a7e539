package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Empty fields are filled from the template when one is given.
type CreateTicketRequest struct {
	Title         string                `json:"title" validate:"required_without=TemplateID,max=200"`
	Description   string                `json:"description" validate:"max=20000"`
	Priority      domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DepartmentIDs []string              `json:"department_ids" validate:"max=20,dive,required"`
	TemplateID    *string               `json:"template_id" validate:"omitempty,required"`
}

// UpdateTicketRequest payload. Absent fields are left alone.
type UpdateTicketRequest struct {
	Title       *string                `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string                `json:"description" validate:"omitempty,max=20000"`
	Status      *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// AssignTicketRequest payload. A null assignee unassigns.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// CollaboratorRequest payload.
type CollaboratorRequest struct {
	ProfileID string `json:"profile_id" validate:"required"`
}

// BulkUpdateRequest payload.
type BulkUpdateRequest struct {
	TicketIDs  []string               `json:"ticket_ids" validate:"required,min=1,max=100,dive,uuid"`
	Status     *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority   *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo *string                `json:"assigned_to" validate:"omitempty,required"`
}

// BulkUpdateResponse lists updated and skipped ids.
type BulkUpdateResponse struct {
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
}

// CommentRequest payload. Attachment content is base64.
type CommentRequest struct {
	Body        string             `json:"body" validate:"required,max=20000"`
	IsInternal  bool               `json:"is_internal"`
	Attachments []AttachmentUpload `json:"attachments" validate:"max=10,dive"`
}

// AttachmentUpload is an inline file.
type AttachmentUpload struct {
	FileName      string `json:"file_name" validate:"required,max=255"`
	MimeType      string `json:"mime_type" validate:"max=127"`
	ContentBase64 string `json:"content_base64" validate:"required,base64"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	CreatedBy       string                `json:"created_by"`
	AssignedTo      *string               `json:"assigned_to"`
	DepartmentIDs   []string              `json:"department_ids"`
	CollaboratorIDs []string              `json:"collaborator_ids"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketPageResponse is one page of a tab.
type TicketPageResponse struct {
	Items      []TicketResponse `json:"items"`
	Total      int              `json:"total"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CommentResponse is a thread entry.
type CommentResponse struct {
	ID          string               `json:"id"`
	TicketID    string               `json:"ticket_id"`
	AuthorID    string               `json:"author_id"`
	Body        string               `json:"body"`
	IsInternal  bool                 `json:"is_internal"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID         string                  `json:"id"`
	ChangedBy  string                  `json:"changed_by"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	OldValue   map[string]any          `json:"old_value,omitempty"`
	NewValue   map[string]any          `json:"new_value,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// SLAResponse is a ticket's SLA evaluation.
type SLAResponse struct {
	PolicyID           string    `json:"policy_id"`
	ResponseDueAt      time.Time `json:"response_due_at"`
	ResolutionDueAt    time.Time `json:"resolution_due_at"`
	ResponseBreached   bool      `json:"response_breached"`
	ResolutionBreached bool      `json:"resolution_breached"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		CreatedBy:       t.CreatedBy,
		AssignedTo:      t.AssignedTo,
		DepartmentIDs:   t.DepartmentIDs,
		CollaboratorIDs: t.CollaboratorIDs,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if resp.DepartmentIDs == nil {
		resp.DepartmentIDs = []string{}
	}
	if resp.CollaboratorIDs == nil {
		resp.CollaboratorIDs = []string{}
	}
	return resp
}

// NewCommentResponse maps a comment. Attachment URLs point at the download route.
func NewCommentResponse(c *domain.TicketComment) CommentResponse {
	resp := CommentResponse{
		ID:          c.ID,
		TicketID:    c.TicketID,
		AuthorID:    c.AuthorID,
		Body:        c.Body,
		IsInternal:  c.IsInternal,
		Attachments: make([]AttachmentResponse, 0, len(c.Attachments)),
		CreatedAt:   c.CreatedAt,
	}
	for _, a := range c.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:        a.ID,
			FileName:  a.FileName,
			MimeType:  a.MimeType,
			SizeBytes: a.SizeBytes,
			URL:       "/api/attachments/" + a.ID,
		})
	}
	return resp
}

// NewHistoryResponse maps a history entry.
func NewHistoryResponse(h *domain.TicketHistory) HistoryResponse {
	return HistoryResponse{
		ID:         h.ID,
		ChangedBy:  h.ChangedBy,
		ChangeType: h.ChangeType,
		OldValue:   h.OldValue,
		NewValue:   h.NewValue,
		CreatedAt:  h.CreatedAt,
	}
}

// NewSLAResponse maps an SLA evaluation.
func NewSLAResponse(s *domain.SLAStatus) SLAResponse {
	return SLAResponse{
		PolicyID:           s.PolicyID,
		ResponseDueAt:      s.ResponseDueAt,
		ResolutionDueAt:    s.ResolutionDueAt,
		ResponseBreached:   s.ResponseBreached,
		ResolutionBreached: s.ResolutionBreached,
	}
}
