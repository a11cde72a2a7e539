package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CRMCommentRequest payload.
type CRMCommentRequest struct {
	Text        string             `json:"text" validate:"required,max=20000"`
	Attachments []AttachmentUpload `json:"attachments" validate:"max=10,dive"`
}

// CRMCommentUpdateRequest payload.
type CRMCommentUpdateRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

// CRMTicketUpdateRequest payload. Absent fields are left alone upstream.
type CRMTicketUpdateRequest struct {
	Status     *string `json:"status" validate:"omitempty,min=1,max=64"`
	Priority   *string `json:"priority" validate:"omitempty,min=1,max=64"`
	ManagerID  *string `json:"manager_id" validate:"omitempty,min=1"`
	CategoryID *string `json:"category_id" validate:"omitempty,min=1"`
}

// CRMTicketResponse is the mirrored ticket.
type CRMTicketResponse struct {
	CRMID           string     `json:"crm_id"`
	Subject         string     `json:"subject"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	CategoryID      string     `json:"category_id"`
	CategoryName    string     `json:"category_name"`
	RequesterName   string     `json:"requester_name"`
	RequesterEmail  string     `json:"requester_email"`
	ManagerID       string     `json:"manager_id"`
	ManagerName     string     `json:"manager_name"`
	RemoteCreatedAt *time.Time `json:"remote_created_at"`
	RemoteUpdatedAt *time.Time `json:"remote_updated_at"`
	SyncedAt        time.Time  `json:"synced_at"`
}

// CRMCommentResponse is a remote comment.
type CRMCommentResponse struct {
	ID          string                  `json:"id"`
	AuthorName  string                  `json:"author_name"`
	Body        string                  `json:"body"`
	IsPublic    bool                    `json:"is_public"`
	Attachments []CRMAttachmentResponse `json:"attachments"`
	CreatedAt   *time.Time              `json:"created_at"`
}

// CRMAttachmentResponse is a remote attachment, inlined when small enough.
type CRMAttachmentResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	DataURI     string `json:"data_uri,omitempty"`
}

// CRMTicketDetailResponse is a ticket with its thread.
type CRMTicketDetailResponse struct {
	Ticket   CRMTicketResponse    `json:"ticket"`
	Comments []CRMCommentResponse `json:"comments"`
	Stale    bool                 `json:"stale"`
}

// NewCRMTicketResponse maps a mirrored ticket.
func NewCRMTicketResponse(t *domain.CRMTicket) CRMTicketResponse {
	return CRMTicketResponse{
		CRMID:           t.CRMID,
		Subject:         t.Subject,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		CategoryID:      t.CategoryID,
		CategoryName:    t.CategoryName,
		RequesterName:   t.RequesterName,
		RequesterEmail:  t.RequesterEmail,
		ManagerID:       t.ManagerID,
		ManagerName:     t.ManagerName,
		RemoteCreatedAt: t.RemoteCreatedAt,
		RemoteUpdatedAt: t.RemoteUpdatedAt,
		SyncedAt:        t.SyncedAt,
	}
}

// NewCRMCommentResponse maps a remote comment.
func NewCRMCommentResponse(c *domain.CRMComment) CRMCommentResponse {
	resp := CRMCommentResponse{
		ID:          c.ID,
		AuthorName:  c.AuthorName,
		Body:        c.Body,
		IsPublic:    c.IsPublic,
		Attachments: make([]CRMAttachmentResponse, 0, len(c.Attachments)),
		CreatedAt:   c.CreatedAt,
	}
	for _, a := range c.Attachments {
		resp.Attachments = append(resp.Attachments, CRMAttachmentResponse{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			URL:         a.URL,
			DataURI:     a.DataURI,
		})
	}
	return resp
}

// NewCRMTicketDetailResponse maps a ticket detail.
func NewCRMTicketDetailResponse(d *domain.CRMTicketDetail) CRMTicketDetailResponse {
	resp := CRMTicketDetailResponse{
		Ticket:   NewCRMTicketResponse(&d.Ticket),
		Comments: make([]CRMCommentResponse, 0, len(d.Comments)),
		Stale:    d.Stale,
	}
	for i := range d.Comments {
		resp.Comments = append(resp.Comments, NewCRMCommentResponse(&d.Comments[i]))
	}
	return resp
}
