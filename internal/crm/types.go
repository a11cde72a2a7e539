package crm

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RemoteTicket is a ticket as the CRM returns it. Raw keeps the original document.
type RemoteTicket struct {
	ID          string          `json:"id"`
	Subject     string          `json:"subject"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Category    *RemoteCategory `json:"category"`
	Requester   *RemoteUser     `json:"requester"`
	Manager     *RemoteUser     `json:"manager"`
	CreatedAt   *time.Time      `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at"`
	Raw         json.RawMessage `json:"-"`
}

// RemoteComment is a comment on a CRM ticket.
type RemoteComment struct {
	ID          string             `json:"id"`
	Body        string             `json:"body"`
	Public      bool               `json:"public"`
	Author      *RemoteUser        `json:"author"`
	Attachments []RemoteAttachment `json:"attachments"`
	CreatedAt   *time.Time         `json:"created_at"`
}

// RemoteAttachment points at a downloadable comment file.
type RemoteAttachment struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// RemoteUser is a CRM user or manager.
type RemoteUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RemoteCategory is a CRM ticket category.
type RemoteCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func decodeTicket(raw json.RawMessage) (*RemoteTicket, error) {
	var t RemoteTicket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	t.Raw = append(json.RawMessage(nil), raw...)
	return &t, nil
}

// toMirror maps a remote ticket onto the local mirror row.
func toMirror(t RemoteTicket, syncedAt time.Time) domain.CRMTicket {
	row := domain.CRMTicket{
		CRMID:           t.ID,
		Subject:         t.Subject,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		RemoteCreatedAt: t.CreatedAt,
		RemoteUpdatedAt: t.UpdatedAt,
		Payload:         t.Raw,
		SyncedAt:        syncedAt,
	}
	if len(row.Payload) == 0 {
		row.Payload = json.RawMessage("{}")
	}
	if t.Category != nil {
		row.CategoryID = t.Category.ID
		row.CategoryName = t.Category.Name
	}
	if t.Requester != nil {
		row.RequesterName = t.Requester.Name
		row.RequesterEmail = t.Requester.Email
	}
	if t.Manager != nil {
		row.ManagerID = t.Manager.ID
		row.ManagerName = t.Manager.Name
	}
	return row
}

func toComment(c RemoteComment) domain.CRMComment {
	out := domain.CRMComment{
		ID:          c.ID,
		Body:        c.Body,
		IsPublic:    c.Public,
		CreatedAt:   c.CreatedAt,
		Attachments: make([]domain.CRMAttachment, 0, len(c.Attachments)),
	}
	if c.Author != nil {
		out.AuthorName = c.Author.Name
	}
	for _, a := range c.Attachments {
		out.Attachments = append(out.Attachments, domain.CRMAttachment{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			URL:         a.URL,
		})
	}
	return out
}
