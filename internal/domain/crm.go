package domain

import (
	"encoding/json"
	"time"
)

// CRMTicket mirrors a ticket owned by the external CRM. The remote copy always wins.
type CRMTicket struct {
	CRMID           string
	Subject         string
	Description     string
	Status          string
	Priority        string
	CategoryID      string
	CategoryName    string
	RequesterName   string
	RequesterEmail  string
	ManagerID       string
	ManagerName     string
	RemoteCreatedAt *time.Time
	RemoteUpdatedAt *time.Time
	Payload         json.RawMessage
	SyncedAt        time.Time
}

// CRMComment is a comment on a CRM ticket, fetched on demand.
type CRMComment struct {
	ID          string
	AuthorName  string
	Body        string
	IsPublic    bool
	Attachments []CRMAttachment
	CreatedAt   *time.Time
}

// CRMAttachment is a comment file. DataURI is empty when the download failed.
type CRMAttachment struct {
	ID          string
	FileName    string
	ContentType string
	URL         string
	DataURI     string
	StoredKey   string
}

// CRMTicketDetail bundles a mirrored ticket with its comment thread.
type CRMTicketDetail struct {
	Ticket   CRMTicket
	Comments []CRMComment
	Stale    bool
}
