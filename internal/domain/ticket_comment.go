package domain

import "time"

// TicketComment is a message in a ticket thread. Internal comments are hidden from requesters.
type TicketComment struct {
	ID          string
	TicketID    string
	AuthorID    string
	Body        string
	IsInternal  bool
	Attachments []Attachment
	CreatedAt   time.Time
}

// Attachment stores metadata for a file kept in blob storage.
type Attachment struct {
	ID         string
	CommentID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
