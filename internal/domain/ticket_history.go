package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated      TicketChangeType = "created"
	ChangeTypeStatus       TicketChangeType = "status"
	ChangeTypePriority     TicketChangeType = "priority"
	ChangeTypeAssignee     TicketChangeType = "assignee"
	ChangeTypeDetails      TicketChangeType = "details"
	ChangeTypeCollaborator TicketChangeType = "collaborator"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangedBy  string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
