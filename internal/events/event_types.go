package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketUpdated         EventType = "ticket_updated"
	EventTicketDeleted         EventType = "ticket_deleted"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventTicketCollaboratorSet EventType = "ticket_collaborator_changed"
)

// TicketEventTypes lists the events that carry a ticket snapshot.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
	EventTicketAssigned,
	EventTicketCommentAdded,
	EventTicketCollaboratorSet,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketSnapshot is the wire form of a ticket inside events.
type TicketSnapshot struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	CreatedBy       string                `json:"created_by"`
	AssignedTo      *string               `json:"assigned_to,omitempty"`
	DepartmentIDs   []string              `json:"department_ids"`
	CollaboratorIDs []string              `json:"collaborator_ids"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// SnapshotOf copies the event-relevant fields of t.
func SnapshotOf(t *domain.Ticket) TicketSnapshot {
	return TicketSnapshot{
		ID:              t.ID,
		Title:           t.Title,
		Status:          t.Status,
		Priority:        t.Priority,
		CreatedBy:       t.CreatedBy,
		AssignedTo:      t.AssignedTo,
		DepartmentIDs:   t.DepartmentIDs,
		CollaboratorIDs: t.CollaboratorIDs,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// Ticket converts the snapshot back into a domain ticket.
func (s TicketSnapshot) Ticket() domain.Ticket {
	return domain.Ticket{
		ID:              s.ID,
		Title:           s.Title,
		Status:          s.Status,
		Priority:        s.Priority,
		CreatedBy:       s.CreatedBy,
		AssignedTo:      s.AssignedTo,
		DepartmentIDs:   s.DepartmentIDs,
		CollaboratorIDs: s.CollaboratorIDs,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// TicketChangedPayload accompanies create, update, assign and collaborator events.
type TicketChangedPayload struct {
	Ticket  TicketSnapshot `json:"ticket"`
	Changes []string       `json:"changes,omitempty"`
}

// TicketDeletedPayload accompanies delete events.
type TicketDeletedPayload struct {
	DepartmentIDs []string `json:"department_ids"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	Ticket      TicketSnapshot `json:"ticket"`
	CommentID   string         `json:"comment_id"`
	AuthorID    string         `json:"author_id"`
	IsInternal  bool           `json:"is_internal"`
	BodyPreview string         `json:"body_preview"`
}
