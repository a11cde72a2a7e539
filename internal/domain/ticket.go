package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether the status ends active work on a ticket.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// DefaultStaleAfter is how long an unfinished ticket may go without updates.
const DefaultStaleAfter = 48 * time.Hour

// Ticket is the aggregate for internal support requests.
type Ticket struct {
	ID              string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	CreatedBy       string
	AssignedTo      *string
	DepartmentIDs   []string
	CollaboratorIDs []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsStale reports whether the ticket has been idle longer than window at now.
// A ticket updated exactly at now-window is not stale yet.
func (t *Ticket) IsStale(now time.Time, window time.Duration) bool {
	if t.Status.Terminal() {
		return false
	}
	return t.UpdatedAt.Before(now.Add(-window))
}

// InDepartment reports whether departmentID is one of the ticket's departments.
func (t *Ticket) InDepartment(departmentID string) bool {
	for _, id := range t.DepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}

// HasCollaborator reports whether profileID collaborates on the ticket.
func (t *Ticket) HasCollaborator(profileID string) bool {
	for _, id := range t.CollaboratorIDs {
		if id == profileID {
			return true
		}
	}
	return false
}

// IsAssignedTo reports whether profileID is the assignee.
func (t *Ticket) IsAssignedTo(profileID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == profileID
}
