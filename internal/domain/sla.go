package domain

import "time"

// SLAPolicy sets response and resolution targets per priority, optionally per department.
type SLAPolicy struct {
	ID              string
	Priority        TicketPriority
	DepartmentID    *string
	ResponseHours   int
	ResolutionHours int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SLAStatus is the evaluation of a ticket against its policy.
type SLAStatus struct {
	PolicyID           string
	ResponseDueAt      time.Time
	ResolutionDueAt    time.Time
	ResponseBreached   bool
	ResolutionBreached bool
}

// Evaluate computes deadlines for ticket at now. firstResponseAt is nil while nobody else has commented.
func (p *SLAPolicy) Evaluate(ticket *Ticket, firstResponseAt *time.Time, now time.Time) SLAStatus {
	status := SLAStatus{
		PolicyID:        p.ID,
		ResponseDueAt:   ticket.CreatedAt.Add(time.Duration(p.ResponseHours) * time.Hour),
		ResolutionDueAt: ticket.CreatedAt.Add(time.Duration(p.ResolutionHours) * time.Hour),
	}
	if firstResponseAt != nil {
		status.ResponseBreached = firstResponseAt.After(status.ResponseDueAt)
	} else {
		status.ResponseBreached = now.After(status.ResponseDueAt)
	}
	if !ticket.Status.Terminal() {
		status.ResolutionBreached = now.After(status.ResolutionDueAt)
	} else {
		status.ResolutionBreached = ticket.UpdatedAt.After(status.ResolutionDueAt)
	}
	return status
}
