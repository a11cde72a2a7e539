package domain

import "time"

// TicketTemplate pre-fills the ticket form.
type TicketTemplate struct {
	ID           string
	Name         string
	Title        string
	Description  string
	Priority     TicketPriority
	DepartmentID *string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrefilledQuestion is a canned question/answer offered on the ticket form.
type PrefilledQuestion struct {
	ID           string
	Question     string
	Answer       string
	DepartmentID *string
	SortOrder    int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
