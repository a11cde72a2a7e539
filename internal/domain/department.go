package domain

import "time"

// Department groups profiles and routes tickets.
type Department struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
