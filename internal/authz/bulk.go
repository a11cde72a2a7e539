package authz

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// BulkScope splits a client selection into tickets the actor may act on and ids it may not.
type BulkScope struct {
	Allowed []domain.Ticket
	Skipped []string
}

// ScopeBulk intersects selectedIDs with loaded tickets the actor may edit.
// Unknown ids and duplicates never reach Allowed. When candidate is non-nil the
// actor must also be able to assign each ticket to it.
func (c *Checker) ScopeBulk(ctx context.Context, actor *domain.Profile, selectedIDs []string, loaded []domain.Ticket, candidate *domain.Profile) BulkScope {
	byID := make(map[string]domain.Ticket, len(loaded))
	for _, t := range loaded {
		byID[t.ID] = t
	}

	scope := BulkScope{}
	seen := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ticket, ok := byID[id]
		if !ok || !c.CanEditTicket(ctx, actor, &ticket) {
			scope.Skipped = append(scope.Skipped, id)
			continue
		}
		if candidate != nil && !c.CanAssignTicket(ctx, actor, &ticket, candidate) {
			scope.Skipped = append(scope.Skipped, id)
			continue
		}
		scope.Allowed = append(scope.Allowed, ticket)
	}
	return scope
}
