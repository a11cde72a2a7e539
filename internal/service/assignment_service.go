package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const maxBulkSelection = 100

// BulkUpdateInput is a bulk action over a client selection. Exactly the non-nil fields change.
type BulkUpdateInput struct {
	TicketIDs  []string
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssignedTo *string
}

// BulkUpdateResult lists what happened to each selected id.
type BulkUpdateResult struct {
	Updated []string
	Skipped []string
}

// AssignTicket sets or clears the assignee. A nil assigneeID unassigns.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.Profile, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if assigneeID == nil {
		if !s.authz.CheckPermissionFor(ctx, actor, domain.PermAssignTickets, ticket.DepartmentIDs) {
			return nil, apperrors.NewForbidden("You do not have permission to assign this ticket")
		}
	} else {
		candidate, err := s.loadProfile(ctx, *assigneeID)
		if err != nil {
			return nil, err
		}
		if !s.authz.CanAssignTicket(ctx, actor, ticket, candidate) {
			return nil, apperrors.NewForbidden("You cannot assign this ticket to the selected user")
		}
	}

	if sameAssignee(ticket.AssignedTo, assigneeID) {
		return ticket, nil
	}
	previous := ticket.AssignedTo
	ticket.AssignedTo = assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, actor.ID, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assigned_to": previous}, map[string]any{"assigned_to": assigneeID})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketChangedPayload{Ticket: events.SnapshotOf(ticket), Changes: []string{"assigned_to"}},
	})
	return ticket, nil
}

// AddCollaborator adds an active profile to the ticket's collaborators.
func (s *TicketService) AddCollaborator(ctx context.Context, actor *domain.Profile, ticketID, profileID string) (*domain.Ticket, error) {
	ticket, err := s.editableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.HasCollaborator(profileID) {
		return ticket, nil
	}
	collaborator, err := s.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !collaborator.Active() {
		return nil, apperrors.NewValidationError("user is deactivated", map[string]any{"user_id": profileID})
	}
	if err := s.tickets.AddCollaborator(ctx, ticket.ID, profileID); err != nil {
		return nil, apperrors.MapStorageError(err, "user is already a collaborator")
	}
	ticket.CollaboratorIDs = append(ticket.CollaboratorIDs, profileID)
	s.collaboratorChanged(ctx, actor, ticket, map[string]any{"added": profileID})
	return ticket, nil
}

// RemoveCollaborator drops a profile from the ticket's collaborators.
func (s *TicketService) RemoveCollaborator(ctx context.Context, actor *domain.Profile, ticketID, profileID string) (*domain.Ticket, error) {
	ticket, err := s.editableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.HasCollaborator(profileID) {
		return ticket, nil
	}
	if err := s.tickets.RemoveCollaborator(ctx, ticket.ID, profileID); err != nil {
		return nil, apperrors.MapError(err)
	}
	kept := ticket.CollaboratorIDs[:0]
	for _, id := range ticket.CollaboratorIDs {
		if id != profileID {
			kept = append(kept, id)
		}
	}
	ticket.CollaboratorIDs = kept
	s.collaboratorChanged(ctx, actor, ticket, map[string]any{"removed": profileID})
	return ticket, nil
}

// BulkUpdate applies one change to the selected tickets. The working set is
// re-derived server side: only tickets that exist and that the actor may edit
// (and, for assignee changes, assign to the candidate) are touched.
func (s *TicketService) BulkUpdate(ctx context.Context, actor *domain.Profile, input BulkUpdateInput) (*BulkUpdateResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ids := dedupe(input.TicketIDs)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ticket_ids is required", nil)
	}
	if len(ids) > maxBulkSelection {
		return nil, apperrors.NewValidationError("ticket_ids must contain at most 100 tickets", nil)
	}
	patch := repository.TicketPatch{Status: input.Status, Priority: input.Priority, AssignedTo: input.AssignedTo}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("one of status, priority or assigned_to is required", nil)
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("status must be one of open, in_progress, resolved, closed", nil)
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority must be one of low, medium, high, urgent", nil)
	}

	var candidate *domain.Profile
	if input.AssignedTo != nil {
		profile, err := s.loadProfile(ctx, *input.AssignedTo)
		if err != nil {
			return nil, err
		}
		candidate = profile
	}

	loaded, err := s.tickets.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	scope := s.authz.ScopeBulk(ctx, actor, ids, loaded, candidate)
	result := &BulkUpdateResult{Updated: []string{}, Skipped: scope.Skipped}
	if result.Skipped == nil {
		result.Skipped = []string{}
	}
	if len(scope.Allowed) == 0 {
		return result, nil
	}

	allowedIDs := make([]string, 0, len(scope.Allowed))
	for _, t := range scope.Allowed {
		allowedIDs = append(allowedIDs, t.ID)
	}
	if _, err := s.tickets.BulkUpdate(ctx, allowedIDs, patch); err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	for i := range scope.Allowed {
		ticket := &scope.Allowed[i]
		changes := s.applyPatch(ctx, actor.ID, ticket, patch)
		ticket.UpdatedAt = now
		result.Updated = append(result.Updated, ticket.ID)
		eventType := events.EventTicketUpdated
		if patch.AssignedTo != nil {
			eventType = events.EventTicketAssigned
		}
		s.publishEvent(ctx, events.Event{
			Type:     eventType,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload:  events.TicketChangedPayload{Ticket: events.SnapshotOf(ticket), Changes: changes},
		})
	}
	return result, nil
}

func (s *TicketService) applyPatch(ctx context.Context, actorID string, ticket *domain.Ticket, patch repository.TicketPatch) []string {
	var changes []string
	if patch.Status != nil && *patch.Status != ticket.Status {
		s.recordHistory(ctx, actorID, ticket.ID, domain.ChangeTypeStatus,
			map[string]any{"status": ticket.Status}, map[string]any{"status": *patch.Status})
		ticket.Status = *patch.Status
		changes = append(changes, "status")
	}
	if patch.Priority != nil && *patch.Priority != ticket.Priority {
		s.recordHistory(ctx, actorID, ticket.ID, domain.ChangeTypePriority,
			map[string]any{"priority": ticket.Priority}, map[string]any{"priority": *patch.Priority})
		ticket.Priority = *patch.Priority
		changes = append(changes, "priority")
	}
	if patch.AssignedTo != nil && !sameAssignee(ticket.AssignedTo, patch.AssignedTo) {
		s.recordHistory(ctx, actorID, ticket.ID, domain.ChangeTypeAssignee,
			map[string]any{"assigned_to": ticket.AssignedTo}, map[string]any{"assigned_to": *patch.AssignedTo})
		assignee := *patch.AssignedTo
		ticket.AssignedTo = &assignee
		changes = append(changes, "assigned_to")
	}
	return changes
}

func (s *TicketService) editableTicket(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanEditTicket(ctx, actor, ticket) {
		return nil, apperrors.NewForbidden("You do not have permission to edit this ticket")
	}
	return ticket, nil
}

func (s *TicketService) collaboratorChanged(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket, change map[string]any) {
	s.recordHistory(ctx, actor.ID, ticket.ID, domain.ChangeTypeCollaborator, nil, change)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCollaboratorSet,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketChangedPayload{Ticket: events.SnapshotOf(ticket), Changes: []string{"collaborators"}},
	})
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
