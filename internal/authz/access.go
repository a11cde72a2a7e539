package authz

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CanViewTicket reports whether actor may open ticket.
func (c *Checker) CanViewTicket(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket) bool {
	if actor == nil || !actor.Active() || ticket == nil {
		return false
	}
	if IsGlobal(actor.Role) || involved(actor, ticket) {
		return true
	}
	if actor.DepartmentID != nil && ticket.InDepartment(*actor.DepartmentID) {
		return true
	}
	return c.CheckPermissionFor(ctx, actor, domain.PermViewAllTicketsInDept, ticket.DepartmentIDs)
}

// CanEditTicket reports whether actor may change ticket fields.
func (c *Checker) CanEditTicket(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket) bool {
	if actor == nil || !actor.Active() || ticket == nil {
		return false
	}
	if IsGlobal(actor.Role) {
		return true
	}
	if ticket.CreatedBy == actor.ID || ticket.IsAssignedTo(actor.ID) {
		return true
	}
	if (actor.Role == domain.RoleManager || actor.Role == domain.RoleDepartmentHead) &&
		actor.DepartmentID != nil && ticket.InDepartment(*actor.DepartmentID) {
		return true
	}
	return c.CheckPermissionFor(ctx, actor, domain.PermEditTickets, ticket.DepartmentIDs)
}

// CanDeleteTicket reports whether actor holds delete_tickets for the ticket's departments.
func (c *Checker) CanDeleteTicket(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	return c.CheckPermissionFor(ctx, actor, domain.PermDeleteTickets, ticket.DepartmentIDs)
}

// CanAssignTicket reports whether actor may assign ticket to candidate.
func (c *Checker) CanAssignTicket(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket, candidate *domain.Profile) bool {
	if ticket == nil || !AssignableBy(actor, candidate) {
		return false
	}
	return c.CheckPermissionFor(ctx, actor, domain.PermAssignTickets, ticket.DepartmentIDs)
}

func involved(actor *domain.Profile, ticket *domain.Ticket) bool {
	return ticket.CreatedBy == actor.ID || ticket.IsAssignedTo(actor.ID) || ticket.HasCollaborator(actor.ID)
}
