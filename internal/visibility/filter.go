package visibility

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Tab selects a ticket list view.
type Tab string

const (
	TabMyTickets            Tab = "my_tickets"
	TabDepartmentTickets    Tab = "department_tickets"
	TabCollaborationTickets Tab = "collaboration_tickets"
	TabStale                Tab = "stale"
	TabAllTickets           Tab = "all_tickets"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabMyTickets, TabDepartmentTickets, TabCollaborationTickets, TabStale, TabAllTickets}

// Request describes one list query.
type Request struct {
	Tab      Tab
	Search   string
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Cursor   string
	Limit    int
}

// CollaborationLookup resolves the tickets a profile collaborates on.
type CollaborationLookup interface {
	CollaboratorTicketIDs(ctx context.Context, profileID string) ([]string, error)
}

// PermissionChecker answers unscoped permission questions.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, actor *domain.Profile, key domain.PermissionKey) bool
}

// Config tunes list behavior.
type Config struct {
	StaleAfter   time.Duration
	DefaultLimit int
	MaxLimit     int
}

// Filter turns a viewer and a tab into repository predicates.
type Filter struct {
	collaborations CollaborationLookup
	permissions    PermissionChecker
	cfg            Config
	now            func() time.Time
}

// NewFilter builds a filter.
func NewFilter(cfg Config, collaborations CollaborationLookup, permissions PermissionChecker) *Filter {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = domain.DefaultStaleAfter
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &Filter{collaborations: collaborations, permissions: permissions, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source.
func (f *Filter) WithClock(now func() time.Time) *Filter {
	f.now = now
	return f
}

// StaleCutoff is the instant before which an unfinished ticket counts as stale.
func StaleCutoff(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}

// Build returns the predicates for req. empty is true when the viewer can see
// nothing on the tab and no query should be issued.
func (f *Filter) Build(ctx context.Context, viewer *domain.Profile, req Request) (filter repository.TicketFilter, empty bool, err error) {
	if viewer == nil || !viewer.Active() {
		return filter, true, apperrors.NewUnauthenticated()
	}

	filter.Search = req.Search
	filter.Status = req.Status
	filter.Priority = req.Priority
	filter.Limit = f.limit(req.Limit)
	if req.Status != nil && !req.Status.Valid() {
		return filter, true, apperrors.NewValidationError("status must be one of open, in_progress, resolved, closed", nil)
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return filter, true, apperrors.NewValidationError("priority must be one of low, medium, high, urgent", nil)
	}
	if req.Cursor != "" {
		cursor, err := repository.DecodeTicketCursor(req.Cursor)
		if err != nil {
			return filter, true, apperrors.NewValidationError("cursor is invalid", nil)
		}
		filter.After = cursor
	}

	switch req.Tab {
	case TabMyTickets, "":
		id := viewer.ID
		filter.CreatorOrAssignee = &id
	case TabDepartmentTickets:
		if viewer.DepartmentID == nil {
			return filter, true, nil
		}
		dept := *viewer.DepartmentID
		filter.DepartmentID = &dept
	case TabCollaborationTickets:
		ids, err := f.collaborations.CollaboratorTicketIDs(ctx, viewer.ID)
		if err != nil {
			return filter, true, err
		}
		if len(ids) == 0 {
			return filter, true, nil
		}
		filter.IDs = ids
	case TabStale:
		dept, ok := f.departmentWide(ctx, viewer)
		if !ok {
			return filter, true, nil
		}
		filter.DepartmentID = dept
		cutoff := StaleCutoff(f.now(), f.cfg.StaleAfter)
		filter.StaleBefore = &cutoff
	case TabAllTickets:
		dept, ok := f.departmentWide(ctx, viewer)
		if !ok {
			return filter, true, nil
		}
		filter.DepartmentID = dept
	default:
		return filter, true, apperrors.NewValidationError("tab must be one of my_tickets, department_tickets, collaboration_tickets, stale, all_tickets", nil)
	}
	return filter, false, nil
}

// departmentWide decides the reach of the stale and all_tickets tabs. Global
// roles see everything (nil department); other roles need view_all_tickets_in_department
// and stay inside their own department.
func (f *Filter) departmentWide(ctx context.Context, viewer *domain.Profile) (*string, bool) {
	if authz.IsGlobal(viewer.Role) {
		return nil, true
	}
	if viewer.DepartmentID == nil || !f.permissions.CheckPermission(ctx, viewer, domain.PermViewAllTicketsInDept) {
		return nil, false
	}
	dept := *viewer.DepartmentID
	return &dept, true
}

func (f *Filter) limit(requested int) int {
	if requested <= 0 {
		return f.cfg.DefaultLimit
	}
	if requested > f.cfg.MaxLimit {
		return f.cfg.MaxLimit
	}
	return requested
}
