package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/visibility"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var clock = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type ticketFixture struct {
	svc      *TicketService
	tickets  *memTickets
	history  *memHistory
	comments *memComments
	profiles *memProfiles
	events   []events.Event
}

func newTicketFixture(t *testing.T, profiles ...*domain.Profile) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		tickets:  newMemTickets(func() time.Time { return clock }),
		history:  &memHistory{},
		comments: &memComments{},
		profiles: newMemProfiles(profiles...),
	}
	checker := newChecker()
	dispatcher := events.NewInMemoryDispatcher(nil)
	events.SubscribeAll(dispatcher, events.TicketEventTypes, func(_ context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	filter := visibility.NewFilter(visibility.Config{StaleAfter: 48 * time.Hour, DefaultLimit: 20, MaxLimit: 50}, f.tickets, checker).
		WithClock(func() time.Time { return clock })
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:     f.tickets,
		HistoryRepo:    f.history,
		CommentRepo:    f.comments,
		ProfileRepo:    f.profiles,
		DepartmentRepo: newMemDepartments("support", "sales"),
		Authz:          checker,
		Visibility:     filter,
		Dispatcher:     dispatcher,
	})
	f.svc.now = func() time.Time { return clock }
	return f
}

func ticketIDs(tickets []domain.Ticket) []string {
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

func codeOf(err error) string {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func TestUserSeesOwnTicketOnlyOnMyTickets(t *testing.T) {
	user := person("u1", domain.RoleUser, "support")
	f := newTicketFixture(t, user)
	ctx := context.Background()

	created, err := f.svc.CreateTicket(ctx, user, TicketCreateInput{Title: "Printer jammed", DepartmentIDs: []string{"support"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != domain.TicketStatusOpen || created.Priority != domain.TicketPriorityMedium {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	mine, err := f.svc.ListTickets(ctx, user, visibility.Request{Tab: visibility.TabMyTickets})
	if err != nil {
		t.Fatalf("list my_tickets: %v", err)
	}
	if len(mine.Tickets) != 1 || mine.Tickets[0].ID != created.ID || mine.Total != 1 {
		t.Fatalf("ticket should appear on my_tickets: %+v", mine)
	}

	all, err := f.svc.ListTickets(ctx, user, visibility.Request{Tab: visibility.TabAllTickets})
	if err != nil {
		t.Fatalf("list all_tickets: %v", err)
	}
	if len(all.Tickets) != 0 || all.Total != 0 {
		t.Fatalf("user without view_all_tickets_in_department must not see all_tickets: %+v", all)
	}
}

func TestListTicketsIsRepeatable(t *testing.T) {
	manager := person("m1", domain.RoleManager, "support")
	f := newTicketFixture(t, manager)
	for i, dept := range []string{"support", "support", "sales", "support"} {
		f.tickets.put(domain.Ticket{
			ID:            string(rune('a'+i)) + "-ticket",
			Title:         "ticket",
			Status:        domain.TicketStatusOpen,
			Priority:      domain.TicketPriorityLow,
			CreatedBy:     "someone",
			DepartmentIDs: []string{dept},
			UpdatedAt:     clock.Add(-time.Duration(i%2) * time.Hour),
		})
	}

	req := visibility.Request{Tab: visibility.TabAllTickets}
	first, err := f.svc.ListTickets(context.Background(), manager, req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	second, err := f.svc.ListTickets(context.Background(), manager, req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(ticketIDs(first.Tickets), ticketIDs(second.Tickets)) {
		t.Fatalf("repeated query changed order: %v vs %v", ticketIDs(first.Tickets), ticketIDs(second.Tickets))
	}
	want := []string{"a-ticket", "d-ticket", "b-ticket"}
	if !reflect.DeepEqual(ticketIDs(first.Tickets), want) {
		t.Fatalf("manager should see only support tickets newest first, got %v", ticketIDs(first.Tickets))
	}
}

func TestBulkUpdateNeverTouchesOutOfScopeTickets(t *testing.T) {
	manager := person("m1", domain.RoleManager, "support")
	f := newTicketFixture(t, manager)
	for _, tk := range []struct{ id, dept string }{
		{"t1", "support"}, {"t2", "support"}, {"t3", "support"}, {"t4", "sales"}, {"t5", "sales"},
	} {
		f.tickets.put(domain.Ticket{
			ID:            tk.id,
			Title:         tk.id,
			Status:        domain.TicketStatusOpen,
			Priority:      domain.TicketPriorityLow,
			CreatedBy:     "requester",
			DepartmentIDs: []string{tk.dept},
			UpdatedAt:     clock.Add(-time.Hour),
		})
	}

	closed := domain.TicketStatusClosed
	res, err := f.svc.BulkUpdate(context.Background(), manager, BulkUpdateInput{
		TicketIDs: []string{"t1", "t4", "t2", "t5", "t3", "t1", "missing"},
		Status:    &closed,
	})
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	if !reflect.DeepEqual(res.Updated, []string{"t1", "t2", "t3"}) {
		t.Fatalf("updated = %v", res.Updated)
	}
	if !reflect.DeepEqual(res.Skipped, []string{"t4", "t5", "missing"}) {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	if !reflect.DeepEqual(f.tickets.bulkIDs, []string{"t1", "t2", "t3"}) {
		t.Fatalf("storage saw ids %v", f.tickets.bulkIDs)
	}
	for _, id := range []string{"t4", "t5"} {
		tk, _ := f.tickets.GetByID(context.Background(), id)
		if tk.Status != domain.TicketStatusOpen {
			t.Fatalf("%s was modified: %+v", id, tk)
		}
	}
	if len(f.events) != 3 {
		t.Fatalf("expected one event per updated ticket, got %d", len(f.events))
	}
}

func TestBulkAssignAppliesAssignmentRule(t *testing.T) {
	manager := person("m1", domain.RoleManager, "support")
	outsider := person("a2", domain.RoleAgent, "sales")
	f := newTicketFixture(t, manager, outsider)
	f.tickets.put(domain.Ticket{ID: "t1", Title: "x", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow,
		CreatedBy: "r", DepartmentIDs: []string{"support"}})

	assignee := outsider.ID
	res, err := f.svc.BulkUpdate(context.Background(), manager, BulkUpdateInput{TicketIDs: []string{"t1"}, AssignedTo: &assignee})
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	if len(res.Updated) != 0 || !reflect.DeepEqual(res.Skipped, []string{"t1"}) {
		t.Fatalf("manager must not assign outside their department: %+v", res)
	}
	if len(f.tickets.bulkIDs) != 0 {
		t.Fatalf("nothing should reach storage, got %v", f.tickets.bulkIDs)
	}
}

func TestBulkUpdateValidatesSelection(t *testing.T) {
	manager := person("m1", domain.RoleManager, "support")
	f := newTicketFixture(t, manager)
	closed := domain.TicketStatusClosed

	if _, err := f.svc.BulkUpdate(context.Background(), manager, BulkUpdateInput{Status: &closed}); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("empty selection should fail validation, got %v", err)
	}
	if _, err := f.svc.BulkUpdate(context.Background(), manager, BulkUpdateInput{TicketIDs: []string{"t1"}}); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("empty patch should fail validation, got %v", err)
	}
	ids := make([]string, 101)
	for i := range ids {
		ids[i] = string(rune(0x4e00 + i))
	}
	if _, err := f.svc.BulkUpdate(context.Background(), manager, BulkUpdateInput{TicketIDs: ids, Status: &closed}); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("oversized selection should fail validation, got %v", err)
	}
}

func TestAssignTicket(t *testing.T) {
	manager := person("m1", domain.RoleManager, "support")
	inside := person("a1", domain.RoleAgent, "support")
	outside := person("a2", domain.RoleAgent, "sales")
	gone := person("a3", domain.RoleAgent, "support")
	deactivated := clock.Add(-time.Hour)
	gone.DeletedAt = &deactivated
	f := newTicketFixture(t, manager, inside, outside, gone)
	f.tickets.put(domain.Ticket{ID: "t1", Title: "x", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow,
		CreatedBy: "r", DepartmentIDs: []string{"support"}})
	ctx := context.Background()

	if _, err := f.svc.AssignTicket(ctx, manager, "t1", &outside.ID); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("cross-department assignment should be forbidden, got %v", err)
	}
	if _, err := f.svc.AssignTicket(ctx, manager, "t1", &gone.ID); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("deactivated candidate should be rejected, got %v", err)
	}
	ticket, err := f.svc.AssignTicket(ctx, manager, "t1", &inside.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !ticket.IsAssignedTo(inside.ID) {
		t.Fatalf("ticket not assigned: %+v", ticket)
	}
	if len(f.history.entries) != 1 || f.history.entries[0].ChangeType != domain.ChangeTypeAssignee {
		t.Fatalf("expected one assignee history row, got %+v", f.history.entries)
	}
	if _, err := f.svc.AssignTicket(ctx, inside, "t1", nil); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("agent cannot unassign, got %v", err)
	}
}

func TestUpdateAndDeleteTicketPermissions(t *testing.T) {
	owner := person("u1", domain.RoleUser, "")
	stranger := person("u2", domain.RoleUser, "")
	admin := person("sa", domain.RoleSystemAdmin, "")
	f := newTicketFixture(t, owner, stranger, admin)
	ctx := context.Background()

	ticket, err := f.svc.CreateTicket(ctx, owner, TicketCreateInput{Title: "VPN", Priority: domain.TicketPriorityHigh})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.GetTicket(ctx, stranger, ticket.ID); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("stranger should not view, got %v", err)
	}

	status := domain.TicketStatusResolved
	updated, err := f.svc.UpdateTicket(ctx, owner, ticket.ID, TicketUpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Status != domain.TicketStatusResolved {
		t.Fatalf("status not applied: %+v", updated)
	}
	if _, err := f.svc.UpdateTicket(ctx, stranger, ticket.ID, TicketUpdateInput{Status: &status}); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("stranger update should be forbidden, got %v", err)
	}

	if err := f.svc.DeleteTicket(ctx, owner, ticket.ID); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("creator without delete_tickets should be forbidden, got %v", err)
	}
	if err := f.svc.DeleteTicket(ctx, admin, ticket.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := f.svc.GetTicket(ctx, admin, ticket.ID); codeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("deleted ticket should be not found, got %v", err)
	}
}

func TestCountTicketsZeroForHiddenTabs(t *testing.T) {
	user := person("u1", domain.RoleUser, "support")
	f := newTicketFixture(t, user)
	f.tickets.put(domain.Ticket{ID: "t1", Title: "mine", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow,
		CreatedBy: user.ID, DepartmentIDs: []string{"support"}, UpdatedAt: clock.Add(-72 * time.Hour)})
	f.tickets.put(domain.Ticket{ID: "t2", Title: "team", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow,
		CreatedBy: "other", DepartmentIDs: []string{"support"}, CollaboratorIDs: []string{user.ID}})

	counts, err := f.svc.CountTickets(context.Background(), user, "")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	want := map[visibility.Tab]int{
		visibility.TabMyTickets:            1,
		visibility.TabDepartmentTickets:    2,
		visibility.TabCollaborationTickets: 1,
		visibility.TabStale:                0,
		visibility.TabAllTickets:           0,
	}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
}

func TestAnonymousCallerRejected(t *testing.T) {
	f := newTicketFixture(t)
	if _, err := f.svc.CreateTicket(context.Background(), nil, TicketCreateInput{Title: "x"}); codeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	var de *apperrors.DomainError
	_, err := f.svc.ListTickets(context.Background(), nil, visibility.Request{})
	if !errors.As(err, &de) || de.Message != "not authenticated" {
		t.Fatalf("expected generic message, got %v", err)
	}
}

func TestInternalNoteEventCarriesNoBody(t *testing.T) {
	user := person("u1", domain.RoleUser, "support")
	agent := person("a1", domain.RoleAgent, "support")
	f := newTicketFixture(t, user, agent)
	ctx := context.Background()
	f.tickets.put(domain.Ticket{ID: "t1", Title: "VPN down", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityHigh,
		CreatedBy: user.ID, DepartmentIDs: []string{"support"}})

	if _, err := f.svc.AddComment(ctx, agent, "t1", CommentInput{Body: "requester is on the watch list", IsInternal: true}); err != nil {
		t.Fatalf("internal note: %v", err)
	}
	if _, err := f.svc.AddComment(ctx, agent, "t1", CommentInput{Body: "We are looking into it"}); err != nil {
		t.Fatalf("public reply: %v", err)
	}

	var payloads []events.TicketCommentAddedPayload
	for _, e := range f.events {
		if p, ok := e.Payload.(events.TicketCommentAddedPayload); ok {
			payloads = append(payloads, p)
		}
	}
	if len(payloads) != 2 {
		t.Fatalf("expected 2 comment events, got %d", len(payloads))
	}
	if !payloads[0].IsInternal || payloads[0].BodyPreview != "" {
		t.Fatalf("internal note leaked its body: %+v", payloads[0])
	}
	if payloads[1].BodyPreview != "We are looking into it" {
		t.Fatalf("public reply preview = %q", payloads[1].BodyPreview)
	}

	visible, err := f.svc.ListComments(ctx, user, "t1")
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(visible) != 1 || visible[0].IsInternal {
		t.Fatalf("requester should only see the public reply: %+v", visible)
	}
}

func TestStringPreviewKeepsRunesWhole(t *testing.T) {
	got := stringPreview("  héllo wörld ünïcode  ", 8)
	if !utf8.ValidString(got) {
		t.Fatalf("preview split a rune: %q", got)
	}
	if got != "héllo..." {
		t.Fatalf("preview = %q", got)
	}
	if got := stringPreview("日本語", 5); got != "日本語" {
		t.Fatalf("short body should be kept, got %q", got)
	}
}
