package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestTicketCursorRoundTrip(t *testing.T) {
	cursor := TicketCursor{UpdatedAt: time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC), ID: "b7c2"}
	decoded, err := DecodeTicketCursor(cursor.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.UpdatedAt.Equal(cursor.UpdatedAt) || decoded.ID != cursor.ID {
		t.Fatalf("cursor mismatch: %+v", decoded)
	}
	for _, bad := range []string{"", "!!!", "bm90LWEtY3Vyc29y"} {
		if _, err := DecodeTicketCursor(bad); err != ErrInvalidCursor {
			t.Fatalf("expected ErrInvalidCursor for %q, got %v", bad, err)
		}
	}
}

func TestTicketFilterWhereRendersPlaceholders(t *testing.T) {
	actor := "p1"
	dept := "d1"
	status := domain.TicketStatusOpen
	filter := TicketFilter{
		CreatorOrAssignee: &actor,
		DepartmentID:      &dept,
		Search:            "50%_off",
		Status:            &status,
		After:             &TicketCursor{UpdatedAt: time.Now(), ID: "x"},
	}

	where, args := filter.Where(nil, true)
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d (%s)", len(args), where)
	}
	for _, fragment := range []string{
		"(t.created_by = $1 OR t.assigned_to = $1)",
		"td.department_id = $2",
		"t.title ILIKE $3",
		"t.status = $4",
		"(t.updated_at, t.id) < ($5, $6::uuid)",
	} {
		if !strings.Contains(where, fragment) {
			t.Fatalf("missing %q in %s", fragment, where)
		}
	}
	if args[2] != `%50\%\_off%` {
		t.Fatalf("search not escaped: %v", args[2])
	}

	where, args = filter.Where([]any{"seed"}, false)
	if strings.Contains(where, "t.updated_at, t.id") || len(args) != 5 {
		t.Fatalf("count query must skip the cursor: %s %v", where, args)
	}
	if !strings.Contains(where, "t.created_by = $2") {
		t.Fatalf("placeholders must continue after existing args: %s", where)
	}
}

func TestTicketFilterMatches(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assignee := "p2"
	ticket := domain.Ticket{
		ID:            "t1",
		Title:         "Printer on fire",
		Status:        domain.TicketStatusInProgress,
		Priority:      domain.TicketPriorityHigh,
		CreatedBy:     "p1",
		AssignedTo:    &assignee,
		DepartmentIDs: []string{"ops"},
		UpdatedAt:     now.Add(-72 * time.Hour),
	}
	stale := now.Add(-48 * time.Hour)
	high := domain.TicketPriorityHigh
	low := domain.TicketPriorityLow

	cases := []struct {
		name   string
		filter TicketFilter
		want   bool
	}{
		{"empty", TicketFilter{}, true},
		{"assignee", TicketFilter{CreatorOrAssignee: &assignee}, true},
		{"other department", TicketFilter{DepartmentID: strPtr("sales")}, false},
		{"search case insensitive", TicketFilter{Search: "PRINTER"}, true},
		{"search miss", TicketFilter{Search: "scanner"}, false},
		{"stale", TicketFilter{StaleBefore: &stale}, true},
		{"priority", TicketFilter{Priority: &high}, true},
		{"priority miss", TicketFilter{Priority: &low}, false},
		{"id set miss", TicketFilter{IDs: []string{}}, false},
		{"cursor excludes newer", TicketFilter{After: &TicketCursor{UpdatedAt: now.Add(-96 * time.Hour), ID: "z"}}, false},
		{"cursor tie breaks on id", TicketFilter{After: &TicketCursor{UpdatedAt: ticket.UpdatedAt, ID: "t2"}}, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Matches(&ticket); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}

	ticket.Status = domain.TicketStatusResolved
	if (TicketFilter{StaleBefore: &stale}).Matches(&ticket) {
		t.Fatalf("resolved tickets are never stale")
	}
}

func TestSortTickets(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		{ID: "a", UpdatedAt: base},
		{ID: "c", UpdatedAt: base.Add(time.Hour)},
		{ID: "b", UpdatedAt: base},
	}
	SortTickets(tickets)
	if tickets[0].ID != "c" || tickets[1].ID != "b" || tickets[2].ID != "a" {
		t.Fatalf("unexpected order %v %v %v", tickets[0].ID, tickets[1].ID, tickets[2].ID)
	}
}

func strPtr(s string) *string { return &s }

func TestValidUUIDsDropsMalformedKeys(t *testing.T) {
	good := "9b2f6c1e-4d7a-4c55-8f0e-2a1d3b6c7e90"
	got := validUUIDs([]string{good, "x", "", "t1; DROP TABLE tickets"})
	if len(got) != 1 || got[0] != good {
		t.Fatalf("validUUIDs = %v", got)
	}
}
