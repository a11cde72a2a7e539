package realtime

import (
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func localList() []domain.Ticket {
	return []domain.Ticket{
		{ID: "t3", Title: "three", Description: "kept", Status: domain.TicketStatusOpen, UpdatedAt: base.Add(3 * time.Hour)},
		{ID: "t2", Title: "two", Status: domain.TicketStatusOpen, UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "t1", Title: "one", Status: domain.TicketStatusOpen, UpdatedAt: base.Add(time.Hour)},
	}
}

func changed(t domain.Ticket) TicketMessage {
	snap := events.SnapshotOf(&t)
	return TicketMessage{Type: events.EventTicketUpdated, TicketID: t.ID, Ticket: &snap}
}

func order(tickets []domain.Ticket) string {
	out := ""
	for _, t := range tickets {
		out += t.ID
	}
	return out
}

func TestReconcileUpdateMovesTicketToTop(t *testing.T) {
	local := localList()
	updated := domain.Ticket{ID: "t1", Title: "one!", Status: domain.TicketStatusResolved, UpdatedAt: base.Add(4 * time.Hour)}

	got := Reconcile(local, changed(updated))
	if order(got) != "t1t3t2" {
		t.Fatalf("order=%s", order(got))
	}
	if got[0].Status != domain.TicketStatusResolved {
		t.Fatalf("server copy should replace local")
	}
	if order(local) != "t3t2t1" {
		t.Fatalf("input must not be modified")
	}
}

func TestReconcileIgnoresOutOfDateEvent(t *testing.T) {
	local := localList()
	stale := domain.Ticket{ID: "t3", Title: "old title", UpdatedAt: base}
	got := Reconcile(local, changed(stale))
	if got[0].Title != "three" || order(got) != "t3t2t1" {
		t.Fatalf("older event must be ignored: %+v", got[0])
	}
}

func TestReconcileServerWinsOverOptimisticEdit(t *testing.T) {
	local := ApplyLocal(localList(), "t3", func(t *domain.Ticket) { t.Status = domain.TicketStatusClosed })
	if local[0].Status != domain.TicketStatusClosed {
		t.Fatalf("optimistic edit not applied")
	}
	confirmed := domain.Ticket{ID: "t3", Title: "three", Status: domain.TicketStatusInProgress, UpdatedAt: base.Add(3 * time.Hour)}
	got := Reconcile(local, changed(confirmed))
	if got[0].Status != domain.TicketStatusInProgress {
		t.Fatalf("server event should override speculative state")
	}
	if got[0].Description != "kept" {
		t.Fatalf("description should survive reconciliation")
	}
}

func TestReconcileInsertAndDelete(t *testing.T) {
	created := domain.Ticket{ID: "t4", Title: "four", UpdatedAt: base.Add(90 * time.Minute)}
	snap := events.SnapshotOf(&created)
	got := Reconcile(localList(), TicketMessage{Type: events.EventTicketCreated, TicketID: "t4", Ticket: &snap})
	if order(got) != "t3t2t4t1" {
		t.Fatalf("insert order=%s", order(got))
	}

	got = Reconcile(got, TicketMessage{Type: events.EventTicketDeleted, TicketID: "t2"})
	if order(got) != "t3t4t1" {
		t.Fatalf("delete order=%s", order(got))
	}

	got = Reconcile(got, TicketMessage{Type: events.EventTicketDeleted, TicketID: "missing"})
	if order(got) != "t3t4t1" {
		t.Fatalf("unknown delete must be a no-op, got %s", order(got))
	}
}

func TestReconcileViewDropsNonMatching(t *testing.T) {
	openOnly := func(t *domain.Ticket) bool { return t.Status == domain.TicketStatusOpen }
	closed := domain.Ticket{ID: "t2", Status: domain.TicketStatusClosed, UpdatedAt: base.Add(5 * time.Hour)}
	got := ReconcileView(localList(), changed(closed), openOnly)
	if order(got) != "t3t1" {
		t.Fatalf("closed ticket should leave open view, got %s", order(got))
	}
}
