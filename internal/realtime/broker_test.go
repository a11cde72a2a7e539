package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

func TestMemoryBrokerSubscribeUnsubscribe(t *testing.T) {
	b := NewMemoryBroker()
	var got []string
	unsubscribe, err := b.Subscribe("chat.1", func(p []byte) { got = append(got, string(p)) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = b.Publish(context.Background(), "chat.1", []byte("hello"))
	_ = b.Publish(context.Background(), "chat.2", []byte("other"))
	unsubscribe()
	_ = b.Publish(context.Background(), "chat.1", []byte("late"))

	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("unexpected deliveries %v", got)
	}
}

func TestForwarderPublishesTicketAndFeedSubjects(t *testing.T) {
	b := NewMemoryBroker()
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewForwarder(b, nil).Register(dispatcher)

	var perTicket, feed []TicketMessage
	_, _ = b.Subscribe(TicketSubject("t1"), func(p []byte) {
		var m TicketMessage
		if err := json.Unmarshal(p, &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		perTicket = append(perTicket, m)
	})
	_, _ = b.Subscribe(TicketFeedSubject, func(p []byte) {
		var m TicketMessage
		_ = json.Unmarshal(p, &m)
		feed = append(feed, m)
	})

	ticket := domain.Ticket{ID: "t1", Title: "hi", Status: domain.TicketStatusOpen, UpdatedAt: time.Now().UTC()}
	_ = dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: "t1",
		ActorID:  "p1",
		Payload:  events.TicketChangedPayload{Ticket: events.SnapshotOf(&ticket), Changes: []string{"status"}},
	})

	if len(perTicket) != 1 || len(feed) != 1 {
		t.Fatalf("expected one message per subject, got %d/%d", len(perTicket), len(feed))
	}
	if perTicket[0].Ticket == nil || perTicket[0].Ticket.Title != "hi" || perTicket[0].ActorID != "p1" {
		t.Fatalf("snapshot missing: %+v", perTicket[0])
	}
}
