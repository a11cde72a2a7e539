package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// TicketMessage is what ticket stream subscribers receive.
type TicketMessage struct {
	Type     events.EventType       `json:"type"`
	TicketID string                 `json:"ticket_id"`
	ActorID  string                 `json:"actor_id"`
	Ticket   *events.TicketSnapshot `json:"ticket,omitempty"`
	Payload  interface{}            `json:"payload,omitempty"`
}

// Forwarder relays ticket events from the dispatcher to the broker.
type Forwarder struct {
	broker Broker
	logger *zap.Logger
}

// NewForwarder builds a forwarder.
func NewForwarder(broker Broker, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{broker: broker, logger: logger}
}

// Register subscribes the forwarder to every ticket event.
func (f *Forwarder) Register(dispatcher events.Dispatcher) {
	events.SubscribeAll(dispatcher, events.TicketEventTypes, f.forward)
}

func (f *Forwarder) forward(ctx context.Context, event events.Event) error {
	msg := TicketMessage{Type: event.Type, TicketID: event.TicketID, ActorID: event.ActorID, Payload: event.Payload}
	switch p := event.Payload.(type) {
	case events.TicketChangedPayload:
		snap := p.Ticket
		msg.Ticket = &snap
	case events.TicketCommentAddedPayload:
		snap := p.Ticket
		msg.Ticket = &snap
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	for _, subject := range []string{TicketSubject(event.TicketID), TicketFeedSubject} {
		if err := f.broker.Publish(ctx, subject, data); err != nil {
			f.logger.Warn("realtime publish failed", zap.String("subject", subject), zap.Error(err))
		}
	}
	return nil
}
