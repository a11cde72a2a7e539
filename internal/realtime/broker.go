package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ErrBrokerClosed is returned after the broker connection has gone away.
var ErrBrokerClosed = errors.New("realtime broker not connected")

// Handler receives a raw message published on a subject.
type Handler func(payload []byte)

// Broker fans messages out to subscribers of a subject.
type Broker interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Subscribe(subject string, handler Handler) (unsubscribe func(), err error)
}

// TicketSubject is the subject for one ticket's events.
func TicketSubject(ticketID string) string { return "tickets." + ticketID }

// TicketFeedSubject carries every ticket event, for list views.
const TicketFeedSubject = "tickets.feed"

// ChatSubject is the subject for one chat session.
func ChatSubject(sessionID string) string { return "chat." + sessionID }

// NATSBroker publishes through a NATS connection.
type NATSBroker struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATSBroker wraps conn.
func NewNATSBroker(conn *nats.Conn, logger *zap.Logger) *NATSBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSBroker{conn: conn, logger: logger}
}

// Publish sends payload on subject.
func (b *NATSBroker) Publish(_ context.Context, subject string, payload []byte) error {
	if b.conn == nil || !b.conn.IsConnected() {
		return ErrBrokerClosed
	}
	return b.conn.Publish(subject, payload)
}

// Subscribe registers handler for subject.
func (b *NATSBroker) Subscribe(subject string, handler Handler) (func(), error) {
	if b.conn == nil || !b.conn.IsConnected() {
		return nil, ErrBrokerClosed
	}
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			b.logger.Debug("nats unsubscribe failed", zap.String("subject", subject), zap.Error(err))
		}
	}, nil
}

// MemoryBroker delivers messages within the process. Used when NATS is not configured.
type MemoryBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewMemoryBroker builds an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]Handler)}
}

// Publish calls every handler subscribed to subject.
func (b *MemoryBroker) Publish(_ context.Context, subject string, payload []byte) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[subject]))
	for _, h := range b.subs[subject] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
	return nil
}

// Subscribe registers handler for subject.
func (b *MemoryBroker) Subscribe(subject string, handler Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[subject] == nil {
		b.subs[subject] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[subject][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[subject], id)
		if len(b.subs[subject]) == 0 {
			delete(b.subs, subject)
		}
	}, nil
}
