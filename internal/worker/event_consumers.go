package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartEventConsumers subscribes the in-process ticket event consumers: notifications
// and the realtime forwarder that fans events out to websocket subscribers.
func StartEventConsumers(dispatcher events.Dispatcher, notifications *service.NotificationService, forwarder *realtime.Forwarder) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if forwarder != nil && dispatcher != nil {
		forwarder.Register(dispatcher)
	}
}
