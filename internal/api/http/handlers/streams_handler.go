package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StreamsHandler authorizes websocket subscriptions before the upgrade.
type StreamsHandler struct {
	tickets *service.TicketService
	chats   *service.ChatService
	stream  *realtime.Stream
}

// NewStreamsHandler constructs handler.
func NewStreamsHandler(tickets *service.TicketService, chats *service.ChatService, stream *realtime.Stream) *StreamsHandler {
	return &StreamsHandler{tickets: tickets, chats: chats, stream: stream}
}

// AuthorizeTicket lets the upgrade through only when the caller may view the ticket.
func (h *StreamsHandler) AuthorizeTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if _, err := h.tickets.GetTicket(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return c.Next()
}

// AuthorizeChat checks the visitor secret in the path.
func (h *StreamsHandler) AuthorizeChat(c *fiber.Ctx) error {
	if _, err := h.chats.VisitorSession(c.UserContext(), c.Params("id"), c.Params("secret")); err != nil {
		return err
	}
	return c.Next()
}

// AuthorizeAgentChat lets staff with chat access watch a session.
func (h *StreamsHandler) AuthorizeAgentChat(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if _, err := h.chats.AgentMessages(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return c.Next()
}

// Ticket GET /ws/tickets/:id.
func (h *StreamsHandler) Ticket() fiber.Handler {
	return h.stream.Handler(func(conn *websocket.Conn) string {
		return realtime.TicketSubject(conn.Params("id"))
	})
}

// Chat GET /ws/chat/:id/:secret.
func (h *StreamsHandler) Chat() fiber.Handler {
	return h.stream.Handler(func(conn *websocket.Conn) string {
		return realtime.ChatSubject(conn.Params("id"))
	})
}
