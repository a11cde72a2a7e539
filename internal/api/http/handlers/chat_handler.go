package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ChatSecretHeader carries the visitor's session secret on widget routes.
const ChatSecretHeader = "X-Chat-Secret"

// ChatHandler serves the public widget and the agent console.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{service: chatService}
}

// StartSession POST /chat/sessions.
func (h *ChatHandler) StartSession(c *fiber.Ctx) error {
	var req dto.StartChatRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	session, err := h.service.StartSession(c.UserContext(), req.VisitorName, req.VisitorEmail)
	if err != nil {
		return err
	}
	return created(c, dto.VisitorSessionResponse{
		ChatSessionResponse: dto.NewChatSessionResponse(session),
		Secret:              session.Secret,
	})
}

// GetSession GET /chat/sessions/:id.
func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.service.VisitorSession(c.UserContext(), c.Params("id"), visitorSecret(c))
	if err != nil {
		return err
	}
	return ok(c, dto.NewChatSessionResponse(session))
}

// VisitorMessages GET /chat/sessions/:id/messages.
func (h *ChatHandler) VisitorMessages(c *fiber.Ctx) error {
	msgs, err := h.service.VisitorMessages(c.UserContext(), c.Params("id"), visitorSecret(c))
	if err != nil {
		return err
	}
	return ok(c, dto.NewChatMessages(msgs))
}

// PostVisitorMessage POST /chat/sessions/:id/messages. Returns the visitor line and any assistant reply.
func (h *ChatHandler) PostVisitorMessage(c *fiber.Ctx) error {
	var req dto.ChatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msgs, err := h.service.PostVisitorMessage(c.UserContext(), c.Params("id"), visitorSecret(c), req.Body)
	if err != nil {
		return err
	}
	return created(c, dto.NewChatMessages(msgs))
}

// RequestAgent POST /chat/sessions/:id/request-agent.
func (h *ChatHandler) RequestAgent(c *fiber.Ctx) error {
	session, err := h.service.RequestAgent(c.UserContext(), c.Params("id"), visitorSecret(c))
	if err != nil {
		return err
	}
	return ok(c, dto.NewChatSessionResponse(session))
}

// CloseByVisitor POST /chat/sessions/:id/close.
func (h *ChatHandler) CloseByVisitor(c *fiber.Ctx) error {
	session, err := h.service.CloseByVisitor(c.UserContext(), c.Params("id"), visitorSecret(c))
	if err != nil {
		return err
	}
	return ok(c, dto.NewChatSessionResponse(session))
}

// ListSessions GET /api/chats?mode=waiting,agent.
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var modes []domain.ChatMode
	for _, m := range strings.Split(c.Query("mode"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			modes = append(modes, domain.ChatMode(m))
		}
	}
	sessions, err := h.service.ListSessions(c.UserContext(), profile, modes)
	if err != nil {
		return err
	}
	items := make([]dto.ChatSessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, dto.NewChatSessionResponse(&sessions[i]))
	}
	return ok(c, items)
}

// AgentMessages GET /api/chats/:id/messages.
func (h *ChatHandler) AgentMessages(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	msgs, err := h.service.AgentMessages(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewChatMessages(msgs))
}

// TakeOver POST /api/chats/:id/takeover.
func (h *ChatHandler) TakeOver(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	session, err := h.service.TakeOver(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewChatSessionResponse(session))
}

// Reply POST /api/chats/:id/reply.
func (h *ChatHandler) Reply(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ChatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.service.AgentReply(c.UserContext(), profile, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return created(c, dto.NewChatMessageResponse(msg))
}

// CloseByAgent POST /api/chats/:id/close.
func (h *ChatHandler) CloseByAgent(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	session, err := h.service.CloseByAgent(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewChatSessionResponse(session))
}

func visitorSecret(c *fiber.Ctx) string {
	if secret := c.Get(ChatSecretHeader); secret != "" {
		return secret
	}
	return c.Query("secret")
}
