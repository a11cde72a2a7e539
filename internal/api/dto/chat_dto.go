package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StartChatRequest payload.
type StartChatRequest struct {
	VisitorName  string `json:"visitor_name" validate:"max=120"`
	VisitorEmail string `json:"visitor_email" validate:"omitempty,email"`
}

// ChatMessageRequest payload.
type ChatMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// ChatSessionResponse is the agent view of a session.
type ChatSessionResponse struct {
	ID           string          `json:"id"`
	VisitorName  string          `json:"visitor_name"`
	VisitorEmail string          `json:"visitor_email"`
	Mode         domain.ChatMode `json:"mode"`
	AgentID      *string         `json:"agent_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// VisitorSessionResponse is returned once at session start and carries the secret.
type VisitorSessionResponse struct {
	ChatSessionResponse
	Secret string `json:"secret"`
}

// ChatMessageResponse is one chat line.
type ChatMessageResponse struct {
	ID        string            `json:"id"`
	Sender    domain.ChatSender `json:"sender"`
	SenderID  *string           `json:"sender_id,omitempty"`
	Body      string            `json:"body"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewChatSessionResponse maps a session without its secret.
func NewChatSessionResponse(s *domain.ChatSession) ChatSessionResponse {
	return ChatSessionResponse{
		ID:           s.ID,
		VisitorName:  s.VisitorName,
		VisitorEmail: s.VisitorEmail,
		Mode:         s.Mode,
		AgentID:      s.AgentID,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// NewChatMessages maps a transcript.
func NewChatMessages(msgs []domain.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, NewChatMessageResponse(&msgs[i]))
	}
	return out
}

// NewChatMessageResponse maps one message.
func NewChatMessageResponse(m *domain.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:        m.ID,
		Sender:    m.Sender,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
