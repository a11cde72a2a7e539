package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const maxChatMessageLength = 4000

// ChatEvent is published on a session's subject for every message.
type ChatEvent struct {
	Type    string           `json:"type"`
	Session string           `json:"session_id"`
	Mode    domain.ChatMode  `json:"mode"`
	Message ChatEventMessage `json:"message"`
}

// ChatEventMessage is the wire form of a chat line.
type ChatEventMessage struct {
	ID        string            `json:"id"`
	Sender    domain.ChatSender `json:"sender"`
	SenderID  *string           `json:"sender_id,omitempty"`
	Body      string            `json:"body"`
	CreatedAt time.Time         `json:"created_at"`
}

// ChatService runs the visitor chat widget: AI answers first, agents can take over.
type ChatService struct {
	chats     repository.ChatRepository
	authz     *authz.Checker
	assistant ai.Assistant
	broker    realtime.Broker
	logger    *zap.Logger
}

// ChatDependencies bundles collaborators.
type ChatDependencies struct {
	ChatRepo  repository.ChatRepository
	Authz     *authz.Checker
	Assistant ai.Assistant
	Broker    realtime.Broker
	Logger    *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		chats:     deps.ChatRepo,
		authz:     deps.Authz,
		assistant: deps.Assistant,
		broker:    deps.Broker,
		logger:    logger,
	}
}

// StartSession opens an anonymous session. The returned secret authenticates the visitor.
func (s *ChatService) StartSession(ctx context.Context, visitorName, visitorEmail string) (*domain.ChatSession, error) {
	session := &domain.ChatSession{
		Secret:       uuid.NewString(),
		VisitorName:  strings.TrimSpace(visitorName),
		VisitorEmail: strings.TrimSpace(visitorEmail),
		Mode:         domain.ChatModeAI,
	}
	if session.VisitorName == "" {
		session.VisitorName = "Visitor"
	}
	if err := s.chats.CreateSession(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// VisitorSession authenticates a visitor by session secret.
func (s *ChatService) VisitorSession(ctx context.Context, sessionID, secret string) (*domain.ChatSession, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthenticated()
		}
		return nil, err
	}
	if secret == "" || subtle.ConstantTimeCompare([]byte(session.Secret), []byte(secret)) != 1 {
		return nil, apperrors.NewUnauthenticated()
	}
	return session, nil
}

// VisitorMessages returns the transcript to its visitor.
func (s *ChatService) VisitorMessages(ctx context.Context, sessionID, secret string) ([]domain.ChatMessage, error) {
	session, err := s.VisitorSession(ctx, sessionID, secret)
	if err != nil {
		return nil, err
	}
	return s.messages(ctx, session.ID)
}

// PostVisitorMessage stores a visitor line. In AI mode the assistant answers
// immediately; the reply is included in the result.
func (s *ChatService) PostVisitorMessage(ctx context.Context, sessionID, secret, body string) ([]domain.ChatMessage, error) {
	session, err := s.VisitorSession(ctx, sessionID, secret)
	if err != nil {
		return nil, err
	}
	if session.Mode == domain.ChatModeClosed {
		return nil, apperrors.NewConflict("chat session is closed", nil)
	}
	body, err = chatBody(body)
	if err != nil {
		return nil, err
	}

	msg, err := s.addMessage(ctx, session, domain.ChatSenderVisitor, nil, body)
	if err != nil {
		return nil, err
	}
	out := []domain.ChatMessage{*msg}
	if session.Mode != domain.ChatModeAI {
		return out, nil
	}

	history, err := s.messages(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	answer := ai.ReplyOrFallback(ctx, s.assistant, history, s.logger)
	reply, err := s.addMessage(ctx, session, domain.ChatSenderAI, nil, answer)
	if err != nil {
		return nil, err
	}
	return append(out, *reply), nil
}

// RequestAgent moves an AI session into the agent queue.
func (s *ChatService) RequestAgent(ctx context.Context, sessionID, secret string) (*domain.ChatSession, error) {
	session, err := s.VisitorSession(ctx, sessionID, secret)
	if err != nil {
		return nil, err
	}
	if session.Mode != domain.ChatModeAI {
		return session, nil
	}
	session.Mode = domain.ChatModeWaiting
	if err := s.chats.UpdateSession(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.addMessage(ctx, session, domain.ChatSenderSystem, nil, "An agent has been requested and will join shortly."); err != nil {
		return nil, err
	}
	return session, nil
}

// CloseByVisitor ends the session from the widget.
func (s *ChatService) CloseByVisitor(ctx context.Context, sessionID, secret string) (*domain.ChatSession, error) {
	session, err := s.VisitorSession(ctx, sessionID, secret)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, session, "The visitor ended the chat.")
}

// ListSessions returns sessions in the given modes for the agent console.
func (s *ChatService) ListSessions(ctx context.Context, actor *domain.Profile, modes []domain.ChatMode) ([]domain.ChatSession, error) {
	if err := s.requireAgent(ctx, actor); err != nil {
		return nil, err
	}
	if len(modes) == 0 {
		modes = []domain.ChatMode{domain.ChatModeAI, domain.ChatModeWaiting, domain.ChatModeAgent}
	}
	sessions, err := s.chats.ListSessions(ctx, modes)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sessions, nil
}

// AgentMessages returns a transcript to a staff member allowed to take over chats.
func (s *ChatService) AgentMessages(ctx context.Context, actor *domain.Profile, sessionID string) ([]domain.ChatMessage, error) {
	if err := s.requireAgent(ctx, actor); err != nil {
		return nil, err
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.messages(ctx, session.ID)
}

// TakeOver hands the session to actor. The AI stops answering.
func (s *ChatService) TakeOver(ctx context.Context, actor *domain.Profile, sessionID string) (*domain.ChatSession, error) {
	if err := s.requireAgent(ctx, actor); err != nil {
		return nil, err
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case session.Mode == domain.ChatModeClosed:
		return nil, apperrors.NewConflict("chat session is closed", nil)
	case session.Mode == domain.ChatModeAgent && session.AgentID != nil && *session.AgentID == actor.ID:
		return session, nil
	case session.Mode == domain.ChatModeAgent:
		return nil, apperrors.NewConflict("Another agent is already handling this chat", nil)
	}

	agentID := actor.ID
	session.Mode = domain.ChatModeAgent
	session.AgentID = &agentID
	if err := s.chats.UpdateSession(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	name := actor.FullName
	if name == "" {
		name = "An agent"
	}
	if _, err := s.addMessage(ctx, session, domain.ChatSenderSystem, nil, name+" joined the chat."); err != nil {
		return nil, err
	}
	return session, nil
}

// AgentReply posts a line from the agent that owns the session.
func (s *ChatService) AgentReply(ctx context.Context, actor *domain.Profile, sessionID, body string) (*domain.ChatMessage, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mode == domain.ChatModeClosed {
		return nil, apperrors.NewConflict("chat session is closed", nil)
	}
	if session.Mode != domain.ChatModeAgent || session.AgentID == nil || *session.AgentID != actor.ID {
		return nil, apperrors.NewForbidden("Only the agent handling this chat can reply")
	}
	body, err = chatBody(body)
	if err != nil {
		return nil, err
	}
	agentID := actor.ID
	return s.addMessage(ctx, session, domain.ChatSenderAgent, &agentID, body)
}

// CloseByAgent ends the session from the console.
func (s *ChatService) CloseByAgent(ctx context.Context, actor *domain.Profile, sessionID string) (*domain.ChatSession, error) {
	if err := s.requireAgent(ctx, actor); err != nil {
		return nil, err
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mode == domain.ChatModeAgent && session.AgentID != nil && *session.AgentID != actor.ID && !authz.IsGlobal(actor.Role) {
		return nil, apperrors.NewForbidden("Only the agent handling this chat can close it")
	}
	return s.close(ctx, session, "The chat was closed by the agent.")
}

func (s *ChatService) close(ctx context.Context, session *domain.ChatSession, note string) (*domain.ChatSession, error) {
	if session.Mode == domain.ChatModeClosed {
		return session, nil
	}
	session.Mode = domain.ChatModeClosed
	if err := s.chats.UpdateSession(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.addMessage(ctx, session, domain.ChatSenderSystem, nil, note); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) addMessage(ctx context.Context, session *domain.ChatSession, sender domain.ChatSender, senderID *string, body string) (*domain.ChatMessage, error) {
	msg := &domain.ChatMessage{SessionID: session.ID, Sender: sender, SenderID: senderID, Body: body}
	if err := s.chats.AddMessage(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, ChatEvent{
		Type:    "message",
		Session: session.ID,
		Mode:    session.Mode,
		Message: ChatEventMessage{ID: msg.ID, Sender: msg.Sender, SenderID: msg.SenderID, Body: msg.Body, CreatedAt: msg.CreatedAt},
	})
	return msg, nil
}

func (s *ChatService) publish(ctx context.Context, event ChatEvent) {
	if s.broker == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("chat event encode failed", zap.Error(err))
		return
	}
	if err := s.broker.Publish(ctx, realtime.ChatSubject(event.Session), data); err != nil {
		s.logger.Warn("chat event publish failed", zap.String("session_id", event.Session), zap.Error(err))
	}
}

func (s *ChatService) messages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	msgs, err := s.chats.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

func (s *ChatService) loadSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	session, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("chat session", map[string]any{"session_id": sessionID})
		}
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

func (s *ChatService) requireAgent(ctx context.Context, actor *domain.Profile) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.authz.Require(ctx, actor, domain.PermTakeOverChats, "You do not have permission to handle chats")
}

func chatBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperrors.NewValidationError("body is required", nil)
	}
	if len(body) > maxChatMessageLength {
		return "", apperrors.NewValidationError("body must be at most 4000 characters", nil)
	}
	return body, nil
}
