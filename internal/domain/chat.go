package domain

import "time"

// ChatMode tracks who answers a live chat session.
type ChatMode string

const (
	ChatModeAI      ChatMode = "ai"
	ChatModeWaiting ChatMode = "waiting"
	ChatModeAgent   ChatMode = "agent"
	ChatModeClosed  ChatMode = "closed"
)

// ChatSender identifies the author of a chat message.
type ChatSender string

const (
	ChatSenderVisitor ChatSender = "visitor"
	ChatSenderAI      ChatSender = "ai"
	ChatSenderAgent   ChatSender = "agent"
	ChatSenderSystem  ChatSender = "system"
)

// ChatSession is an anonymous visitor conversation. Secret authenticates the visitor.
type ChatSession struct {
	ID           string
	Secret       string
	VisitorName  string
	VisitorEmail string
	Mode         ChatMode
	AgentID      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChatMessage is one line in a chat session.
type ChatMessage struct {
	ID        string
	SessionID string
	Sender    ChatSender
	SenderID  *string
	Body      string
	CreatedAt time.Time
}
