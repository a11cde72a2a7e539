package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ChatRepository persists live chat sessions and their messages.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	UpdateSession(ctx context.Context, session *domain.ChatSession) error
	ListSessions(ctx context.Context, modes []domain.ChatMode) ([]domain.ChatSession, error)
	AddMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
}

type chatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository builds the repository.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepository{pool: pool}
}

const chatSessionColumns = `id, secret, visitor_name, visitor_email, mode, agent_id, created_at, updated_at`

func (r *chatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	const query = `
        INSERT INTO chat_sessions (secret, visitor_name, visitor_email, mode)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		session.Secret,
		session.VisitorName,
		session.VisitorEmail,
		session.Mode,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
}

func (r *chatRepository) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	sessions, err := r.querySessions(ctx, `SELECT `+chatSessionColumns+` FROM chat_sessions WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &sessions[0], nil
}

func (r *chatRepository) UpdateSession(ctx context.Context, session *domain.ChatSession) error {
	const query = `
        UPDATE chat_sessions SET mode=$1, agent_id=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, session.Mode, session.AgentID, session.ID).Scan(&session.UpdatedAt)
}

func (r *chatRepository) ListSessions(ctx context.Context, modes []domain.ChatMode) ([]domain.ChatSession, error) {
	values := make([]string, len(modes))
	for i, m := range modes {
		values[i] = string(m)
	}
	return r.querySessions(ctx, `SELECT `+chatSessionColumns+` FROM chat_sessions
        WHERE cardinality($1::text[]) = 0 OR mode = ANY($1::text[])
        ORDER BY updated_at DESC`, values)
}

func (r *chatRepository) querySessions(ctx context.Context, query string, args ...any) ([]domain.ChatSession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatSession
	for rows.Next() {
		var s domain.ChatSession
		if err := rows.Scan(&s.ID, &s.Secret, &s.VisitorName, &s.VisitorEmail, &s.Mode, &s.AgentID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *chatRepository) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (session_id, sender, sender_id, body)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.SessionID,
		msg.Sender,
		msg.SenderID,
		msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *chatRepository) ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, session_id, sender, sender_id, body, created_at
        FROM chat_messages WHERE session_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
