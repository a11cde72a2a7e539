package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AttachmentRepository reads attachment metadata. Rows are written with their comment.
type AttachmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByComment(ctx context.Context, commentID string) ([]domain.Attachment, error)
	TicketIDForAttachment(ctx context.Context, id string) (string, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const attachmentColumns = `a.id, a.comment_id, a.storage_key, a.file_name, a.mime_type, a.size_bytes, a.created_at`

func insertAttachment(ctx context.Context, q querier, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (comment_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		attachment.CommentID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	attachments, err := queryAttachments(ctx, r.pool, `SELECT `+attachmentColumns+` FROM ticket_attachments a WHERE a.id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &attachments[0], nil
}

func (r *attachmentRepository) ListByComment(ctx context.Context, commentID string) ([]domain.Attachment, error) {
	return queryAttachments(ctx, r.pool, `SELECT `+attachmentColumns+` FROM ticket_attachments a WHERE a.comment_id=$1 ORDER BY a.created_at`, commentID)
}

func (r *attachmentRepository) TicketIDForAttachment(ctx context.Context, id string) (string, error) {
	const query = `
        SELECT c.ticket_id FROM ticket_attachments a
        JOIN ticket_comments c ON c.id = a.comment_id
        WHERE a.id=$1`
	var ticketID string
	err := r.pool.QueryRow(ctx, query, id).Scan(&ticketID)
	return ticketID, err
}

func listAttachmentsByTicket(ctx context.Context, q querier, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT ` + attachmentColumns + `
        FROM ticket_attachments a
        JOIN ticket_comments c ON c.id = a.comment_id
        WHERE c.ticket_id=$1
        ORDER BY a.created_at`
	return queryAttachments(ctx, q, query, ticketID)
}

func queryAttachments(ctx context.Context, q querier, query string, args ...any) ([]domain.Attachment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.CommentID,
			&attachment.StorageKey,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
