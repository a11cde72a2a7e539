package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository stores ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error)
	FirstResponseAt(ctx context.Context, ticketID, requesterID string) (*time.Time, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository constructs repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

// Create inserts the comment and its attachment rows in one transaction and
// bumps the ticket's updated_at.
func (r *commentRepository) Create(ctx context.Context, comment *domain.TicketComment) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            INSERT INTO ticket_comments (ticket_id, author_id, body, is_internal)
            VALUES ($1,$2,$3,$4)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, query,
			comment.TicketID,
			comment.AuthorID,
			comment.Body,
			comment.IsInternal,
		).Scan(&comment.ID, &comment.CreatedAt); err != nil {
			return err
		}
		for i := range comment.Attachments {
			att := &comment.Attachments[i]
			att.CommentID = comment.ID
			if err := insertAttachment(ctx, tx, att); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `UPDATE tickets SET updated_at=NOW() WHERE id=$1`, comment.TicketID)
		return err
	})
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, is_internal, created_at
        FROM ticket_comments
        WHERE ticket_id=$1 AND (is_internal = FALSE OR $2::boolean)
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketComment
	index := map[string]int{}
	for rows.Next() {
		var comment domain.TicketComment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Body,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		index[comment.ID] = len(result)
		result = append(result, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	attachments, err := listAttachmentsByTicket(ctx, r.pool, ticketID)
	if err != nil {
		return nil, err
	}
	for _, att := range attachments {
		if i, ok := index[att.CommentID]; ok {
			result[i].Attachments = append(result[i].Attachments, att)
		}
	}
	return result, nil
}

// FirstResponseAt returns when someone other than the requester first commented publicly.
func (r *commentRepository) FirstResponseAt(ctx context.Context, ticketID, requesterID string) (*time.Time, error) {
	const query = `
        SELECT MIN(created_at) FROM ticket_comments
        WHERE ticket_id=$1 AND author_id <> $2 AND is_internal = FALSE`
	var first *time.Time
	if err := r.pool.QueryRow(ctx, query, ticketID, requesterID).Scan(&first); err != nil {
		return nil, err
	}
	return first, nil
}
