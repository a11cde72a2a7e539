package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CRMTicketFilter narrows the local CRM mirror listing.
type CRMTicketFilter struct {
	Search string
	Status string
	Limit  int
	Offset int
}

// CRMTicketRepository stores the local mirror of CRM tickets.
type CRMTicketRepository interface {
	Upsert(ctx context.Context, tickets []domain.CRMTicket) (int, error)
	GetByCRMID(ctx context.Context, crmID string) (*domain.CRMTicket, error)
	List(ctx context.Context, filter CRMTicketFilter) ([]domain.CRMTicket, int, error)
}

type crmTicketRepository struct {
	pool *pgxpool.Pool
}

// NewCRMTicketRepository builds the repository.
func NewCRMTicketRepository(pool *pgxpool.Pool) CRMTicketRepository {
	return &crmTicketRepository{pool: pool}
}

const crmTicketColumns = `crm_id, subject, description, status, priority, category_id, category_name,
        requester_name, requester_email, manager_id, manager_name, remote_created_at, remote_updated_at, payload, synced_at`

// Upsert writes every ticket keyed by crm_id; the incoming copy replaces the stored one.
func (r *crmTicketRepository) Upsert(ctx context.Context, tickets []domain.CRMTicket) (int, error) {
	if len(tickets) == 0 {
		return 0, nil
	}
	const query = `
        INSERT INTO crm_tickets (crm_id, subject, description, status, priority, category_id, category_name,
            requester_name, requester_email, manager_id, manager_name, remote_created_at, remote_updated_at, payload, synced_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
        ON CONFLICT (crm_id) DO UPDATE SET
            subject=EXCLUDED.subject, description=EXCLUDED.description, status=EXCLUDED.status,
            priority=EXCLUDED.priority, category_id=EXCLUDED.category_id, category_name=EXCLUDED.category_name,
            requester_name=EXCLUDED.requester_name, requester_email=EXCLUDED.requester_email,
            manager_id=EXCLUDED.manager_id, manager_name=EXCLUDED.manager_name,
            remote_created_at=EXCLUDED.remote_created_at, remote_updated_at=EXCLUDED.remote_updated_at,
            payload=EXCLUDED.payload, synced_at=NOW()`

	batch := &pgx.Batch{}
	for _, t := range tickets {
		payload := t.Payload
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		batch.Queue(query,
			t.CRMID, t.Subject, t.Description, t.Status, t.Priority, t.CategoryID, t.CategoryName,
			t.RequesterName, t.RequesterEmail, t.ManagerID, t.ManagerName,
			t.RemoteCreatedAt, t.RemoteUpdatedAt, string(payload),
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range tickets {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert crm ticket %s: %w", tickets[i].CRMID, err)
		}
	}
	return len(tickets), nil
}

func (r *crmTicketRepository) GetByCRMID(ctx context.Context, crmID string) (*domain.CRMTicket, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+crmTicketColumns+` FROM crm_tickets WHERE crm_id=$1`, crmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanCRMTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *crmTicketRepository) List(ctx context.Context, filter CRMTicketFilter) ([]domain.CRMTicket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		clauses = append(clauses, fmt.Sprintf("(subject ILIKE $%d OR requester_email ILIKE $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM crm_tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM crm_tickets WHERE %s
        ORDER BY remote_updated_at DESC NULLS LAST, crm_id DESC LIMIT %d OFFSET %d`,
		crmTicketColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanCRMTickets(rows)
	return tickets, total, err
}

func scanCRMTickets(rows pgx.Rows) ([]domain.CRMTicket, error) {
	var result []domain.CRMTicket
	for rows.Next() {
		var t domain.CRMTicket
		var payload []byte
		if err := rows.Scan(
			&t.CRMID,
			&t.Subject,
			&t.Description,
			&t.Status,
			&t.Priority,
			&t.CategoryID,
			&t.CategoryName,
			&t.RequesterName,
			&t.RequesterEmail,
			&t.ManagerID,
			&t.ManagerName,
			&t.RemoteCreatedAt,
			&t.RemoteUpdatedAt,
			&payload,
			&t.SyncedAt,
		); err != nil {
			return nil, err
		}
		t.Payload = payload
		result = append(result, t)
	}
	return result, rows.Err()
}
