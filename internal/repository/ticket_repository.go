package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketPatch carries the fields a bulk update may change. Nil fields are left alone.
type TicketPatch struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssignedTo *string
}

// Empty reports whether the patch changes nothing.
func (p TicketPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.AssignedTo == nil
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	CollaboratorTicketIDs(ctx context.Context, profileID string) ([]string, error)
	AddCollaborator(ctx context.Context, ticketID, profileID string) error
	RemoveCollaborator(ctx context.Context, ticketID, profileID string) error
	BulkUpdate(ctx context.Context, ids []string, patch TicketPatch) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        t.id, t.title, t.description, t.status, t.priority, t.created_by, t.assigned_to,
        COALESCE((SELECT array_agg(td.department_id::text ORDER BY td.department_id)
                  FROM ticket_departments td WHERE td.ticket_id = t.id), '{}'),
        COALESCE((SELECT array_agg(tc.profile_id::text ORDER BY tc.profile_id)
                  FROM ticket_collaborators tc WHERE tc.ticket_id = t.id), '{}'),
        t.created_at, t.updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            INSERT INTO tickets (title, description, status, priority, created_by, assigned_to)
            VALUES ($1,$2,$3,$4,$5,$6)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			ticket.Title,
			ticket.Description,
			ticket.Status,
			ticket.Priority,
			ticket.CreatedBy,
			ticket.AssignedTo,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return err
		}
		return replaceDepartments(ctx, tx, ticket.ID, ticket.DepartmentIDs)
	})
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, assigned_to=$5, updated_at=NOW()
            WHERE id=$6
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, query,
			ticket.Title,
			ticket.Description,
			ticket.Status,
			ticket.Priority,
			ticket.AssignedTo,
			ticket.ID,
		).Scan(&ticket.UpdatedAt); err != nil {
			return err
		}
		return replaceDepartments(ctx, tx, ticket.ID, ticket.DepartmentIDs)
	})
}

func replaceDepartments(ctx context.Context, tx pgx.Tx, ticketID string, departmentIDs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM ticket_departments WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	if len(departmentIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO ticket_departments (ticket_id, department_id)
        SELECT $1, unnest($2::uuid[])
        ON CONFLICT DO NOTHING`, ticketID, departmentIDs)
	return err
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if uuid.Validate(id) != nil {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id = ANY($1::uuid[])`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// validUUIDs drops keys the uuid column could never hold.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if uuid.Validate(id) == nil {
			out = append(out, id)
		}
	}
	return out
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := filter.Where(nil, true)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s ORDER BY t.updated_at DESC, t.id DESC LIMIT %d`,
		ticketColumns, where, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := filter.Where(nil, false)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t WHERE `+where, args...).Scan(&total)
	return total, err
}

func (r *ticketRepository) CollaboratorTicketIDs(ctx context.Context, profileID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT ticket_id::text FROM ticket_collaborators WHERE profile_id=$1`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ticketRepository) AddCollaborator(ctx context.Context, ticketID, profileID string) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO ticket_collaborators (ticket_id, profile_id) VALUES ($1,$2)
        ON CONFLICT DO NOTHING`, ticketID, profileID)
	return err
}

func (r *ticketRepository) RemoveCollaborator(ctx context.Context, ticketID, profileID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_collaborators WHERE ticket_id=$1 AND profile_id=$2`, ticketID, profileID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) BulkUpdate(ctx context.Context, ids []string, patch TicketPatch) (int64, error) {
	if len(ids) == 0 || patch.Empty() {
		return 0, nil
	}
	sets := []string{}
	args := []any{}
	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if patch.Priority != nil {
		args = append(args, *patch.Priority)
		sets = append(sets, fmt.Sprintf("priority=$%d", len(args)))
	}
	if patch.AssignedTo != nil {
		args = append(args, *patch.AssignedTo)
		sets = append(sets, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	args = append(args, ids)
	query := fmt.Sprintf(`UPDATE tickets SET %s, updated_at=NOW() WHERE id = ANY($%d::uuid[])`,
		strings.Join(sets, ", "), len(args))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedBy,
			&ticket.AssignedTo,
			&ticket.DepartmentIDs,
			&ticket.CollaboratorIDs,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
