package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SLAPolicyRepository persists SLA policies.
type SLAPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	List(ctx context.Context) ([]domain.SLAPolicy, error)
	// FindForTicket prefers an active policy for one of departmentIDs over the global one.
	FindForTicket(ctx context.Context, priority domain.TicketPriority, departmentIDs []string) (*domain.SLAPolicy, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository builds the repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const slaColumns = `id, priority, department_id, response_hours, resolution_hours, is_active, created_at, updated_at`

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (priority, department_id, response_hours, resolution_hours, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Priority,
		policy.DepartmentID,
		policy.ResponseHours,
		policy.ResolutionHours,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET priority=$1, department_id=$2, response_hours=$3, resolution_hours=$4,
            is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Priority,
		policy.DepartmentID,
		policy.ResponseHours,
		policy.ResolutionHours,
		policy.IsActive,
		policy.ID,
	).Scan(&policy.UpdatedAt)
}

func (r *slaPolicyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sla_policies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	policies, err := r.query(ctx, `SELECT `+slaColumns+` FROM sla_policies WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &policies[0], nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	return r.query(ctx, `SELECT `+slaColumns+` FROM sla_policies ORDER BY priority, department_id NULLS FIRST`)
}

func (r *slaPolicyRepository) FindForTicket(ctx context.Context, priority domain.TicketPriority, departmentIDs []string) (*domain.SLAPolicy, error) {
	if departmentIDs == nil {
		departmentIDs = []string{}
	}
	query := `SELECT ` + slaColumns + ` FROM sla_policies
        WHERE is_active AND priority=$1 AND (department_id IS NULL OR department_id = ANY($2::uuid[]))
        ORDER BY department_id NULLS LAST, created_at
        LIMIT 1`
	policies, err := r.query(ctx, query, priority, departmentIDs)
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &policies[0], nil
}

func (r *slaPolicyRepository) query(ctx context.Context, query string, args ...any) ([]domain.SLAPolicy, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.Priority,
			&policy.DepartmentID,
			&policy.ResponseHours,
			&policy.ResolutionHours,
			&policy.IsActive,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}
