package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// PermissionRepository reads and edits role permission grants.
type PermissionRepository interface {
	GrantsForRole(ctx context.Context, role domain.Role) ([]domain.PermissionGrant, error)
	List(ctx context.Context) ([]domain.PermissionGrant, error)
	Create(ctx context.Context, grant *domain.PermissionGrant) error
	Delete(ctx context.Context, id string) error
}

type permissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository builds the repository.
func NewPermissionRepository(pool *pgxpool.Pool) PermissionRepository {
	return &permissionRepository{pool: pool}
}

func (r *permissionRepository) GrantsForRole(ctx context.Context, role domain.Role) ([]domain.PermissionGrant, error) {
	const query = `
        SELECT id, role, permission_key, department_scoped, department_id
        FROM role_permissions WHERE role=$1`
	return r.query(ctx, query, role)
}

func (r *permissionRepository) List(ctx context.Context) ([]domain.PermissionGrant, error) {
	const query = `
        SELECT id, role, permission_key, department_scoped, department_id
        FROM role_permissions ORDER BY role, permission_key`
	return r.query(ctx, query)
}

func (r *permissionRepository) Create(ctx context.Context, grant *domain.PermissionGrant) error {
	const query = `
        INSERT INTO role_permissions (role, permission_key, department_scoped, department_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		grant.Role,
		grant.Key,
		grant.DepartmentScoped,
		grant.DepartmentID,
	).Scan(&grant.ID)
}

func (r *permissionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *permissionRepository) query(ctx context.Context, query string, args ...any) ([]domain.PermissionGrant, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PermissionGrant
	for rows.Next() {
		var grant domain.PermissionGrant
		if err := rows.Scan(&grant.ID, &grant.Role, &grant.Key, &grant.DepartmentScoped, &grant.DepartmentID); err != nil {
			return nil, err
		}
		result = append(result, grant)
	}
	return result, rows.Err()
}
