package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ProfileRepository handles persistence for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	List(ctx context.Context, filter ProfileFilter) ([]domain.Profile, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	UpdateDepartment(ctx context.Context, id string, departmentID *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	CountByDepartment(ctx context.Context, departmentID string) (int, error)
}

// ProfileFilter defines query params for profile listing.
type ProfileFilter struct {
	DepartmentID   *string
	Role           *domain.Role
	Search         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository instantiates the repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileColumns = `id, email, full_name, password_hash, role, department_id, deleted_at, created_at, updated_at`

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (email, full_name, password_hash, role, department_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.Email,
		profile.FullName,
		profile.PasswordHash,
		profile.Role,
		profile.DepartmentID,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.fetchSingle(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.fetchSingle(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email)=lower($1)`, email)
}

func (r *profileRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.PasswordHash,
		&profile.Role,
		&profile.DepartmentID,
		&profile.DeletedAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) List(ctx context.Context, filter ProfileFilter) ([]domain.Profile, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if !filter.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(full_name ILIKE %s OR email ILIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE %s ORDER BY full_name ASC, id ASC LIMIT %d OFFSET %d`,
		profileColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var profile domain.Profile
		if err := rows.Scan(
			&profile.ID,
			&profile.Email,
			&profile.FullName,
			&profile.PasswordHash,
			&profile.Role,
			&profile.DepartmentID,
			&profile.DeletedAt,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, profile)
	}
	return result, rows.Err()
}

func (r *profileRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.exec(ctx, `UPDATE profiles SET role=$1, updated_at=NOW() WHERE id=$2`, role, id)
}

func (r *profileRepository) UpdateDepartment(ctx context.Context, id string, departmentID *string) error {
	return r.exec(ctx, `UPDATE profiles SET department_id=$1, updated_at=NOW() WHERE id=$2`, departmentID, id)
}

func (r *profileRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE profiles SET password_hash=$1, updated_at=NOW() WHERE id=$2`, passwordHash, id)
}

func (r *profileRepository) SetDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error {
	return r.exec(ctx, `UPDATE profiles SET deleted_at=$1, updated_at=NOW() WHERE id=$2`, deletedAt, id)
}

func (r *profileRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM profiles WHERE id=$1`, id)
}

func (r *profileRepository) CountByDepartment(ctx context.Context, departmentID string) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE department_id=$1`, departmentID).Scan(&total)
	return total, err
}

func (r *profileRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
