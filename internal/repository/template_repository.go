package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TemplateRepository persists ticket templates.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *domain.TicketTemplate) error
	Update(ctx context.Context, tpl *domain.TicketTemplate) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.TicketTemplate, error)
	List(ctx context.Context) ([]domain.TicketTemplate, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository builds the repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

const templateColumns = `id, name, title, description, priority, department_id, created_by, created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, tpl *domain.TicketTemplate) error {
	const query = `
        INSERT INTO ticket_templates (name, title, description, priority, department_id, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tpl.Name,
		tpl.Title,
		tpl.Description,
		tpl.Priority,
		tpl.DepartmentID,
		tpl.CreatedBy,
	).Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt)
}

func (r *templateRepository) Update(ctx context.Context, tpl *domain.TicketTemplate) error {
	const query = `
        UPDATE ticket_templates SET name=$1, title=$2, description=$3, priority=$4, department_id=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		tpl.Name,
		tpl.Title,
		tpl.Description,
		tpl.Priority,
		tpl.DepartmentID,
		tpl.ID,
	).Scan(&tpl.UpdatedAt)
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_templates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.TicketTemplate, error) {
	templates, err := r.query(ctx, `SELECT `+templateColumns+` FROM ticket_templates WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &templates[0], nil
}

func (r *templateRepository) List(ctx context.Context) ([]domain.TicketTemplate, error) {
	return r.query(ctx, `SELECT `+templateColumns+` FROM ticket_templates ORDER BY lower(name)`)
}

func (r *templateRepository) query(ctx context.Context, query string, args ...any) ([]domain.TicketTemplate, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketTemplate
	for rows.Next() {
		var tpl domain.TicketTemplate
		if err := rows.Scan(
			&tpl.ID,
			&tpl.Name,
			&tpl.Title,
			&tpl.Description,
			&tpl.Priority,
			&tpl.DepartmentID,
			&tpl.CreatedBy,
			&tpl.CreatedAt,
			&tpl.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

// PrefilledQuestionRepository persists canned ticket form questions.
type PrefilledQuestionRepository interface {
	Create(ctx context.Context, q *domain.PrefilledQuestion) error
	Update(ctx context.Context, q *domain.PrefilledQuestion) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.PrefilledQuestion, error)
	List(ctx context.Context, activeOnly bool) ([]domain.PrefilledQuestion, error)
}

type prefilledQuestionRepository struct {
	pool *pgxpool.Pool
}

// NewPrefilledQuestionRepository builds the repository.
func NewPrefilledQuestionRepository(pool *pgxpool.Pool) PrefilledQuestionRepository {
	return &prefilledQuestionRepository{pool: pool}
}

const questionColumns = `id, question, answer, department_id, sort_order, is_active, created_at, updated_at`

func (r *prefilledQuestionRepository) Create(ctx context.Context, q *domain.PrefilledQuestion) error {
	const query = `
        INSERT INTO prefilled_questions (question, answer, department_id, sort_order, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		q.Question,
		q.Answer,
		q.DepartmentID,
		q.SortOrder,
		q.IsActive,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (r *prefilledQuestionRepository) Update(ctx context.Context, q *domain.PrefilledQuestion) error {
	const query = `
        UPDATE prefilled_questions SET question=$1, answer=$2, department_id=$3, sort_order=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		q.Question,
		q.Answer,
		q.DepartmentID,
		q.SortOrder,
		q.IsActive,
		q.ID,
	).Scan(&q.UpdatedAt)
}

func (r *prefilledQuestionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM prefilled_questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *prefilledQuestionRepository) GetByID(ctx context.Context, id string) (*domain.PrefilledQuestion, error) {
	questions, err := r.query(ctx, `SELECT `+questionColumns+` FROM prefilled_questions WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &questions[0], nil
}

func (r *prefilledQuestionRepository) List(ctx context.Context, activeOnly bool) ([]domain.PrefilledQuestion, error) {
	return r.query(ctx, `SELECT `+questionColumns+` FROM prefilled_questions
        WHERE (is_active OR NOT $1::boolean) ORDER BY sort_order, created_at`, activeOnly)
}

func (r *prefilledQuestionRepository) query(ctx context.Context, query string, args ...any) ([]domain.PrefilledQuestion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PrefilledQuestion
	for rows.Next() {
		var q domain.PrefilledQuestion
		if err := rows.Scan(
			&q.ID,
			&q.Question,
			&q.Answer,
			&q.DepartmentID,
			&q.SortOrder,
			&q.IsActive,
			&q.CreatedAt,
			&q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}
