package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TaskRepository persists Kanban tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context) ([]domain.Task, error)
	// Move places the task at position in column and reindexes both columns.
	Move(ctx context.Context, id string, column domain.TaskColumn, position int) (*domain.Task, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository builds the repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, title, description, board_column, position, assignee_id, ticket_id, created_by, due_date, created_at, updated_at`

// Create appends the task to the end of its column.
func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (title, description, board_column, position, assignee_id, ticket_id, created_by, due_date)
        VALUES ($1,$2,$3,(SELECT COUNT(*) FROM tasks WHERE board_column=$3),$4,$5,$6,$7)
        RETURNING id, position, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Column,
		task.AssigneeID,
		task.TicketID,
		task.CreatedBy,
		task.DueDate,
	).Scan(&task.ID, &task.Position, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET title=$1, description=$2, assignee_id=$3, ticket_id=$4, due_date=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.AssigneeID,
		task.TicketID,
		task.DueDate,
		task.ID,
	).Scan(&task.UpdatedAt)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var column domain.TaskColumn
		var position int
		err := tx.QueryRow(ctx, `DELETE FROM tasks WHERE id=$1 RETURNING board_column, position`, id).Scan(&column, &position)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE tasks SET position=position-1 WHERE board_column=$1 AND position>$2`, column, position)
		return err
	})
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	tasks, err := r.query(ctx, r.pool, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tasks[0], nil
}

func (r *taskRepository) List(ctx context.Context) ([]domain.Task, error) {
	return r.query(ctx, r.pool, `SELECT `+taskColumns+` FROM tasks ORDER BY board_column, position, created_at`)
}

func (r *taskRepository) Move(ctx context.Context, id string, column domain.TaskColumn, position int) (*domain.Task, error) {
	var moved *domain.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var fromColumn domain.TaskColumn
		var fromPosition int
		if err := tx.QueryRow(ctx, `SELECT board_column, position FROM tasks WHERE id=$1 FOR UPDATE`, id).
			Scan(&fromColumn, &fromPosition); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE tasks SET position=position-1 WHERE board_column=$1 AND position>$2`,
			fromColumn, fromPosition); err != nil {
			return err
		}

		var size int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE board_column=$1 AND id<>$2`, column, id).Scan(&size); err != nil {
			return err
		}
		if position < 0 {
			position = 0
		}
		if position > size {
			position = size
		}
		if _, err := tx.Exec(ctx,
			`UPDATE tasks SET position=position+1 WHERE board_column=$1 AND position>=$2 AND id<>$3`,
			column, position, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE tasks SET board_column=$1, position=$2, updated_at=NOW() WHERE id=$3`,
			column, position, id); err != nil {
			return err
		}
		tasks, err := r.query(ctx, tx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return pgx.ErrNoRows
		}
		moved = &tasks[0]
		return nil
	})
	return moved, err
}

func (r *taskRepository) query(ctx context.Context, q querier, query string, args ...any) ([]domain.Task, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.Column,
			&t.Position,
			&t.AssigneeID,
			&t.TicketID,
			&t.CreatedBy,
			&t.DueDate,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
