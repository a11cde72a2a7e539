package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TaskService runs the Kanban board.
type TaskService struct {
	tasks    repository.TaskRepository
	tickets  repository.TicketRepository
	profiles repository.ProfileRepository
	authz    *authz.Checker
}

// TaskDependencies bundles collaborators.
type TaskDependencies struct {
	TaskRepo    repository.TaskRepository
	TicketRepo  repository.TicketRepository
	ProfileRepo repository.ProfileRepository
	Authz       *authz.Checker
}

// TaskInput describes a task write.
type TaskInput struct {
	Title       string
	Description string
	Column      domain.TaskColumn
	AssigneeID  *string
	TicketID    *string
	DueDate     *time.Time
}

// Board groups tasks by column in position order.
type Board map[domain.TaskColumn][]domain.Task

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:    deps.TaskRepo,
		tickets:  deps.TicketRepo,
		profiles: deps.ProfileRepo,
		authz:    deps.Authz,
	}
}

// GetBoard returns every task grouped by column. Staff only.
func (s *TaskService) GetBoard(ctx context.Context, actor *domain.Profile) (Board, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	board := make(Board, len(domain.TaskColumns))
	for _, col := range domain.TaskColumns {
		board[col] = []domain.Task{}
	}
	for _, t := range tasks {
		board[t.Column] = append(board[t.Column], t)
	}
	return board, nil
}

// CreateTask appends a card to the end of its column.
func (s *TaskService) CreateTask(ctx context.Context, actor *domain.Profile, input TaskInput) (*domain.Task, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	task := &domain.Task{CreatedBy: actor.ID}
	if err := s.fill(ctx, actor, task, input); err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapStorageError(err, "linked ticket or assignee does not exist")
	}
	return task, nil
}

// UpdateTask edits card fields. The column is changed through MoveTask.
func (s *TaskService) UpdateTask(ctx context.Context, actor *domain.Profile, id string, input TaskInput) (*domain.Task, error) {
	task, err := s.changeable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	input.Column = task.Column
	if err := s.fill(ctx, actor, task, input); err != nil {
		return nil, err
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapStorageError(err, "linked ticket or assignee does not exist")
	}
	return task, nil
}

// MoveTask places the card at position within column, reindexing siblings.
func (s *TaskService) MoveTask(ctx context.Context, actor *domain.Profile, id string, column domain.TaskColumn, position int) (*domain.Task, error) {
	if _, err := s.changeable(ctx, actor, id); err != nil {
		return nil, err
	}
	if !column.Valid() {
		return nil, apperrors.NewValidationError("column must be one of todo, in_progress, review, done", nil)
	}
	if position < 0 {
		position = 0
	}
	task, err := s.tasks.Move(ctx, id, column, position)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

// DeleteTask removes a card.
func (s *TaskService) DeleteTask(ctx context.Context, actor *domain.Profile, id string) error {
	task, err := s.changeable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// changeable loads the task. Creator and assignee may change it; others need manage_tasks.
func (s *TaskService) changeable(ctx context.Context, actor *domain.Profile, id string) (*domain.Task, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if task.CreatedBy == actor.ID || (task.AssigneeID != nil && *task.AssigneeID == actor.ID) {
		return task, nil
	}
	if !s.authz.CheckPermission(ctx, actor, domain.PermManageTasks) {
		return nil, apperrors.NewForbidden("You do not have permission to change this task")
	}
	return task, nil
}

func (s *TaskService) fill(ctx context.Context, actor *domain.Profile, task *domain.Task, input TaskInput) error {
	linked := task.TicketID
	task.Title = strings.TrimSpace(input.Title)
	task.Description = strings.TrimSpace(input.Description)
	task.Column = input.Column
	task.AssigneeID = input.AssigneeID
	task.TicketID = input.TicketID
	task.DueDate = input.DueDate
	if task.Column == "" {
		task.Column = domain.TaskColumnTodo
	}
	if task.Title == "" {
		return apperrors.NewValidationError("title is required", nil)
	}
	if !task.Column.Valid() {
		return apperrors.NewValidationError("column must be one of todo, in_progress, review, done", nil)
	}
	if task.AssigneeID != nil {
		assignee, err := s.profiles.GetByID(ctx, *task.AssigneeID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": *task.AssigneeID})
			}
			return apperrors.MapError(err)
		}
		if !assignee.Active() {
			return apperrors.NewValidationError("assignee is deactivated", map[string]any{"assignee_id": *task.AssigneeID})
		}
	}
	if task.TicketID != nil && (linked == nil || *linked != *task.TicketID) {
		// Hidden tickets answer exactly like missing ones.
		missing := apperrors.NewValidationError("ticket does not exist", map[string]any{"ticket_id": *task.TicketID})
		ticket, err := s.tickets.GetByID(ctx, *task.TicketID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return missing
			}
			return apperrors.MapError(err)
		}
		if !s.authz.CanViewTicket(ctx, actor, ticket) {
			return missing
		}
	}
	return nil
}

func requireStaff(actor *domain.Profile) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role == domain.RoleUser {
		return apperrors.NewForbidden("The task board is only available to staff")
	}
	return nil
}
