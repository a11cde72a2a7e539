package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestTaskBoard(t *testing.T) {
	creator := person("a1", domain.RoleAgent, "support")
	other := person("a2", domain.RoleAgent, "support")
	user := person("u1", domain.RoleUser, "")
	tasks := newMemTasks()
	svc := NewTaskService(TaskDependencies{
		TaskRepo:    tasks,
		TicketRepo:  newMemTickets(func() time.Time { return clock }),
		ProfileRepo: newMemProfiles(creator, other, user),
		Authz:       newChecker(),
	})
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, creator, TaskInput{Title: "  Rotate certificates "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Column != domain.TaskColumnTodo || task.Title != "Rotate certificates" {
		t.Fatalf("unexpected task %+v", task)
	}
	if _, err := svc.CreateTask(ctx, user, TaskInput{Title: "x"}); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("users cannot use the board, got %v", err)
	}
	if _, err := svc.MoveTask(ctx, other, task.ID, domain.TaskColumnDone, 0); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("unrelated agent without manage_tasks should be forbidden, got %v", err)
	}
	if _, err := svc.MoveTask(ctx, creator, task.ID, "archive", 0); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("unknown column should fail validation, got %v", err)
	}
	moved, err := svc.MoveTask(ctx, creator, task.ID, domain.TaskColumnInProgress, 0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Column != domain.TaskColumnInProgress {
		t.Fatalf("task not moved: %+v", moved)
	}

	board, err := svc.GetBoard(ctx, other)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board) != len(domain.TaskColumns) || len(board[domain.TaskColumnInProgress]) != 1 || len(board[domain.TaskColumnTodo]) != 0 {
		t.Fatalf("unexpected board %+v", board)
	}

	assignee := other.ID
	if _, err := svc.UpdateTask(ctx, creator, task.ID, TaskInput{Title: "Rotate certs", AssigneeID: &assignee}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.DeleteTask(ctx, other, task.ID); err != nil {
		t.Fatalf("assignee delete: %v", err)
	}
}

func TestTaskLinksOnlyVisibleTickets(t *testing.T) {
	agent := person("a1", domain.RoleAgent, "support")
	tickets := newMemTickets(func() time.Time { return clock })
	tickets.put(domain.Ticket{ID: "t-support", Title: "VPN", Status: domain.TicketStatusOpen, CreatedBy: "u9", DepartmentIDs: []string{"support"}})
	tickets.put(domain.Ticket{ID: "t-sales", Title: "Quote", Status: domain.TicketStatusOpen, CreatedBy: "u9", DepartmentIDs: []string{"sales"}})
	svc := NewTaskService(TaskDependencies{
		TaskRepo:    newMemTasks(),
		TicketRepo:  tickets,
		ProfileRepo: newMemProfiles(agent),
		Authz:       newChecker(),
	})
	ctx := context.Background()

	visible := "t-support"
	task, err := svc.CreateTask(ctx, agent, TaskInput{Title: "Follow up", TicketID: &visible})
	if err != nil {
		t.Fatalf("link visible ticket: %v", err)
	}

	hidden, missing := "t-sales", "t-none"
	_, hiddenErr := svc.CreateTask(ctx, agent, TaskInput{Title: "Peek", TicketID: &hidden})
	_, missingErr := svc.CreateTask(ctx, agent, TaskInput{Title: "Peek", TicketID: &missing})
	if codeOf(hiddenErr) != apperrors.CodeValidation || codeOf(missingErr) != apperrors.CodeValidation {
		t.Fatalf("hidden and missing tickets should both fail validation, got %v / %v", hiddenErr, missingErr)
	}
	if hiddenErr.Error() != missingErr.Error() {
		t.Fatalf("hidden ticket must look missing: %q vs %q", hiddenErr.Error(), missingErr.Error())
	}
	if _, err := svc.UpdateTask(ctx, agent, task.ID, TaskInput{Title: "Peek", TicketID: &hidden}); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("relinking to a hidden ticket should fail, got %v", err)
	}
}
