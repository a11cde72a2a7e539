package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TasksHandler serves the staff Kanban board.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// Board GET /api/tasks.
func (h *TasksHandler) Board(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	board, err := h.service.GetBoard(c.UserContext(), profile)
	if err != nil {
		return err
	}
	out := make(map[string][]dto.TaskResponse, len(board))
	for column, tasks := range board {
		items := make([]dto.TaskResponse, 0, len(tasks))
		for i := range tasks {
			items = append(items, dto.NewTaskResponse(&tasks[i]))
		}
		out[string(column)] = items
	}
	return ok(c, out)
}

// Create POST /api/tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := h.service.CreateTask(c.UserContext(), profile, taskInput(req))
	if err != nil {
		return err
	}
	return created(c, dto.NewTaskResponse(task))
}

// Update PUT /api/tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := h.service.UpdateTask(c.UserContext(), profile, c.Params("id"), taskInput(req))
	if err != nil {
		return err
	}
	return ok(c, dto.NewTaskResponse(task))
}

// Move POST /api/tasks/:id/move.
func (h *TasksHandler) Move(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.MoveTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := h.service.MoveTask(c.UserContext(), profile, c.Params("id"), req.Column, req.Position)
	if err != nil {
		return err
	}
	return ok(c, dto.NewTaskResponse(task))
}

// Delete DELETE /api/tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTask(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

func taskInput(req dto.TaskRequest) service.TaskInput {
	return service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Column:      req.Column,
		AssigneeID:  req.AssigneeID,
		TicketID:    req.TicketID,
		DueDate:     req.DueDate,
	}
}
