package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// DepartmentsHandler serves department CRUD.
type DepartmentsHandler struct {
	service *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departmentService *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{service: departmentService}
}

// List GET /api/departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	departments, err := h.service.ListDepartments(c.UserContext(), profile)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for i := range departments {
		items = append(items, dto.NewDepartmentResponse(&departments[i]))
	}
	return ok(c, items)
}

// Create POST /api/departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	department, err := h.service.CreateDepartment(c.UserContext(), profile, req.Name, req.Description)
	if err != nil {
		return err
	}
	return created(c, dto.NewDepartmentResponse(department))
}

// Update PUT /api/departments/:id.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	department, err := h.service.UpdateDepartment(c.UserContext(), profile, c.Params("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return ok(c, dto.NewDepartmentResponse(department))
}

// Delete DELETE /api/departments/:id.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteDepartment(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}
