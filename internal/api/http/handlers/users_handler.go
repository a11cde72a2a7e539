package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// UsersHandler serves user administration.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// ListUsers GET /api/users?department_id=&role=&search=&include_deleted=&limit=&offset=.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	filter := service.UserListFilter{
		DepartmentID:   optionalQuery(c, "department_id"),
		Search:         c.Query("search"),
		IncludeDeleted: c.QueryBool("include_deleted", false),
		Limit:          queryInt(c, "limit", 50),
		Offset:         queryInt(c, "offset", 0),
	}
	if role := c.Query("role"); role != "" {
		r := domain.Role(role)
		filter.Role = &r
	}
	users, err := h.service.ListUsers(c.UserContext(), profile, filter)
	if err != nil {
		return err
	}
	return ok(c, profileList(users))
}

// GetUser GET /api/users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetUser(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewProfileResponse(user))
}

// UpdateRole PUT /api/users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.service.UpdateRole(c.UserContext(), profile, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return ok(c, dto.NewProfileResponse(user))
}

// UpdateDepartment PUT /api/users/:id/department.
func (h *UsersHandler) UpdateDepartment(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserDepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.service.UpdateDepartment(c.UserContext(), profile, c.Params("id"), req.DepartmentID)
	if err != nil {
		return err
	}
	return ok(c, dto.NewProfileResponse(user))
}

// Deactivate POST /api/users/:id/deactivate.
func (h *UsersHandler) Deactivate(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	user, err := h.service.DeactivateUser(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewProfileResponse(user))
}

// Reactivate POST /api/users/:id/reactivate.
func (h *UsersHandler) Reactivate(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	user, err := h.service.ReactivateUser(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewProfileResponse(user))
}

// HardDelete DELETE /api/users/:id.
func (h *UsersHandler) HardDelete(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.HardDeleteUser(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

func profileList(users []domain.Profile) []dto.ProfileResponse {
	items := make([]dto.ProfileResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewProfileResponse(&users[i]))
	}
	return items
}
