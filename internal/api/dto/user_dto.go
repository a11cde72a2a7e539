package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role" validate:"required,oneof=system_admin super_admin ceo admin department_head manager agent user"`
}

// UpdateUserDepartmentRequest payload. A null department clears it.
type UpdateUserDepartmentRequest struct {
	DepartmentID *string `json:"department_id" validate:"omitempty,required"`
}

// DepartmentRequest payload.
type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// DepartmentResponse is the wire form of a department.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDepartmentResponse maps a department.
func NewDepartmentResponse(d *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
