package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SignupRequest payload.
type SignupRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// AuthResponse carries an access token.
type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Profile     ProfileResponse `json:"profile"`
}

// ProfileResponse is the public view of a profile.
type ProfileResponse struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	Role         domain.Role `json:"role"`
	DepartmentID *string     `json:"department_id"`
	Active       bool        `json:"active"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewProfileResponse maps a profile.
func NewProfileResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:           p.ID,
		Email:        p.Email,
		FullName:     p.FullName,
		Role:         p.Role,
		DepartmentID: p.DepartmentID,
		Active:       p.Active(),
		DeletedAt:    p.DeletedAt,
		CreatedAt:    p.CreatedAt,
	}
}
