package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AuthHandler serves signup, login and password changes.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Signup POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.Signup(c.UserContext(), req.FullName, req.Email, req.Password)
	if err != nil {
		return err
	}
	return created(c, authResponse(result))
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, authResponse(result))
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	return ok(c, dto.NewProfileResponse(profile))
}

// ChangePassword POST /auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.service.ChangePassword(c.UserContext(), profile, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, fiber.Map{"changed": true})
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken: result.Token,
		ExpiresAt:   result.ExpiresAt,
		Profile:     dto.NewProfileResponse(result.Profile),
	}
}
