package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates signup and login.
type AuthService struct {
	profiles   repository.ProfileRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	ProfileRepo repository.ProfileRepository
	Logger      *zap.Logger
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Profile   *domain.Profile
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		profiles:   deps.ProfileRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Signup creates a profile. Every new profile starts as a plain user without a department.
func (s *AuthService) Signup(ctx context.Context, fullName, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, apperrors.NewValidationError("full name is required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("email is invalid", map[string]any{"email": email})
	}
	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, passwordError(err)
	}

	profile := &domain.Profile{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, apperrors.MapStorageError(err, "email already registered")
	}
	return s.issue(profile)
}

// Login authenticates by email and password. Deactivated profiles are refused
// with the same error as bad credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	profile, err := s.profiles.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthenticated()
		}
		return nil, apperrors.MapError(err)
	}
	if !profile.Active() {
		s.logger.Info("login refused for deactivated profile", zap.String("profile_id", profile.ID))
		return nil, apperrors.NewUnauthenticated()
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated()
	}
	return s.issue(profile)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.Profile, currentPassword, newPassword string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	profile, err := s.profiles.GetByID(ctx, actor.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(profile.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password is incorrect", nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return passwordError(err)
	}
	if err := s.profiles.UpdatePassword(ctx, profile.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(profile *domain.Profile) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(profile)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Profile: profile, Token: token, ExpiresAt: exp}, nil
}

func passwordError(err error) error {
	if errors.Is(err, auth.ErrWeakPassword) {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	return apperrors.NewInternalError(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
