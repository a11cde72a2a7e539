package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const profileKey = "auth_profile"

// AuthMiddleware validates bearer tokens and loads the caller's profile.
type AuthMiddleware struct {
	tokens   *TokenManager
	profiles repository.ProfileRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, profiles repository.ProfileRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, profiles: profiles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	profile, err := m.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	setProfile(c, profile)
	return c.Next()
}

// HandleQueryToken authenticates from ?token=, for websocket upgrades that
// cannot set headers.
func (m *AuthMiddleware) HandleQueryToken(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		if t, ok := bearerToken(c.Get(fiber.HeaderAuthorization)); ok {
			token = t
		}
	}
	if token == "" {
		return apperrors.NewUnauthenticated()
	}
	profile, err := m.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	setProfile(c, profile)
	return c.Next()
}

// Authenticate resolves a token to an active profile. Failures never say why.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (*domain.Profile, error) {
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthenticated()
	}
	profile, err := m.profiles.GetByID(ctx, claims.ProfileID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthenticated()
		}
		return nil, apperrors.MapError(err)
	}
	if !profile.Active() {
		return nil, apperrors.NewUnauthenticated()
	}
	return profile, nil
}

// ProfileFromContext retrieves the authenticated profile.
func ProfileFromContext(c *fiber.Ctx) (*domain.Profile, bool) {
	profile, ok := c.Locals(profileKey).(*domain.Profile)
	return profile, ok && profile != nil
}

// RequireStaff rejects end users.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, ok := ProfileFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated()
		}
		if profile.Role == domain.RoleUser {
			return apperrors.NewForbidden("staff role required")
		}
		return c.Next()
	}
}

func setProfile(c *fiber.Ctx, profile *domain.Profile) {
	c.Locals(profileKey, profile)
	c.Locals(observability.ProfileIDLocal, profile.ID)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
