package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func newAuthFixture() (*AuthService, *memProfiles) {
	repo := newMemProfiles()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4}}
	return NewAuthService(cfg, AuthDependencies{ProfileRepo: repo}), repo
}

func TestSignupAndLogin(t *testing.T) {
	svc, repo := newAuthFixture()
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Ana Lima", " Ana@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.Profile.Role != domain.RoleUser || res.Profile.Email != "ana@example.com" || res.Token == "" {
		t.Fatalf("unexpected signup result %+v", res.Profile)
	}
	claims, err := svc.TokenManager().ParseToken(res.Token)
	if err != nil || claims.ProfileID != res.Profile.ID {
		t.Fatalf("token does not identify the profile: %v %+v", err, claims)
	}

	if _, err := svc.Signup(ctx, "Ana", "ana@example.com", "correct horse"); codeOf(err) != apperrors.CodeConflict {
		t.Fatalf("duplicate email should conflict, got %v", err)
	}
	if _, err := svc.Signup(ctx, "Bo", "bo@example.com", "short"); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("short password should fail validation, got %v", err)
	}

	if _, err := svc.Login(ctx, "ana@example.com", "wrong password"); codeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("bad password should be unauthenticated, got %v", err)
	}
	if _, err := svc.Login(ctx, "ANA@example.com", "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	gone := time.Now()
	if err := repo.SetDeletedAt(ctx, res.Profile.ID, &gone); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Login(ctx, "ana@example.com", "correct horse"); codeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("deactivated login should be unauthenticated, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	res, err := svc.Signup(ctx, "Ana", "ana@example.com", "first password")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := svc.ChangePassword(ctx, res.Profile, "not it", "second password"); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("wrong current password should fail, got %v", err)
	}
	if err := svc.ChangePassword(ctx, res.Profile, "first password", "second password"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if _, err := svc.Login(ctx, "ana@example.com", "second password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
