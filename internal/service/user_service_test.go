package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func newUserFixture(profiles ...*domain.Profile) (*UserService, *memProfiles) {
	repo := newMemProfiles(profiles...)
	svc := NewUserService(UserDependencies{
		ProfileRepo:    repo,
		DepartmentRepo: newMemDepartments("support", "sales"),
		Authz:          newChecker(),
	})
	return svc, repo
}

func TestUpdateRolePreventsEscalation(t *testing.T) {
	admin := person("admin", domain.RoleAdmin, "")
	agent := person("agent", domain.RoleAgent, "support")
	root := person("root", domain.RoleSystemAdmin, "")
	svc, repo := newUserFixture(admin, agent, root)
	ctx := context.Background()

	if _, err := svc.UpdateRole(ctx, admin, agent.ID, domain.RoleCEO); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("admin must not grant ceo, got %v", err)
	}
	if _, err := svc.UpdateRole(ctx, admin, root.ID, domain.RoleUser); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("admin must not manage system_admin, got %v", err)
	}
	if _, err := svc.UpdateRole(ctx, admin, admin.ID, domain.RoleSuperAdmin); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("self role change must be forbidden, got %v", err)
	}
	if _, err := svc.UpdateRole(ctx, root, agent.ID, domain.RoleSystemAdmin); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("system_admin is never grantable, got %v", err)
	}
	if _, err := svc.UpdateRole(ctx, admin, agent.ID, "wizard"); codeOf(err) != apperrors.CodeValidation {
		t.Fatalf("unknown role should fail validation, got %v", err)
	}
	if repo.mutations != 0 {
		t.Fatalf("denied calls must not write, saw %d writes", repo.mutations)
	}

	updated, err := svc.UpdateRole(ctx, admin, agent.ID, domain.RoleManager)
	if err != nil {
		t.Fatalf("admin promote agent: %v", err)
	}
	if updated.Role != domain.RoleManager {
		t.Fatalf("role not changed: %+v", updated)
	}
}

func TestDepartmentScopedManagerStaysInDepartment(t *testing.T) {
	manager := person("m1", domain.RoleManager, "support")
	inside := person("a1", domain.RoleAgent, "support")
	outside := person("a2", domain.RoleAgent, "sales")
	svc, _ := newUserFixture(manager, inside, outside)
	ctx := context.Background()

	if _, err := svc.UpdateRole(ctx, manager, inside.ID, domain.RoleUser); err != nil {
		t.Fatalf("manager should demote own agent: %v", err)
	}
	if _, err := svc.UpdateRole(ctx, manager, outside.ID, domain.RoleUser); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("manager must not reach other departments, got %v", err)
	}
	sales := "sales"
	if _, err := svc.UpdateDepartment(ctx, manager, inside.ID, &sales); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("manager must not move users out of reach, got %v", err)
	}

	listed, err := svc.ListUsers(ctx, manager, UserListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, p := range listed {
		if !p.InDepartment("support") {
			t.Fatalf("manager listing leaked %s", p.ID)
		}
	}
}

func TestDeactivateAndHardDelete(t *testing.T) {
	admin := person("admin", domain.RoleAdmin, "")
	ceo := person("ceo", domain.RoleCEO, "")
	agent := person("agent", domain.RoleAgent, "support")
	svc, repo := newUserFixture(admin, ceo, agent)
	ctx := context.Background()

	deactivated, err := svc.DeactivateUser(ctx, admin, agent.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Active() {
		t.Fatalf("profile still active")
	}
	if _, err := svc.ReactivateUser(ctx, admin, agent.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	if err := svc.HardDeleteUser(ctx, admin, agent.ID); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("admin cannot hard delete, got %v", err)
	}
	if err := svc.HardDeleteUser(ctx, ceo, agent.ID); err != nil {
		t.Fatalf("ceo hard delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, agent.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("profile should be gone, got %v", err)
	}
}

func TestUserCanOnlyReadSelf(t *testing.T) {
	u1 := person("u1", domain.RoleUser, "")
	u2 := person("u2", domain.RoleUser, "")
	svc, _ := newUserFixture(u1, u2)

	if _, err := svc.GetUser(context.Background(), u1, u1.ID); err != nil {
		t.Fatalf("self read: %v", err)
	}
	if _, err := svc.GetUser(context.Background(), u1, u2.ID); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("reading others should be forbidden, got %v", err)
	}
	if _, err := svc.ListUsers(context.Background(), u1, UserListFilter{}); codeOf(err) != apperrors.CodeForbidden {
		t.Fatalf("users cannot list the directory, got %v", err)
	}
}
