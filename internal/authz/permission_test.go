package authz

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type staticGrants struct {
	grants []domain.PermissionGrant
	calls  int
}

func (s *staticGrants) GrantsForRole(_ context.Context, role domain.Role) ([]domain.PermissionGrant, error) {
	s.calls++
	var out []domain.PermissionGrant
	for _, g := range s.grants {
		if g.Role == role {
			out = append(out, g)
		}
	}
	return out, nil
}

type failingGrants struct{}

func (failingGrants) GrantsForRole(context.Context, domain.Role) ([]domain.PermissionGrant, error) {
	return nil, errors.New("connection refused")
}

type panickingGrants struct{}

func (panickingGrants) GrantsForRole(context.Context, domain.Role) ([]domain.PermissionGrant, error) {
	panic("boom")
}

type recorder struct {
	allowed, denied int
}

func (r *recorder) RecordAuthzDecision(_ string, allowed bool) {
	if allowed {
		r.allowed++
	} else {
		r.denied++
	}
}

func profile(id string, role domain.Role, dept string) *domain.Profile {
	p := &domain.Profile{ID: id, Role: role}
	if dept != "" {
		p.DepartmentID = &dept
	}
	return p
}

func TestCheckPermissionDefaultDeny(t *testing.T) {
	grants := &staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleAdmin, Key: domain.PermManageDepartments},
		{Role: domain.RoleManager, Key: domain.PermAssignTickets, DepartmentScoped: true},
	}}
	granted := map[domain.Role]map[domain.PermissionKey]bool{
		domain.RoleAdmin:   {domain.PermManageDepartments: true},
		domain.RoleManager: {domain.PermAssignTickets: true},
	}
	checker := NewChecker(grants, nil, nil)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		role := domain.AllRoles[rng.Intn(len(domain.AllRoles))]
		key := domain.AllPermissionKeys[rng.Intn(len(domain.AllPermissionKeys))]
		if granted[role][key] {
			continue
		}
		if checker.CheckPermission(context.Background(), profile("p", role, "d1"), key) {
			t.Fatalf("(%s,%s) has no grant but was allowed", role, key)
		}
	}
}

func TestCheckPermissionGlobalGrant(t *testing.T) {
	checker := NewChecker(&staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleAdmin, Key: domain.PermDeleteTickets},
	}}, nil, nil)
	admin := profile("a", domain.RoleAdmin, "")

	if !checker.CheckPermission(context.Background(), admin, domain.PermDeleteTickets) {
		t.Fatalf("global grant should allow without department")
	}
	if !checker.CheckPermissionFor(context.Background(), admin, domain.PermDeleteTickets, []string{"other"}) {
		t.Fatalf("global grant should allow any resource department")
	}
}

func TestCheckPermissionDepartmentScope(t *testing.T) {
	checker := NewChecker(&staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleManager, Key: domain.PermDeleteTickets, DepartmentScoped: true},
	}}, nil, nil)
	ctx := context.Background()
	manager := profile("m", domain.RoleManager, "sales")

	if !checker.CheckPermissionFor(ctx, manager, domain.PermDeleteTickets, []string{"support", "sales"}) {
		t.Fatalf("scoped grant should allow inside own department")
	}
	if checker.CheckPermissionFor(ctx, manager, domain.PermDeleteTickets, []string{"support"}) {
		t.Fatalf("scoped grant must deny cross-department access")
	}
	if checker.CheckPermissionFor(ctx, manager, domain.PermDeleteTickets, nil) {
		t.Fatalf("scoped grant must deny resources without departments")
	}
	if checker.CheckPermission(ctx, profile("m2", domain.RoleManager, ""), domain.PermDeleteTickets) {
		t.Fatalf("scoped grant needs the actor to have a department")
	}
}

func TestCheckPermissionPinnedDepartment(t *testing.T) {
	checker := NewChecker(&staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleAgent, Key: domain.PermTakeOverChats, DepartmentScoped: true, DepartmentID: strPtr("support")},
	}}, nil, nil)
	ctx := context.Background()
	if !checker.CheckPermission(ctx, profile("a", domain.RoleAgent, "support"), domain.PermTakeOverChats) {
		t.Fatalf("grant pinned to support should allow support agent")
	}
	if checker.CheckPermission(ctx, profile("b", domain.RoleAgent, "sales"), domain.PermTakeOverChats) {
		t.Fatalf("grant pinned to support must deny sales agent")
	}
}

func TestCheckPermissionFailsClosed(t *testing.T) {
	rec := &recorder{}
	ctx := context.Background()
	admin := profile("a", domain.RoleAdmin, "")

	if NewChecker(failingGrants{}, nil, rec).CheckPermission(ctx, admin, domain.PermManageUsers) {
		t.Fatalf("lookup error must deny")
	}
	if NewChecker(panickingGrants{}, nil, rec).CheckPermission(ctx, admin, domain.PermManageUsers) {
		t.Fatalf("panicking lookup must deny")
	}
	if rec.denied != 2 || rec.allowed != 0 {
		t.Fatalf("unexpected decisions %+v", rec)
	}
}

func TestCheckPermissionDeniesDeactivatedActor(t *testing.T) {
	checker := NewChecker(&staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleAdmin, Key: domain.PermManageUsers},
	}}, nil, nil)
	admin := profile("a", domain.RoleAdmin, "")
	now := admin.CreatedAt
	admin.DeletedAt = &now
	if checker.CheckPermission(context.Background(), admin, domain.PermManageUsers) {
		t.Fatalf("deactivated actor must be denied")
	}
	if checker.CheckPermission(context.Background(), nil, domain.PermManageUsers) {
		t.Fatalf("nil actor must be denied")
	}
}

func TestRequireReturnsForbidden(t *testing.T) {
	checker := NewChecker(&staticGrants{}, nil, nil)
	err := checker.Require(context.Background(), profile("u", domain.RoleUser, ""), domain.PermManageDepartments, "You do not have permission to manage departments")
	if err == nil || err.Error() != "You do not have permission to manage departments" {
		t.Fatalf("unexpected error %v", err)
	}
}
