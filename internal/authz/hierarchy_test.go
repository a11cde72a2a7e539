package authz

import (
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestCanManageIsIrreflexive(t *testing.T) {
	for _, role := range domain.AllRoles {
		if CanManage(role, role) {
			t.Fatalf("%s must not manage its own role", role)
		}
	}
}

func TestSystemAdminManagesEveryoneElse(t *testing.T) {
	for _, role := range domain.AllRoles {
		if role == domain.RoleSystemAdmin {
			continue
		}
		if !CanManage(domain.RoleSystemAdmin, role) {
			t.Fatalf("system_admin should manage %s", role)
		}
	}
}

func TestAdminCannotManageApexRoles(t *testing.T) {
	for _, target := range []domain.Role{domain.RoleSystemAdmin, domain.RoleCEO, domain.RoleSuperAdmin} {
		if CanManage(domain.RoleAdmin, target) {
			t.Fatalf("admin must not manage %s", target)
		}
	}
	if !CanManage(domain.RoleAdmin, domain.RoleDepartmentHead) {
		t.Fatalf("admin should manage department_head")
	}
}

func TestApexPeersCannotManageEachOther(t *testing.T) {
	if CanManage(domain.RoleCEO, domain.RoleSuperAdmin) || CanManage(domain.RoleSuperAdmin, domain.RoleCEO) {
		t.Fatalf("ceo and super_admin share a rank")
	}
	if CanManage(domain.RoleCEO, domain.RoleSystemAdmin) {
		t.Fatalf("ceo must not manage system_admin")
	}
	if !CanManage(domain.RoleCEO, domain.RoleAdmin) {
		t.Fatalf("ceo should manage admin")
	}
}

func TestCanManageFollowsRank(t *testing.T) {
	for _, a := range domain.AllRoles {
		for _, b := range domain.AllRoles {
			if a == domain.RoleSystemAdmin {
				continue
			}
			ra, _ := Rank(a)
			rb, _ := Rank(b)
			if got, want := CanManage(a, b), ra > rb; got != want {
				t.Fatalf("CanManage(%s,%s)=%v want %v", a, b, got, want)
			}
		}
	}
}

func TestUnknownRolesManageNothing(t *testing.T) {
	if CanManage("intern", domain.RoleUser) || CanManage(domain.RoleSystemAdmin, "intern") {
		t.Fatalf("unknown roles are outside the hierarchy")
	}
}

func TestCanGrantRole(t *testing.T) {
	cases := []struct {
		actor, role domain.Role
		want bool
	}{
		{domain.RoleAdmin, domain.RoleSystemAdmin, false},
		{domain.RoleAdmin, domain.RoleCEO, false},
		{domain.RoleAdmin, domain.RoleSuperAdmin, false},
		{domain.RoleAdmin, domain.RoleManager, true},
		{domain.RoleCEO, domain.RoleSystemAdmin, false},
		{domain.RoleCEO, domain.RoleSuperAdmin, false},
		{domain.RoleCEO, domain.RoleAdmin, true},
		{domain.RoleSystemAdmin, domain.RoleSystemAdmin, false},
		{domain.RoleSystemAdmin, domain.RoleCEO, true},
		{domain.RoleManager, domain.RoleManager, false},
		{domain.RoleManager, domain.RoleAgent, true},
		{domain.RoleAgent, domain.RoleUser, false},
		{domain.RoleUser, domain.RoleUser, false},
	}
	for _, tc := range cases {
		if got := CanGrantRole(tc.actor, tc.role); got != tc.want {
			t.Fatalf("CanGrantRole(%s,%s)=%v want %v", tc.actor, tc.role, got, tc.want)
		}
	}
}

func TestGrantedRolesAreManageable(t *testing.T) {
	for actor, roles := range grantableRoles {
		for _, role := range roles {
			if !CanManage(actor, role) {
				t.Fatalf("%s may grant %s but cannot manage it", actor, role)
			}
		}
	}
}

func TestCanHardDeleteUsers(t *testing.T) {
	allowed := map[domain.Role]bool{
		domain.RoleSystemAdmin: true,
		domain.RoleSuperAdmin:  true,
		domain.RoleCEO:         true,
	}
	for _, role := range domain.AllRoles {
		if got := CanHardDeleteUsers(role); got != allowed[role] {
			t.Fatalf("CanHardDeleteUsers(%s)=%v", role, got)
		}
	}
}
