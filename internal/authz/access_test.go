package authz

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func ticket(id, creator string, depts ...string) domain.Ticket {
	return domain.Ticket{ID: id, CreatedBy: creator, Status: domain.TicketStatusOpen, DepartmentIDs: depts}
}

func TestCanEditTicket(t *testing.T) {
	checker := NewChecker(&staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleAgent, Key: domain.PermEditTickets, DepartmentScoped: true},
	}}, nil, nil)
	ctx := context.Background()
	tk := ticket("t1", "owner", "sales")

	cases := []struct {
		name  string
		actor *domain.Profile
		want  bool
	}{
		{"creator", profile("owner", domain.RoleUser, ""), true},
		{"stranger", profile("x", domain.RoleUser, "sales"), false},
		{"admin", profile("adm", domain.RoleAdmin, ""), true},
		{"manager same dept", profile("m", domain.RoleManager, "sales"), true},
		{"manager other dept", profile("m", domain.RoleManager, "support"), false},
		{"agent scoped grant", profile("ag", domain.RoleAgent, "sales"), true},
		{"agent other dept", profile("ag", domain.RoleAgent, "support"), false},
	}
	for _, tc := range cases {
		if got := checker.CanEditTicket(ctx, tc.actor, &tk); got != tc.want {
			t.Fatalf("%s: CanEditTicket=%v want %v", tc.name, got, tc.want)
		}
	}

	assignee := "helper"
	tk.AssignedTo = &assignee
	if !checker.CanEditTicket(ctx, profile("helper", domain.RoleAgent, "support"), &tk) {
		t.Fatalf("assignee should edit")
	}
}

func TestCanViewTicket(t *testing.T) {
	checker := NewChecker(&staticGrants{}, nil, nil)
	ctx := context.Background()
	tk := ticket("t1", "owner", "sales")
	tk.CollaboratorIDs = []string{"collab"}

	if !checker.CanViewTicket(ctx, profile("collab", domain.RoleUser, ""), &tk) {
		t.Fatalf("collaborator should view")
	}
	if !checker.CanViewTicket(ctx, profile("peer", domain.RoleAgent, "sales"), &tk) {
		t.Fatalf("department member should view")
	}
	if checker.CanViewTicket(ctx, profile("outsider", domain.RoleAgent, "support"), &tk) {
		t.Fatalf("outsider must not view")
	}
}

func TestCanDeleteTicketNeedsGrant(t *testing.T) {
	checker := NewChecker(&staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleDepartmentHead, Key: domain.PermDeleteTickets, DepartmentScoped: true},
	}}, nil, nil)
	ctx := context.Background()
	tk := ticket("t1", "owner", "sales")

	if checker.CanDeleteTicket(ctx, profile("owner", domain.RoleUser, "sales"), &tk) {
		t.Fatalf("creator without grant must not delete")
	}
	if !checker.CanDeleteTicket(ctx, profile("h", domain.RoleDepartmentHead, "sales"), &tk) {
		t.Fatalf("department head should delete in own department")
	}
	if checker.CanDeleteTicket(ctx, profile("h", domain.RoleDepartmentHead, "support"), &tk) {
		t.Fatalf("department head must not delete elsewhere")
	}
}

func TestScopeBulkDropsOutOfScopeTickets(t *testing.T) {
	checker := NewChecker(&staticGrants{grants: []domain.PermissionGrant{
		{Role: domain.RoleManager, Key: domain.PermAssignTickets, DepartmentScoped: true},
	}}, nil, nil)
	manager := profile("m", domain.RoleManager, "sales")
	loaded := []domain.Ticket{
		ticket("t1", "u1", "sales"),
		ticket("t2", "u2", "sales"),
		ticket("t3", "u3", "sales", "support"),
		ticket("t4", "u4", "support"),
		ticket("t5", "u5", "billing"),
	}
	selected := []string{"t1", "t2", "t3", "t4", "t5", "t1", "missing"}

	scope := checker.ScopeBulk(context.Background(), manager, selected, loaded, nil)
	if got := ids(scope.Allowed); got != "t1,t2,t3" {
		t.Fatalf("allowed=%s", got)
	}
	if len(scope.Skipped) != 3 || scope.Skipped[0] != "t4" || scope.Skipped[1] != "t5" || scope.Skipped[2] != "missing" {
		t.Fatalf("skipped=%v", scope.Skipped)
	}

	outsider := profile("c", domain.RoleAgent, "support")
	scope = checker.ScopeBulk(context.Background(), manager, []string{"t1", "t3"}, loaded, outsider)
	if len(scope.Allowed) != 0 {
		t.Fatalf("manager must not bulk assign to another department, got %s", ids(scope.Allowed))
	}
}

func ids(tickets []domain.Ticket) string {
	out := ""
	for i, t := range tickets {
		if i > 0 {
			out += ","
		}
		out += t.ID
	}
	return out
}

func TestGlobalReachDoesNotBypassPermissionKeys(t *testing.T) {
	checker := NewChecker(&staticGrants{}, nil, nil)
	ctx := context.Background()
	tk := ticket("t1", "owner")
	admin := profile("adm", domain.RoleAdmin, "")

	if !checker.CanViewTicket(ctx, admin, &tk) || !checker.CanEditTicket(ctx, admin, &tk) {
		t.Fatalf("global role should view and edit without grants")
	}
	if checker.CanDeleteTicket(ctx, admin, &tk) {
		t.Fatalf("delete must come from a grant row, not the role")
	}
	if checker.CheckPermission(ctx, admin, domain.PermAssignTickets) {
		t.Fatalf("assign_tickets must come from a grant row, not the role")
	}
}
