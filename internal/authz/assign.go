package authz

import "github.com/spec-kit/helpdesk-service/internal/domain"

var assignRoles = map[domain.Role]struct{}{
	domain.RoleSystemAdmin:    {},
	domain.RoleSuperAdmin:     {},
	domain.RoleCEO:            {},
	domain.RoleAdmin:          {},
	domain.RoleDepartmentHead: {},
	domain.RoleManager:        {},
}

// CanAssign decides whether an actor may assign a ticket to a candidate.
// Managers stay inside their department; department heads may also reach
// managers and department heads elsewhere.
func CanAssign(actorRole domain.Role, actorDept *string, candidateRole domain.Role, candidateDept *string) bool {
	if _, ok := assignRoles[actorRole]; !ok {
		return false
	}
	switch actorRole {
	case domain.RoleManager:
		return sameDepartment(actorDept, candidateDept)
	case domain.RoleDepartmentHead:
		return sameDepartment(actorDept, candidateDept) ||
			candidateRole == domain.RoleManager ||
			candidateRole == domain.RoleDepartmentHead
	}
	return true
}

// AssignableBy reports whether actor may assign tickets to candidate.
func AssignableBy(actor, candidate *domain.Profile) bool {
	if actor == nil || candidate == nil || !candidate.Active() {
		return false
	}
	return CanAssign(actor.Role, actor.DepartmentID, candidate.Role, candidate.DepartmentID)
}

func sameDepartment(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
