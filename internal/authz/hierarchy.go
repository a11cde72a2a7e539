package authz

import "github.com/spec-kit/helpdesk-service/internal/domain"

// roleRank is the management order. super_admin and ceo share a rank so
// neither can manage the other.
var roleRank = map[domain.Role]int{
	domain.RoleSystemAdmin:    100,
	domain.RoleSuperAdmin:     90,
	domain.RoleCEO:            90,
	domain.RoleAdmin:          70,
	domain.RoleDepartmentHead: 50,
	domain.RoleManager:        40,
	domain.RoleAgent:          20,
	domain.RoleUser:           10,
}

// grantableRoles lists the roles each role may hand out. system_admin is never grantable.
var grantableRoles = map[domain.Role][]domain.Role{
	domain.RoleSystemAdmin: {
		domain.RoleSuperAdmin, domain.RoleCEO, domain.RoleAdmin,
		domain.RoleDepartmentHead, domain.RoleManager, domain.RoleAgent, domain.RoleUser,
	},
	domain.RoleSuperAdmin: {
		domain.RoleAdmin, domain.RoleDepartmentHead, domain.RoleManager, domain.RoleAgent, domain.RoleUser,
	},
	domain.RoleCEO: {
		domain.RoleAdmin, domain.RoleDepartmentHead, domain.RoleManager, domain.RoleAgent, domain.RoleUser,
	},
	domain.RoleAdmin: {
		domain.RoleDepartmentHead, domain.RoleManager, domain.RoleAgent, domain.RoleUser,
	},
	domain.RoleDepartmentHead: {
		domain.RoleManager, domain.RoleAgent, domain.RoleUser,
	},
	domain.RoleManager: {
		domain.RoleAgent, domain.RoleUser,
	},
}

var hardDeleteRoles = map[domain.Role]struct{}{
	domain.RoleSystemAdmin: {},
	domain.RoleSuperAdmin:  {},
	domain.RoleCEO:         {},
}

var globalRoles = map[domain.Role]struct{}{
	domain.RoleSystemAdmin: {},
	domain.RoleSuperAdmin:  {},
	domain.RoleCEO:         {},
	domain.RoleAdmin:       {},
}

// Rank returns the position of role in the hierarchy.
func Rank(role domain.Role) (int, bool) {
	rank, ok := roleRank[role]
	return rank, ok
}

// CanManage reports whether actingRole may act on profiles holding targetRole.
// Nobody manages their own rank; system_admin manages every other role.
func CanManage(actingRole, targetRole domain.Role) bool {
	actingRank, ok := roleRank[actingRole]
	if !ok {
		return false
	}
	targetRank, ok := roleRank[targetRole]
	if !ok || actingRole == targetRole {
		return false
	}
	if actingRole == domain.RoleSystemAdmin {
		return true
	}
	return actingRank > targetRank
}

// CanGrantRole reports whether actingRole may set another profile's role to newRole.
func CanGrantRole(actingRole, newRole domain.Role) bool {
	for _, role := range grantableRoles[actingRole] {
		if role == newRole {
			return true
		}
	}
	return false
}

// CanHardDeleteUsers reports whether role may permanently remove profiles.
func CanHardDeleteUsers(role domain.Role) bool {
	_, ok := hardDeleteRoles[role]
	return ok
}

// IsGlobal reports whether role sees and acts across every department.
func IsGlobal(role domain.Role) bool {
	_, ok := globalRoles[role]
	return ok
}
