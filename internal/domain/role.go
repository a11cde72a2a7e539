package domain

// Role enumerates profile roles.
type Role string

const (
	RoleSystemAdmin    Role = "system_admin"
	RoleSuperAdmin     Role = "super_admin"
	RoleCEO            Role = "ceo"
	RoleAdmin          Role = "admin"
	RoleDepartmentHead Role = "department_head"
	RoleManager        Role = "manager"
	RoleAgent          Role = "agent"
	RoleUser           Role = "user"
)

// AllRoles lists every role, most senior first.
var AllRoles = []Role{
	RoleSystemAdmin,
	RoleSuperAdmin,
	RoleCEO,
	RoleAdmin,
	RoleDepartmentHead,
	RoleManager,
	RoleAgent,
	RoleUser,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// PermissionKey names a capability granted to roles.
type PermissionKey string

const (
	PermManageDepartments        PermissionKey = "manage_departments"
	PermManageUsers              PermissionKey = "manage_users"
	PermAssignTickets            PermissionKey = "assign_tickets"
	PermEditTickets              PermissionKey = "edit_tickets"
	PermDeleteTickets            PermissionKey = "delete_tickets"
	PermViewAllTicketsInDept     PermissionKey = "view_all_tickets_in_department"
	PermManageSLAPolicies        PermissionKey = "manage_sla_policies"
	PermManageTemplates          PermissionKey = "manage_templates"
	PermManagePrefilledQuestions PermissionKey = "manage_prefilled_questions"
	PermManageCRMTickets         PermissionKey = "manage_crm_tickets"
	PermTakeOverChats            PermissionKey = "take_over_chats"
	PermManageTasks              PermissionKey = "manage_tasks"
)

// AllPermissionKeys lists every permission key.
var AllPermissionKeys = []PermissionKey{
	PermManageDepartments,
	PermManageUsers,
	PermAssignTickets,
	PermEditTickets,
	PermDeleteTickets,
	PermViewAllTicketsInDept,
	PermManageSLAPolicies,
	PermManageTemplates,
	PermManagePrefilledQuestions,
	PermManageCRMTickets,
	PermTakeOverChats,
	PermManageTasks,
}

// PermissionGrant gives a role a permission, globally or only inside a department.
// DepartmentScoped grants apply within the holder's own department; a non-nil
// DepartmentID further narrows them to holders of that department.
type PermissionGrant struct {
	ID               string
	Role             Role
	Key              PermissionKey
	DepartmentScoped bool
	DepartmentID     *string
}
