package domain

import "time"

// Profile is an authenticated identity with a single role.
type Profile struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	DepartmentID *string
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the profile has not been deactivated.
func (p *Profile) Active() bool {
	return p != nil && p.DeletedAt == nil
}

// InDepartment reports whether the profile belongs to departmentID.
func (p *Profile) InDepartment(departmentID string) bool {
	return p != nil && p.DepartmentID != nil && *p.DepartmentID == departmentID
}
