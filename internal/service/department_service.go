package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const duplicateDepartmentMessage = "A department with this name already exists"

// DepartmentService manages departments.
type DepartmentService struct {
	departments repository.DepartmentRepository
	profiles    repository.ProfileRepository
	authz       *authz.Checker
}

// DepartmentDependencies bundles collaborators for the department service.
type DepartmentDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	ProfileRepo    repository.ProfileRepository
	Authz          *authz.Checker
}

// NewDepartmentService constructs the service.
func NewDepartmentService(deps DepartmentDependencies) *DepartmentService {
	return &DepartmentService{
		departments: deps.DepartmentRepo,
		profiles:    deps.ProfileRepo,
		authz:       deps.Authz,
	}
}

// ListDepartments is open to every authenticated profile; the ticket form needs it.
func (s *DepartmentService) ListDepartments(ctx context.Context, actor *domain.Profile) ([]domain.Department, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// CreateDepartment needs a global manage_departments grant.
func (s *DepartmentService) CreateDepartment(ctx context.Context, actor *domain.Profile, name, description string) (*domain.Department, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !s.authz.CheckPermissionFor(ctx, actor, domain.PermManageDepartments, []string{}) {
		return nil, apperrors.NewForbidden("You do not have permission to create departments")
	}
	dept := &domain.Department{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if dept.Name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapStorageError(err, duplicateDepartmentMessage)
	}
	return dept, nil
}

// UpdateDepartment renames or re-describes a department.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, actor *domain.Profile, id, name, description string) (*domain.Department, error) {
	dept, err := s.managed(ctx, actor, id, "You do not have permission to edit this department")
	if err != nil {
		return nil, err
	}
	dept.Name = strings.TrimSpace(name)
	dept.Description = strings.TrimSpace(description)
	if dept.Name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapStorageError(err, duplicateDepartmentMessage)
	}
	return dept, nil
}

// DeleteDepartment refuses, without touching storage, while any profile belongs to the department.
func (s *DepartmentService) DeleteDepartment(ctx context.Context, actor *domain.Profile, id string) error {
	dept, err := s.managed(ctx, actor, id, "You do not have permission to delete this department")
	if err != nil {
		return err
	}
	members, err := s.profiles.CountByDepartment(ctx, dept.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if members > 0 {
		return apperrors.NewConflict("Cannot delete a department that still has users assigned",
			map[string]any{"department_id": dept.ID, "users": members})
	}
	if err := s.departments.Delete(ctx, dept.ID); err != nil {
		return apperrors.MapStorageError(err, "Cannot delete a department that still has users assigned")
	}
	return nil
}

func (s *DepartmentService) managed(ctx context.Context, actor *domain.Profile, id, denied string) (*domain.Department, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.authz.CheckPermissionFor(ctx, actor, domain.PermManageDepartments, []string{dept.ID}) {
		return nil, apperrors.NewForbidden(denied)
	}
	return dept, nil
}
