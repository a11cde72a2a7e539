package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UserService manages profiles: roles, departments and deactivation.
type UserService struct {
	profiles    repository.ProfileRepository
	departments repository.DepartmentRepository
	authz       *authz.Checker
	logger      *zap.Logger
	now         func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	ProfileRepo    repository.ProfileRepository
	DepartmentRepo repository.DepartmentRepository
	Authz          *authz.Checker
	Logger         *zap.Logger
}

// UserListFilter narrows the user directory.
type UserListFilter struct {
	DepartmentID   *string
	Role           *domain.Role
	Search         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		profiles:    deps.ProfileRepo,
		departments: deps.DepartmentRepo,
		authz:       deps.Authz,
		logger:      logger,
		now:         time.Now,
	}
}

// ListUsers returns the directory. Non-global staff only see their own department.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.Profile, filter UserListFilter) ([]domain.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleUser {
		return nil, apperrors.NewForbidden("You do not have permission to list users")
	}
	repoFilter := repository.ProfileFilter{
		DepartmentID: filter.DepartmentID,
		Role:         filter.Role,
		Search:       filter.Search,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	if !authz.IsGlobal(actor.Role) {
		if actor.DepartmentID == nil {
			return []domain.Profile{}, nil
		}
		dept := *actor.DepartmentID
		repoFilter.DepartmentID = &dept
	}
	if filter.IncludeDeleted {
		repoFilter.IncludeDeleted = s.authz.CheckPermission(ctx, actor, domain.PermManageUsers)
	}
	if repoFilter.Limit <= 0 || repoFilter.Limit > 200 {
		repoFilter.Limit = 50
	}

	profiles, err := s.profiles.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return profiles, nil
}

// GetUser returns a profile. Users may only read themselves.
func (s *UserService) GetUser(ctx context.Context, actor *domain.Profile, profileID string) (*domain.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleUser && actor.ID != profileID {
		return nil, apperrors.NewForbidden("You do not have permission to view this user")
	}
	return s.loadTarget(ctx, profileID)
}

// UpdateRole changes a profile's role.
func (s *UserService) UpdateRole(ctx context.Context, actor *domain.Profile, profileID string, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("role is invalid", map[string]any{"role": role})
	}
	target, err := s.manageable(ctx, actor, profileID, "You cannot change your own role")
	if err != nil {
		return nil, err
	}
	if !authz.CanGrantRole(actor.Role, role) {
		return nil, apperrors.NewForbidden("You do not have permission to grant this role")
	}
	if target.Role == role {
		return target, nil
	}
	if err := s.profiles.UpdateRole(ctx, target.ID, role); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("role changed",
		zap.String("actor_id", actor.ID),
		zap.String("profile_id", target.ID),
		zap.String("from", string(target.Role)),
		zap.String("to", string(role)))
	target.Role = role
	return target, nil
}

// UpdateDepartment moves a profile to another department, or out of any when departmentID is nil.
func (s *UserService) UpdateDepartment(ctx context.Context, actor *domain.Profile, profileID string, departmentID *string) (*domain.Profile, error) {
	target, err := s.manageable(ctx, actor, profileID, "You cannot change your own department")
	if err != nil {
		return nil, err
	}
	if departmentID != nil {
		if _, err := s.departments.GetByID(ctx, *departmentID); err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewValidationError("department does not exist", map[string]any{"department_id": *departmentID})
			}
			return nil, apperrors.MapError(err)
		}
		if !s.authz.CheckPermissionFor(ctx, actor, domain.PermManageUsers, []string{*departmentID}) {
			return nil, apperrors.NewForbidden("You cannot move users into this department")
		}
	}
	if err := s.profiles.UpdateDepartment(ctx, target.ID, departmentID); err != nil {
		return nil, apperrors.MapStorageError(err, "department does not exist")
	}
	target.DepartmentID = departmentID
	return target, nil
}

// DeactivateUser soft-deletes a profile. Deactivated profiles cannot authenticate.
func (s *UserService) DeactivateUser(ctx context.Context, actor *domain.Profile, profileID string) (*domain.Profile, error) {
	target, err := s.manageable(ctx, actor, profileID, "You cannot deactivate yourself")
	if err != nil {
		return nil, err
	}
	if !target.Active() {
		return target, nil
	}
	now := s.now().UTC()
	if err := s.profiles.SetDeletedAt(ctx, target.ID, &now); err != nil {
		return nil, apperrors.MapError(err)
	}
	target.DeletedAt = &now
	return target, nil
}

// ReactivateUser clears a soft delete.
func (s *UserService) ReactivateUser(ctx context.Context, actor *domain.Profile, profileID string) (*domain.Profile, error) {
	target, err := s.manageable(ctx, actor, profileID, "You cannot reactivate yourself")
	if err != nil {
		return nil, err
	}
	if target.Active() {
		return target, nil
	}
	if err := s.profiles.SetDeletedAt(ctx, target.ID, nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	target.DeletedAt = nil
	return target, nil
}

// HardDeleteUser permanently removes a profile. Only apex roles may do this.
func (s *UserService) HardDeleteUser(ctx context.Context, actor *domain.Profile, profileID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !authz.CanHardDeleteUsers(actor.Role) {
		return apperrors.NewForbidden("You do not have permission to permanently delete users")
	}
	if actor.ID == profileID {
		return apperrors.NewForbidden("You cannot delete yourself")
	}
	target, err := s.loadTarget(ctx, profileID)
	if err != nil {
		return err
	}
	if !authz.CanManage(actor.Role, target.Role) {
		return apperrors.NewForbidden("You cannot manage a user with this role")
	}
	if err := s.profiles.Delete(ctx, target.ID); err != nil {
		return apperrors.MapStorageError(err, "User still owns tickets and cannot be deleted; deactivate it instead")
	}
	s.logger.Warn("profile hard deleted", zap.String("actor_id", actor.ID), zap.String("profile_id", target.ID))
	return nil
}

// manageable loads the target and runs the checks shared by every user mutation.
func (s *UserService) manageable(ctx context.Context, actor *domain.Profile, profileID, selfMessage string) (*domain.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.ID == profileID {
		return nil, apperrors.NewForbidden(selfMessage)
	}
	target, err := s.loadTarget(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CheckPermissionFor(ctx, actor, domain.PermManageUsers, departmentsOf(target)) {
		return nil, apperrors.NewForbidden("You do not have permission to manage this user")
	}
	if !authz.CanManage(actor.Role, target.Role) {
		return nil, apperrors.NewForbidden("You cannot manage a user with this role")
	}
	return target, nil
}

func (s *UserService) loadTarget(ctx context.Context, profileID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": profileID})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

func departmentsOf(p *domain.Profile) []string {
	if p.DepartmentID == nil {
		return []string{}
	}
	return []string{*p.DepartmentID}
}
