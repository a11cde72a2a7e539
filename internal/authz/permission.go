package authz

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// GrantLookup returns the permission grants held by a role.
type GrantLookup interface {
	GrantsForRole(ctx context.Context, role domain.Role) ([]domain.PermissionGrant, error)
}

// DecisionRecorder observes permission decisions.
type DecisionRecorder interface {
	RecordAuthzDecision(check string, allowed bool)
}

// Checker evaluates permission grants for profiles. It never returns lookup
// failures to callers; they deny and are logged.
type Checker struct {
	grants   GrantLookup
	logger   *zap.Logger
	recorder DecisionRecorder
}

// NewChecker builds a checker. recorder may be nil.
func NewChecker(grants GrantLookup, logger *zap.Logger, recorder DecisionRecorder) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{grants: grants, logger: logger, recorder: recorder}
}

// CheckPermission reports whether actor holds key either globally or inside
// their own department.
func (c *Checker) CheckPermission(ctx context.Context, actor *domain.Profile, key domain.PermissionKey) bool {
	return c.decide(ctx, actor, key, nil)
}

// CheckPermissionFor reports whether actor holds key for a resource that belongs
// to resourceDepartments. Department-scoped grants need the actor's department
// among them; a resource without departments is reachable only by global grants.
func (c *Checker) CheckPermissionFor(ctx context.Context, actor *domain.Profile, key domain.PermissionKey, resourceDepartments []string) bool {
	if resourceDepartments == nil {
		resourceDepartments = []string{}
	}
	return c.decide(ctx, actor, key, resourceDepartments)
}

// Require returns an AuthorizationError carrying message when CheckPermission denies.
func (c *Checker) Require(ctx context.Context, actor *domain.Profile, key domain.PermissionKey, message string) error {
	if !c.CheckPermission(ctx, actor, key) {
		return apperrors.NewForbidden(message)
	}
	return nil
}

func (c *Checker) decide(ctx context.Context, actor *domain.Profile, key domain.PermissionKey, resourceDepartments []string) bool {
	allowed := c.evaluate(ctx, actor, key, resourceDepartments)
	if c.recorder != nil {
		c.recorder.RecordAuthzDecision(string(key), allowed)
	}
	return allowed
}

func (c *Checker) evaluate(ctx context.Context, actor *domain.Profile, key domain.PermissionKey, resourceDepartments []string) (allowed bool) {
	if actor == nil || !actor.Active() {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("permission lookup panicked",
				zap.String("role", string(actor.Role)),
				zap.String("permission", string(key)),
				zap.Any("panic", r),
			)
			allowed = false
		}
	}()

	grants, err := c.grants.GrantsForRole(ctx, actor.Role)
	if err != nil {
		c.logger.Warn("permission lookup failed",
			zap.String("role", string(actor.Role)),
			zap.String("permission", string(key)),
			zap.Error(err),
		)
		return false
	}
	for _, grant := range grants {
		if grant.Key != key || grant.Role != actor.Role {
			continue
		}
		if grantApplies(grant, actor, resourceDepartments) {
			return true
		}
	}
	return false
}

// grantApplies evaluates one grant. resourceDepartments is nil when no
// resource is involved.
func grantApplies(grant domain.PermissionGrant, actor *domain.Profile, resourceDepartments []string) bool {
	if !grant.DepartmentScoped && grant.DepartmentID == nil {
		return true
	}
	if actor.DepartmentID == nil {
		return false
	}
	own := *actor.DepartmentID
	if grant.DepartmentID != nil && *grant.DepartmentID != own {
		return false
	}
	if resourceDepartments == nil {
		return true
	}
	for _, dept := range resourceDepartments {
		if dept == own {
			return true
		}
	}
	return false
}
