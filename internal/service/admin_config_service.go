package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AdminConfigService manages SLA policies, ticket templates and prefilled questions.
type AdminConfigService struct {
	sla         repository.SLAPolicyRepository
	templates   repository.TemplateRepository
	questions   repository.PrefilledQuestionRepository
	departments repository.DepartmentRepository
	authz       *authz.Checker
}

// AdminConfigDependencies bundles collaborators.
type AdminConfigDependencies struct {
	SLARepo        repository.SLAPolicyRepository
	TemplateRepo   repository.TemplateRepository
	QuestionRepo   repository.PrefilledQuestionRepository
	DepartmentRepo repository.DepartmentRepository
	Authz          *authz.Checker
}

// SLAPolicyInput describes a policy write.
type SLAPolicyInput struct {
	Priority        domain.TicketPriority
	DepartmentID    *string
	ResponseHours   int
	ResolutionHours int
	IsActive        bool
}

// TemplateInput describes a template write.
type TemplateInput struct {
	Name         string
	Title        string
	Description  string
	Priority     domain.TicketPriority
	DepartmentID *string
}

// QuestionInput describes a prefilled question write.
type QuestionInput struct {
	Question     string
	Answer       string
	DepartmentID *string
	SortOrder    int
	IsActive     bool
}

// NewAdminConfigService constructs the service.
func NewAdminConfigService(deps AdminConfigDependencies) *AdminConfigService {
	return &AdminConfigService{
		sla:         deps.SLARepo,
		templates:   deps.TemplateRepo,
		questions:   deps.QuestionRepo,
		departments: deps.DepartmentRepo,
		authz:       deps.Authz,
	}
}

// ListSLAPolicies returns every policy.
func (s *AdminConfigService) ListSLAPolicies(ctx context.Context, actor *domain.Profile) ([]domain.SLAPolicy, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !s.authz.CheckPermission(ctx, actor, domain.PermManageSLAPolicies) {
		return nil, apperrors.NewForbidden("You do not have permission to view SLA policies")
	}
	policies, err := s.sla.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

// CreateSLAPolicy adds a policy. One policy per priority and department.
func (s *AdminConfigService) CreateSLAPolicy(ctx context.Context, actor *domain.Profile, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if err := s.requireScoped(ctx, actor, domain.PermManageSLAPolicies, input.DepartmentID, "You do not have permission to manage SLA policies"); err != nil {
		return nil, err
	}
	if err := s.validateSLA(ctx, input); err != nil {
		return nil, err
	}
	policy := &domain.SLAPolicy{
		Priority:        input.Priority,
		DepartmentID:    input.DepartmentID,
		ResponseHours:   input.ResponseHours,
		ResolutionHours: input.ResolutionHours,
		IsActive:        input.IsActive,
	}
	if err := s.sla.Create(ctx, policy); err != nil {
		return nil, apperrors.MapStorageError(err, "An SLA policy already exists for this priority and department")
	}
	return policy, nil
}

// UpdateSLAPolicy replaces a policy's targets.
func (s *AdminConfigService) UpdateSLAPolicy(ctx context.Context, actor *domain.Profile, id string, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	policy, err := s.loadSLA(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireScoped(ctx, actor, domain.PermManageSLAPolicies, input.DepartmentID, "You do not have permission to manage SLA policies"); err != nil {
		return nil, err
	}
	if err := s.validateSLA(ctx, input); err != nil {
		return nil, err
	}
	policy.Priority = input.Priority
	policy.DepartmentID = input.DepartmentID
	policy.ResponseHours = input.ResponseHours
	policy.ResolutionHours = input.ResolutionHours
	policy.IsActive = input.IsActive
	if err := s.sla.Update(ctx, policy); err != nil {
		return nil, apperrors.MapStorageError(err, "An SLA policy already exists for this priority and department")
	}
	return policy, nil
}

// DeleteSLAPolicy removes a policy.
func (s *AdminConfigService) DeleteSLAPolicy(ctx context.Context, actor *domain.Profile, id string) error {
	policy, err := s.loadSLA(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.sla.Delete(ctx, policy.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ListTemplates is readable by every authenticated profile.
func (s *AdminConfigService) ListTemplates(ctx context.Context, actor *domain.Profile) ([]domain.TicketTemplate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return templates, nil
}

// CreateTemplate adds a ticket template.
func (s *AdminConfigService) CreateTemplate(ctx context.Context, actor *domain.Profile, input TemplateInput) (*domain.TicketTemplate, error) {
	if err := s.requireScoped(ctx, actor, domain.PermManageTemplates, input.DepartmentID, "You do not have permission to manage templates"); err != nil {
		return nil, err
	}
	tpl := &domain.TicketTemplate{CreatedBy: actor.ID}
	if err := s.fillTemplate(ctx, tpl, input); err != nil {
		return nil, err
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, apperrors.MapStorageError(err, "A template with this name already exists")
	}
	return tpl, nil
}

// UpdateTemplate edits a template. Scoped holders may only touch their department's templates.
func (s *AdminConfigService) UpdateTemplate(ctx context.Context, actor *domain.Profile, id string, input TemplateInput) (*domain.TicketTemplate, error) {
	tpl, err := s.loadTemplate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireScoped(ctx, actor, domain.PermManageTemplates, input.DepartmentID, "You do not have permission to manage templates"); err != nil {
		return nil, err
	}
	if err := s.fillTemplate(ctx, tpl, input); err != nil {
		return nil, err
	}
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, apperrors.MapStorageError(err, "A template with this name already exists")
	}
	return tpl, nil
}

// DeleteTemplate removes a template.
func (s *AdminConfigService) DeleteTemplate(ctx context.Context, actor *domain.Profile, id string) error {
	tpl, err := s.loadTemplate(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, tpl.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ListQuestions returns active questions; managers may ask for inactive ones too.
func (s *AdminConfigService) ListQuestions(ctx context.Context, actor *domain.Profile, includeInactive bool) ([]domain.PrefilledQuestion, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	activeOnly := true
	if includeInactive && s.authz.CheckPermission(ctx, actor, domain.PermManagePrefilledQuestions) {
		activeOnly = false
	}
	questions, err := s.questions.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return questions, nil
}

// CreateQuestion adds a prefilled question.
func (s *AdminConfigService) CreateQuestion(ctx context.Context, actor *domain.Profile, input QuestionInput) (*domain.PrefilledQuestion, error) {
	if err := s.requireScoped(ctx, actor, domain.PermManagePrefilledQuestions, input.DepartmentID, "You do not have permission to manage prefilled questions"); err != nil {
		return nil, err
	}
	q := &domain.PrefilledQuestion{}
	if err := fillQuestion(q, input); err != nil {
		return nil, err
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, apperrors.MapStorageError(err, "department does not exist")
	}
	return q, nil
}

// UpdateQuestion edits a prefilled question.
func (s *AdminConfigService) UpdateQuestion(ctx context.Context, actor *domain.Profile, id string, input QuestionInput) (*domain.PrefilledQuestion, error) {
	q, err := s.loadQuestion(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireScoped(ctx, actor, domain.PermManagePrefilledQuestions, input.DepartmentID, "You do not have permission to manage prefilled questions"); err != nil {
		return nil, err
	}
	if err := fillQuestion(q, input); err != nil {
		return nil, err
	}
	if err := s.questions.Update(ctx, q); err != nil {
		return nil, apperrors.MapStorageError(err, "department does not exist")
	}
	return q, nil
}

// DeleteQuestion removes a prefilled question.
func (s *AdminConfigService) DeleteQuestion(ctx context.Context, actor *domain.Profile, id string) error {
	q, err := s.loadQuestion(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.questions.Delete(ctx, q.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// requireScoped checks key against a resource owned by departmentID. Resources
// without a department need a global grant.
func (s *AdminConfigService) requireScoped(ctx context.Context, actor *domain.Profile, key domain.PermissionKey, departmentID *string, denied string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	resource := []string{}
	if departmentID != nil {
		resource = []string{*departmentID}
	}
	if !s.authz.CheckPermissionFor(ctx, actor, key, resource) {
		return apperrors.NewForbidden(denied)
	}
	return nil
}

func (s *AdminConfigService) validateSLA(ctx context.Context, input SLAPolicyInput) error {
	if !input.Priority.Valid() {
		return apperrors.NewValidationError("priority must be one of low, medium, high, urgent", nil)
	}
	if input.ResponseHours <= 0 || input.ResolutionHours <= 0 {
		return apperrors.NewValidationError("response_hours and resolution_hours must be positive", nil)
	}
	if input.ResolutionHours < input.ResponseHours {
		return apperrors.NewValidationError("resolution_hours must not be shorter than response_hours", nil)
	}
	return s.ensureDepartment(ctx, input.DepartmentID)
}

func (s *AdminConfigService) fillTemplate(ctx context.Context, tpl *domain.TicketTemplate, input TemplateInput) error {
	tpl.Name = strings.TrimSpace(input.Name)
	tpl.Title = strings.TrimSpace(input.Title)
	tpl.Description = strings.TrimSpace(input.Description)
	tpl.Priority = input.Priority
	tpl.DepartmentID = input.DepartmentID
	if tpl.Priority == "" {
		tpl.Priority = domain.TicketPriorityMedium
	}
	if tpl.Name == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if !tpl.Priority.Valid() {
		return apperrors.NewValidationError("priority must be one of low, medium, high, urgent", nil)
	}
	return s.ensureDepartment(ctx, input.DepartmentID)
}

func fillQuestion(q *domain.PrefilledQuestion, input QuestionInput) error {
	q.Question = strings.TrimSpace(input.Question)
	q.Answer = strings.TrimSpace(input.Answer)
	q.DepartmentID = input.DepartmentID
	q.SortOrder = input.SortOrder
	q.IsActive = input.IsActive
	if q.Question == "" {
		return apperrors.NewValidationError("question is required", nil)
	}
	return nil
}

func (s *AdminConfigService) ensureDepartment(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.departments.GetByID(ctx, *id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("department does not exist", map[string]any{"department_id": *id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AdminConfigService) loadSLA(ctx context.Context, actor *domain.Profile, id string) (*domain.SLAPolicy, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	policy, err := s.sla.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.requireScoped(ctx, actor, domain.PermManageSLAPolicies, policy.DepartmentID, "You do not have permission to manage SLA policies"); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *AdminConfigService) loadTemplate(ctx context.Context, actor *domain.Profile, id string) (*domain.TicketTemplate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("template", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.requireScoped(ctx, actor, domain.PermManageTemplates, tpl.DepartmentID, "You do not have permission to manage templates"); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *AdminConfigService) loadQuestion(ctx context.Context, actor *domain.Profile, id string) (*domain.PrefilledQuestion, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("prefilled question", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.requireScoped(ctx, actor, domain.PermManagePrefilledQuestions, q.DepartmentID, "You do not have permission to manage prefilled questions"); err != nil {
		return nil, err
	}
	return q, nil
}
