package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminConfigHandler serves SLA policies, ticket templates and prefilled questions.
type AdminConfigHandler struct {
	service *service.AdminConfigService
}

// NewAdminConfigHandler constructs handler.
func NewAdminConfigHandler(adminService *service.AdminConfigService) *AdminConfigHandler {
	return &AdminConfigHandler{service: adminService}
}

// ListSLAPolicies GET /api/sla-policies.
func (h *AdminConfigHandler) ListSLAPolicies(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	policies, err := h.service.ListSLAPolicies(c.UserContext(), profile)
	if err != nil {
		return err
	}
	items := make([]dto.SLAPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, dto.NewSLAPolicyResponse(&policies[i]))
	}
	return ok(c, items)
}

// CreateSLAPolicy POST /api/sla-policies.
func (h *AdminConfigHandler) CreateSLAPolicy(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.SLAPolicyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	policy, err := h.service.CreateSLAPolicy(c.UserContext(), profile, slaInput(req))
	if err != nil {
		return err
	}
	return created(c, dto.NewSLAPolicyResponse(policy))
}

// UpdateSLAPolicy PUT /api/sla-policies/:id.
func (h *AdminConfigHandler) UpdateSLAPolicy(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.SLAPolicyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	policy, err := h.service.UpdateSLAPolicy(c.UserContext(), profile, c.Params("id"), slaInput(req))
	if err != nil {
		return err
	}
	return ok(c, dto.NewSLAPolicyResponse(policy))
}

// DeleteSLAPolicy DELETE /api/sla-policies/:id.
func (h *AdminConfigHandler) DeleteSLAPolicy(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteSLAPolicy(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// ListTemplates GET /api/templates.
func (h *AdminConfigHandler) ListTemplates(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	templates, err := h.service.ListTemplates(c.UserContext(), profile)
	if err != nil {
		return err
	}
	items := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, dto.NewTemplateResponse(&templates[i]))
	}
	return ok(c, items)
}

// CreateTemplate POST /api/templates.
func (h *AdminConfigHandler) CreateTemplate(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TemplateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tpl, err := h.service.CreateTemplate(c.UserContext(), profile, templateInput(req))
	if err != nil {
		return err
	}
	return created(c, dto.NewTemplateResponse(tpl))
}

// UpdateTemplate PUT /api/templates/:id.
func (h *AdminConfigHandler) UpdateTemplate(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TemplateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tpl, err := h.service.UpdateTemplate(c.UserContext(), profile, c.Params("id"), templateInput(req))
	if err != nil {
		return err
	}
	return ok(c, dto.NewTemplateResponse(tpl))
}

// DeleteTemplate DELETE /api/templates/:id.
func (h *AdminConfigHandler) DeleteTemplate(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTemplate(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// ListQuestions GET /api/prefilled-questions?include_inactive=.
func (h *AdminConfigHandler) ListQuestions(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	questions, err := h.service.ListQuestions(c.UserContext(), profile, c.QueryBool("include_inactive", false))
	if err != nil {
		return err
	}
	items := make([]dto.QuestionResponse, 0, len(questions))
	for i := range questions {
		items = append(items, dto.NewQuestionResponse(&questions[i]))
	}
	return ok(c, items)
}

// CreateQuestion POST /api/prefilled-questions.
func (h *AdminConfigHandler) CreateQuestion(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.QuestionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	q, err := h.service.CreateQuestion(c.UserContext(), profile, questionInput(req))
	if err != nil {
		return err
	}
	return created(c, dto.NewQuestionResponse(q))
}

// UpdateQuestion PUT /api/prefilled-questions/:id.
func (h *AdminConfigHandler) UpdateQuestion(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.QuestionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	q, err := h.service.UpdateQuestion(c.UserContext(), profile, c.Params("id"), questionInput(req))
	if err != nil {
		return err
	}
	return ok(c, dto.NewQuestionResponse(q))
}

// DeleteQuestion DELETE /api/prefilled-questions/:id.
func (h *AdminConfigHandler) DeleteQuestion(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteQuestion(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

func slaInput(req dto.SLAPolicyRequest) service.SLAPolicyInput {
	return service.SLAPolicyInput{
		Priority:        req.Priority,
		DepartmentID:    req.DepartmentID,
		ResponseHours:   req.ResponseHours,
		ResolutionHours: req.ResolutionHours,
		IsActive:        dto.ActiveOrDefault(req.IsActive),
	}
}

func templateInput(req dto.TemplateRequest) service.TemplateInput {
	return service.TemplateInput{
		Name:         req.Name,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DepartmentID: req.DepartmentID,
	}
}

func questionInput(req dto.QuestionRequest) service.QuestionInput {
	return service.QuestionInput{
		Question:     req.Question,
		Answer:       req.Answer,
		DepartmentID: req.DepartmentID,
		SortOrder:    req.SortOrder,
		IsActive:     dto.ActiveOrDefault(req.IsActive),
	}
}
