package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/crm"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// CRMHandler proxies the external CRM through the local mirror.
type CRMHandler struct {
	sync  *crm.SyncService
	authz *authz.Checker
}

// NewCRMHandler constructs handler.
func NewCRMHandler(syncService *crm.SyncService, checker *authz.Checker) *CRMHandler {
	return &CRMHandler{sync: syncService, authz: checker}
}

// ListTickets GET /api/crm/tickets?search=&status=&limit=&offset=.
func (h *CRMHandler) ListTickets(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	tickets, total, err := h.sync.ListMirror(c.UserContext(), profile, repository.CRMTicketFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	})
	if err != nil {
		return err
	}
	items := make([]dto.CRMTicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewCRMTicketResponse(&tickets[i]))
	}
	return ok(c, fiber.Map{"items": items, "total": total})
}

// GetTicket GET /api/crm/tickets/:id.
func (h *CRMHandler) GetTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	detail, err := h.sync.GetTicketDetail(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewCRMTicketDetailResponse(detail))
}

// UpdateTicket PATCH /api/crm/tickets/:id.
func (h *CRMHandler) UpdateTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CRMTicketUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.sync.UpdateTicket(c.UserContext(), profile, c.Params("id"), crm.TicketPatch{
		Status:     req.Status,
		Priority:   req.Priority,
		ManagerID:  req.ManagerID,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return err
	}
	return ok(c, dto.NewCRMTicketResponse(ticket))
}

// CloseTicket POST /api/crm/tickets/:id/close.
func (h *CRMHandler) CloseTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	ticket, err := h.sync.CloseTicket(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewCRMTicketResponse(ticket))
}

// AddComment POST /api/crm/tickets/:id/comments.
func (h *CRMHandler) AddComment(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CRMCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	files, err := decodeUploads(req.Attachments)
	if err != nil {
		return err
	}
	uploads := make([]crm.UploadAttachment, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, crm.UploadAttachment{FileName: f.FileName, ContentType: f.ContentType, Data: f.Data})
	}
	comment, err := h.sync.AddComment(c.UserContext(), profile, c.Params("id"), req.Text, uploads)
	if err != nil {
		return err
	}
	return created(c, dto.NewCRMCommentResponse(comment))
}

// UpdateComment PUT /api/crm/tickets/:id/comments/:commentId.
func (h *CRMHandler) UpdateComment(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CRMCommentUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.sync.UpdateComment(c.UserContext(), profile, c.Params("id"), c.Params("commentId"), req.Text)
	if err != nil {
		return err
	}
	return ok(c, dto.NewCRMCommentResponse(comment))
}

// DeleteComment DELETE /api/crm/tickets/:id/comments/:commentId.
func (h *CRMHandler) DeleteComment(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.sync.DeleteComment(c.UserContext(), profile, c.Params("id"), c.Params("commentId")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// SearchUsers GET /api/crm/users?q=.
func (h *CRMHandler) SearchUsers(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	users, err := h.sync.SearchUsers(c.UserContext(), profile, c.Query("q"))
	if err != nil {
		return err
	}
	return ok(c, users)
}

// ListCategories GET /api/crm/categories.
func (h *CRMHandler) ListCategories(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	categories, err := h.sync.ListCategories(c.UserContext(), profile)
	if err != nil {
		return err
	}
	return ok(c, categories)
}

// ListManagers GET /api/crm/managers.
func (h *CRMHandler) ListManagers(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	managers, err := h.sync.ListManagers(c.UserContext(), profile)
	if err != nil {
		return err
	}
	return ok(c, managers)
}

// Sync POST /api/crm/sync?page=&status=&search=. Pulls one page into the mirror on demand.
func (h *CRMHandler) Sync(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.authz.Require(c.UserContext(), profile, domain.PermManageCRMTickets,
		"You do not have permission to sync CRM tickets"); err != nil {
		return err
	}
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	upserted, err := h.sync.SyncTickets(c.UserContext(), page, crm.ListFilters{
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"page": page, "upserted": upserted})
}
