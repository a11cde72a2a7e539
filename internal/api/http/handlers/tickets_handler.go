package handlers

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/visibility"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler serves ticket endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), profile, service.TicketCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		DepartmentIDs: req.DepartmentIDs,
		TemplateID:    req.TemplateID,
	})
	if err != nil {
		return err
	}
	return created(c, dto.NewTicketResponse(ticket))
}

// ListTickets GET /api/tickets?tab=&search=&status=&priority=&cursor=&limit=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	req := visibility.Request{
		Tab:    visibility.Tab(c.Query("tab", string(visibility.TabMyTickets))),
		Search: c.Query("search"),
		Cursor: c.Query("cursor"),
		Limit:  queryInt(c, "limit", 0),
	}
	if status := c.Query("status"); status != "" {
		s := domain.TicketStatus(status)
		req.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := domain.TicketPriority(priority)
		req.Priority = &p
	}
	page, err := h.service.ListTickets(c.UserContext(), profile, req)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, dto.NewTicketResponse(&page.Tickets[i]))
	}
	return ok(c, dto.TicketPageResponse{Items: items, Total: page.Total, NextCursor: page.NextCursor})
}

// CountTickets GET /api/tickets/counts.
func (h *TicketsHandler) CountTickets(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	counts, err := h.service.CountTickets(c.UserContext(), profile, c.Query("search"))
	if err != nil {
		return err
	}
	return ok(c, counts)
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewTicketResponse(ticket))
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), profile, c.Params("id"), service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return ok(c, dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// AssignTicket PUT /api/tickets/:id/assignee.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.AssigneeID != nil && strings.TrimSpace(*req.AssigneeID) == "" {
		req.AssigneeID = nil
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), profile, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return ok(c, dto.NewTicketResponse(ticket))
}

// AddCollaborator POST /api/tickets/:id/collaborators.
func (h *TicketsHandler) AddCollaborator(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CollaboratorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AddCollaborator(c.UserContext(), profile, c.Params("id"), req.ProfileID)
	if err != nil {
		return err
	}
	return ok(c, dto.NewTicketResponse(ticket))
}

// RemoveCollaborator DELETE /api/tickets/:id/collaborators/:profileId.
func (h *TicketsHandler) RemoveCollaborator(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.RemoveCollaborator(c.UserContext(), profile, c.Params("id"), c.Params("profileId"))
	if err != nil {
		return err
	}
	return ok(c, dto.NewTicketResponse(ticket))
}

// BulkUpdate POST /api/tickets/bulk.
func (h *TicketsHandler) BulkUpdate(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.BulkUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.BulkUpdate(c.UserContext(), profile, service.BulkUpdateInput{
		TicketIDs:  req.TicketIDs,
		Status:     req.Status,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return ok(c, dto.BulkUpdateResponse{Updated: result.Updated, Skipped: result.Skipped})
}

// ListComments GET /api/tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return ok(c, items)
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	files, err := decodeUploads(req.Attachments)
	if err != nil {
		return err
	}
	input := service.CommentInput{Body: req.Body, IsInternal: req.IsInternal}
	for _, f := range files {
		input.Attachments = append(input.Attachments, service.AttachmentInput{
			FileName: f.FileName,
			MimeType: f.ContentType,
			Data:     f.Data,
		})
	}
	comment, err := h.service.AddComment(c.UserContext(), profile, c.Params("id"), input)
	if err != nil {
		return err
	}
	return created(c, dto.NewCommentResponse(comment))
}

// DownloadAttachment GET /api/attachments/:id.
func (h *TicketsHandler) DownloadAttachment(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	att, data, err := h.service.DownloadAttachment(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	mime := att.MimeType
	if mime == "" {
		mime = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, mime)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", att.FileName))
	return c.Send(data)
}

// ListHistory GET /api/tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.NewHistoryResponse(&history[i]))
	}
	return ok(c, items)
}

// TicketSLA GET /api/tickets/:id/sla.
func (h *TicketsHandler) TicketSLA(c *fiber.Ctx) error {
	profile, err := actor(c)
	if err != nil {
		return err
	}
	status, err := h.service.TicketSLA(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	if status == nil {
		return ok(c, nil)
	}
	return ok(c, dto.NewSLAResponse(status))
}

type upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

func decodeUploads(files []dto.AttachmentUpload) ([]upload, error) {
	out := make([]upload, 0, len(files))
	for i, f := range files {
		data, err := base64.StdEncoding.DecodeString(f.ContentBase64)
		if err != nil {
			return nil, apperrors.NewValidationError("attachment content must be base64",
				map[string]any{"index": i, "file_name": f.FileName})
		}
		out = append(out, upload{FileName: f.FileName, ContentType: f.MimeType, Data: data})
	}
	return out, nil
}
