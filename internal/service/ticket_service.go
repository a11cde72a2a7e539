package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/visibility"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const maxAttachmentSize = 10 << 20

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	profiles    repository.ProfileRepository
	departments repository.DepartmentRepository
	templates   repository.TemplateRepository
	sla         repository.SLAPolicyRepository
	authz       *authz.Checker
	visibility  *visibility.Filter
	blobs       persistence.BlobStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	ProfileRepo    repository.ProfileRepository
	DepartmentRepo repository.DepartmentRepository
	TemplateRepo   repository.TemplateRepository
	SLARepo        repository.SLAPolicyRepository
	Authz          *authz.Checker
	Visibility     *visibility.Filter
	Blobs          persistence.BlobStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	Priority      domain.TicketPriority
	DepartmentIDs []string
	TemplateID    *string
}

// TicketUpdateInput carries optional field changes.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
}

// TicketPage is one page of a tab listing.
type TicketPage struct {
	Tickets    []domain.Ticket
	Total      int
	NextCursor string
}

// AttachmentInput is an uploaded file.
type AttachmentInput struct {
	FileName string
	MimeType string
	Data     []byte
}

// CommentInput describes a new comment.
type CommentInput struct {
	Body        string
	IsInternal  bool
	Attachments []AttachmentInput
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		profiles:    deps.ProfileRepo,
		departments: deps.DepartmentRepo,
		templates:   deps.TemplateRepo,
		sla:         deps.SLARepo,
		authz:       deps.Authz,
		visibility:  deps.Visibility,
		blobs:       deps.Blobs,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTicket creates a ticket owned by actor. A template fills any field left empty.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Profile, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if input.TemplateID != nil && s.templates != nil {
		tpl, err := s.templates.GetByID(ctx, *input.TemplateID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewValidationError("template does not exist", map[string]any{"template_id": *input.TemplateID})
			}
			return nil, apperrors.MapError(err)
		}
		applyTemplate(&input, tpl)
	}

	ticket := &domain.Ticket{
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TicketStatusOpen,
		Priority:      input.Priority,
		CreatedBy:     actor.ID,
		DepartmentIDs: dedupe(input.DepartmentIDs),
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority must be one of low, medium, high, urgent", nil)
	}
	if err := s.ensureDepartments(ctx, ticket.DepartmentIDs); err != nil {
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapStorageError(err, "ticket could not be created")
	}
	s.recordHistory(ctx, actor.ID, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"title":    ticket.Title,
		"priority": ticket.Priority,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketChangedPayload{Ticket: events.SnapshotOf(ticket)},
	})
	return ticket, nil
}

// GetTicket fetches a ticket the actor may view.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanViewTicket(ctx, actor, ticket) {
		return nil, apperrors.NewForbidden("You do not have permission to view this ticket")
	}
	return ticket, nil
}

// UpdateTicket applies field changes and records one history row per change.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.Profile, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanEditTicket(ctx, actor, ticket) {
		return nil, apperrors.NewForbidden("You do not have permission to edit this ticket")
	}

	before := *ticket
	var changes []string
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title is required", nil)
		}
		if title != ticket.Title {
			ticket.Title = title
			changes = append(changes, "title")
		}
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != ticket.Description {
		ticket.Description = strings.TrimSpace(*input.Description)
		changes = append(changes, "description")
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("status must be one of open, in_progress, resolved, closed", nil)
		}
		if *input.Status != ticket.Status {
			ticket.Status = *input.Status
			changes = append(changes, "status")
		}
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("priority must be one of low, medium, high, urgent", nil)
		}
		if *input.Priority != ticket.Priority {
			ticket.Priority = *input.Priority
			changes = append(changes, "priority")
		}
	}
	if len(changes) == 0 {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, field := range changes {
		switch field {
		case "status":
			s.recordHistory(ctx, actor.ID, ticket.ID, domain.ChangeTypeStatus,
				map[string]any{"status": before.Status}, map[string]any{"status": ticket.Status})
		case "priority":
			s.recordHistory(ctx, actor.ID, ticket.ID, domain.ChangeTypePriority,
				map[string]any{"priority": before.Priority}, map[string]any{"priority": ticket.Priority})
		case "title":
			s.recordHistory(ctx, actor.ID, ticket.ID, domain.ChangeTypeDetails,
				map[string]any{"title": before.Title}, map[string]any{"title": ticket.Title})
		case "description":
			s.recordHistory(ctx, actor.ID, ticket.ID, domain.ChangeTypeDetails, nil, map[string]any{"description": "updated"})
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketChangedPayload{Ticket: events.SnapshotOf(ticket), Changes: changes},
	})
	return ticket, nil
}

// DeleteTicket removes a ticket when the actor holds delete_tickets for its departments.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.Profile, ticketID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !s.authz.CanDeleteTicket(ctx, actor, ticket) {
		return apperrors.NewForbidden("You do not have permission to delete this ticket")
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketDeletedPayload{DepartmentIDs: ticket.DepartmentIDs},
	})
	return nil
}

// ListTickets returns one page of a tab with the tab's total.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.Profile, req visibility.Request) (*TicketPage, error) {
	filter, empty, err := s.visibility.Build(ctx, actor, req)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	page := &TicketPage{Tickets: []domain.Ticket{}}
	if empty {
		return page, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tickets, err := s.tickets.List(gctx, filter)
		if err != nil {
			return err
		}
		page.Tickets = tickets
		return nil
	})
	g.Go(func() error {
		total, err := s.tickets.Count(gctx, filter)
		if err != nil {
			return err
		}
		page.Total = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	if filter.Limit > 0 && len(page.Tickets) == filter.Limit {
		last := page.Tickets[len(page.Tickets)-1]
		page.NextCursor = repository.TicketCursor{UpdatedAt: last.UpdatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// CountTickets counts every tab concurrently. Tabs the actor cannot see count zero.
func (s *TicketService) CountTickets(ctx context.Context, actor *domain.Profile, search string) (map[visibility.Tab]int, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	counts := make([]int, len(visibility.Tabs))
	g, gctx := errgroup.WithContext(ctx)
	for i, tab := range visibility.Tabs {
		g.Go(func() error {
			filter, empty, err := s.visibility.Build(gctx, actor, visibility.Request{Tab: tab, Search: search})
			if err != nil || empty {
				return err
			}
			n, err := s.tickets.Count(gctx, filter)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	out := make(map[visibility.Tab]int, len(counts))
	for i, tab := range visibility.Tabs {
		out[tab] = counts[i]
	}
	return out, nil
}

// ListComments returns the thread. The user role never sees internal notes.
func (s *TicketService) ListComments(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.TicketComment, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID, actor.Role != domain.RoleUser)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// AddComment posts a comment and stores its attachments in the blob store.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.Profile, ticketID string, input CommentInput) (*domain.TicketComment, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Body)
	if body == "" && len(input.Attachments) == 0 {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	if input.IsInternal && actor.Role == domain.RoleUser {
		return nil, apperrors.NewForbidden("You do not have permission to post internal notes")
	}
	if len(input.Attachments) > 0 && s.blobs == nil {
		return nil, apperrors.NewValidationError("attachments are not enabled", nil)
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Body:       body,
		IsInternal: input.IsInternal,
	}
	for _, file := range input.Attachments {
		att, err := s.storeAttachment(ctx, ticket.ID, file)
		if err != nil {
			return nil, err
		}
		comment.Attachments = append(comment.Attachments, *att)
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.UpdatedAt = comment.CreatedAt
	payload := events.TicketCommentAddedPayload{
		Ticket:     events.SnapshotOf(ticket),
		CommentID:  comment.ID,
		AuthorID:   actor.ID,
		IsInternal: comment.IsInternal,
	}
	// Ticket streams reach the requester, so internal notes travel without their body.
	if !comment.IsInternal {
		payload.BodyPreview = stringPreview(comment.Body, 120)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  payload,
	})
	return comment, nil
}

// DownloadAttachment returns an attachment's bytes when the actor may view its ticket.
func (s *TicketService) DownloadAttachment(ctx context.Context, actor *domain.Profile, attachmentID string) (*domain.Attachment, []byte, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	att, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	ticketID, err := s.attachments.TicketIDForAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, nil, err
	}
	if s.blobs == nil {
		return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
	}
	data, _, err := s.blobs.Get(ctx, att.StorageKey)
	if err != nil {
		s.logger.Error("attachment read failed", zap.String("key", att.StorageKey), zap.Error(err))
		return nil, nil, apperrors.NewInternalError(err)
	}
	return att, data, nil
}

// ListHistory returns the audit trail. The user role only sees lifecycle changes.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Role != domain.RoleUser {
		return history, nil
	}
	allowed := []domain.TicketHistory{}
	for _, entry := range history {
		switch entry.ChangeType {
		case domain.ChangeTypeCreated, domain.ChangeTypeStatus, domain.ChangeTypeAssignee:
			allowed = append(allowed, entry)
		}
	}
	return allowed, nil
}

// TicketSLA evaluates the ticket against its policy. A nil status means no policy applies.
func (s *TicketService) TicketSLA(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.SLAStatus, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	policy, err := s.sla.FindForTicket(ctx, ticket.Priority, ticket.DepartmentIDs)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	firstResponse, err := s.comments.FirstResponseAt(ctx, ticket.ID, ticket.CreatedBy)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	status := policy.Evaluate(ticket, firstResponse, s.now())
	return &status, nil
}

func (s *TicketService) storeAttachment(ctx context.Context, ticketID string, file AttachmentInput) (*domain.Attachment, error) {
	name := path.Base("/" + strings.TrimSpace(file.FileName))
	if name == "/" || name == "." {
		return nil, apperrors.NewValidationError("file name is required", nil)
	}
	if len(file.Data) == 0 || len(file.Data) > maxAttachmentSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("attachment %s must be between 1 byte and 10MB", name), nil)
	}
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	key := path.Join("tickets", ticketID, uuid.NewString(), name)
	if err := s.blobs.Put(ctx, key, file.Data, mimeType); err != nil {
		s.logger.Error("attachment upload failed", zap.String("key", key), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.Attachment{
		StorageKey: key,
		FileName:   name,
		MimeType:   mimeType,
		SizeBytes:  int64(len(file.Data)),
	}, nil
}

func (s *TicketService) ensureDepartments(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.departments.GetByID(ctx, id); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("department does not exist", map[string]any{"department_id": id})
			}
			return apperrors.MapError(err)
		}
	}
	return nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) loadProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("user does not exist", map[string]any{"user_id": profileID})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// recordHistory never fails the mutation it describes.
func (s *TicketService) recordHistory(ctx context.Context, actorID, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  actorID,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket history write failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func applyTemplate(input *TicketCreateInput, tpl *domain.TicketTemplate) {
	if strings.TrimSpace(input.Title) == "" {
		input.Title = tpl.Title
	}
	if strings.TrimSpace(input.Description) == "" {
		input.Description = tpl.Description
	}
	if input.Priority == "" {
		input.Priority = tpl.Priority
	}
	if len(input.DepartmentIDs) == 0 && tpl.DepartmentID != nil {
		input.DepartmentIDs = []string{*tpl.DepartmentID}
	}
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func requireActor(actor *domain.Profile) error {
	if actor == nil || !actor.Active() {
		return apperrors.NewUnauthenticated()
	}
	return nil
}
