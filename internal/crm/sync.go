package crm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultPageSize      = 50
	maxPageSize          = 200
	attachmentFetchLimit = 4
	forbiddenMessage     = "You do not have permission to manage CRM tickets"
)

// ErrNotConfigured is returned when no CRM endpoint is set.
var ErrNotConfigured = errors.New("crm is not configured")

// Permissions is the slice of the authorizer the bridge needs.
type Permissions interface {
	Require(ctx context.Context, actor *domain.Profile, key domain.PermissionKey, message string) error
}

// SyncRecorder observes sync runs.
type SyncRecorder interface {
	RecordCRMSync(upserted int, err error)
}

// Dependencies wires the sync bridge.
type Dependencies struct {
	Client      Client
	Mirror      repository.CRMTicketRepository
	Blobs       persistence.BlobStore
	Permissions Permissions
	Metrics     SyncRecorder
	Logger      *zap.Logger
	PageSize    int
}

// SyncService mirrors CRM tickets locally and proxies edits to the CRM.
type SyncService struct {
	client      Client
	mirror      repository.CRMTicketRepository
	blobs       persistence.BlobStore
	permissions Permissions
	metrics     SyncRecorder
	logger      *zap.Logger
	pageSize    int
	now         func() time.Time
}

// NewSyncService builds the bridge. Client may be nil when the CRM is not configured.
func NewSyncService(deps Dependencies) *SyncService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &SyncService{
		client:      deps.Client,
		mirror:      deps.Mirror,
		blobs:       deps.Blobs,
		permissions: deps.Permissions,
		metrics:     deps.Metrics,
		logger:      logger,
		pageSize:    pageSize,
		now:         time.Now,
	}
}

// SyncTickets pulls one bounded page and upserts it into the mirror. The remote copy wins.
func (s *SyncService) SyncTickets(ctx context.Context, page int, filters ListFilters) (int, error) {
	upserted, err := s.syncPage(ctx, page, filters)
	if s.metrics != nil {
		s.metrics.RecordCRMSync(upserted, err)
	}
	return upserted, err
}

func (s *SyncService) syncPage(ctx context.Context, page int, filters ListFilters) (int, error) {
	if s.client == nil {
		return 0, apperrors.NewUpstream(ErrNotConfigured)
	}
	if page < 1 {
		page = 1
	}

	result, err := s.client.ListTickets(ctx, page, s.pageSize, filters)
	if err != nil {
		s.logger.Warn("crm list tickets failed", zap.Int("page", page), zap.Error(err))
		return 0, apperrors.NewUpstream(err)
	}

	syncedAt := s.now().UTC()
	rows := make([]domain.CRMTicket, 0, len(result.Tickets))
	for _, t := range result.Tickets {
		if t.ID == "" {
			continue
		}
		rows = append(rows, toMirror(t, syncedAt))
	}

	upserted, err := s.mirror.Upsert(ctx, rows)
	if err != nil {
		s.logger.Error("crm mirror upsert failed", zap.Error(err))
		return 0, apperrors.MapError(err)
	}
	s.logger.Info("crm tickets synced", zap.Int("page", page), zap.Int("upserted", upserted))
	return upserted, nil
}

// ListMirror reads the local mirror.
func (s *SyncService) ListMirror(ctx context.Context, actor *domain.Profile, filter repository.CRMTicketFilter) ([]domain.CRMTicket, int, error) {
	if err := s.require(ctx, actor); err != nil {
		return nil, 0, err
	}
	tickets, total, err := s.mirror.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return tickets, total, nil
}

// GetTicketDetail loads a ticket with its comments and inlined attachments.
// When the CRM is unreachable the cached mirror row is returned with Stale set.
func (s *SyncService) GetTicketDetail(ctx context.Context, actor *domain.Profile, crmID string) (*domain.CRMTicketDetail, error) {
	if err := s.require(ctx, actor); err != nil {
		return nil, err
	}

	detail, err := s.fetchDetail(ctx, crmID)
	if err == nil {
		return detail, nil
	}
	s.logger.Warn("crm ticket detail failed, trying mirror", zap.String("crm_id", crmID), zap.Error(err))

	cached, cacheErr := s.mirror.GetByCRMID(ctx, crmID)
	if cacheErr != nil {
		if !apperrors.IsNotFound(cacheErr) {
			s.logger.Error("crm mirror lookup failed", zap.String("crm_id", crmID), zap.Error(cacheErr))
		}
		return nil, apperrors.NewUpstream(err)
	}
	return &domain.CRMTicketDetail{Ticket: *cached, Comments: []domain.CRMComment{}, Stale: true}, nil
}

func (s *SyncService) fetchDetail(ctx context.Context, crmID string) (*domain.CRMTicketDetail, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	var (
		ticket   *RemoteTicket
		comments []RemoteComment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ticket, err = s.client.GetTicket(gctx, crmID)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.client.ListComments(gctx, crmID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	row := toMirror(*ticket, s.now().UTC())
	if _, err := s.mirror.Upsert(ctx, []domain.CRMTicket{row}); err != nil {
		s.logger.Warn("crm mirror refresh failed", zap.String("crm_id", crmID), zap.Error(err))
	}

	detail := &domain.CRMTicketDetail{Ticket: row, Comments: make([]domain.CRMComment, 0, len(comments))}
	for _, c := range comments {
		detail.Comments = append(detail.Comments, toComment(c))
	}
	s.inlineAttachments(ctx, crmID, detail.Comments)
	return detail, nil
}

// inlineAttachments downloads every attachment in parallel. Failures leave DataURI empty.
func (s *SyncService) inlineAttachments(ctx context.Context, crmID string, comments []domain.CRMComment) {
	var g errgroup.Group
	g.SetLimit(attachmentFetchLimit)
	for ci := range comments {
		for ai := range comments[ci].Attachments {
			att := &comments[ci].Attachments[ai]
			if att.URL == "" {
				continue
			}
			g.Go(func() error {
				data, contentType, err := s.client.DownloadAttachment(ctx, att.URL)
				if err != nil {
					s.logger.Warn("crm attachment download failed",
						zap.String("crm_id", crmID),
						zap.String("attachment_id", att.ID),
						zap.Error(err))
					return nil
				}
				if att.ContentType == "" {
					att.ContentType = contentType
				}
				if att.ContentType == "" {
					att.ContentType = "application/octet-stream"
				}
				att.DataURI = "data:" + att.ContentType + ";base64," + base64.StdEncoding.EncodeToString(data)
				att.StoredKey = s.rehost(ctx, crmID, att, data)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (s *SyncService) rehost(ctx context.Context, crmID string, att *domain.CRMAttachment, data []byte) string {
	if s.blobs == nil {
		return ""
	}
	key := path.Join("crm", crmID, att.ID, path.Base("/"+att.FileName))
	if err := s.blobs.Put(ctx, key, data, att.ContentType); err != nil {
		s.logger.Warn("crm attachment rehost failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

// AddComment posts a comment to the CRM and refreshes the mirror row.
func (s *SyncService) AddComment(ctx context.Context, actor *domain.Profile, crmID, text string, attachments []UploadAttachment) (*domain.CRMComment, error) {
	if err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	created, err := s.client.AddComment(ctx, crmID, text, attachments)
	if err != nil {
		return nil, s.upstream("add comment", crmID, err)
	}
	s.resync(ctx, crmID)
	comment := toComment(*created)
	return &comment, nil
}

// UpdateComment edits a CRM comment.
func (s *SyncService) UpdateComment(ctx context.Context, actor *domain.Profile, crmID, commentID, text string) (*domain.CRMComment, error) {
	if err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	updated, err := s.client.UpdateComment(ctx, crmID, commentID, text)
	if err != nil {
		return nil, s.upstream("update comment", crmID, err)
	}
	s.resync(ctx, crmID)
	comment := toComment(*updated)
	return &comment, nil
}

// DeleteComment removes a CRM comment.
func (s *SyncService) DeleteComment(ctx context.Context, actor *domain.Profile, crmID, commentID string) error {
	if err := s.writable(ctx, actor); err != nil {
		return err
	}
	if err := s.client.DeleteComment(ctx, crmID, commentID); err != nil {
		return s.upstream("delete comment", crmID, err)
	}
	s.resync(ctx, crmID)
	return nil
}

// UpdateTicket patches remote ticket fields and stores the returned copy.
func (s *SyncService) UpdateTicket(ctx context.Context, actor *domain.Profile, crmID string, patch TicketPatch) (*domain.CRMTicket, error) {
	if err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	updated, err := s.client.UpdateTicket(ctx, crmID, patch)
	if err != nil {
		return nil, s.upstream("update ticket", crmID, err)
	}
	return s.store(ctx, *updated), nil
}

// CloseTicket closes the remote ticket.
func (s *SyncService) CloseTicket(ctx context.Context, actor *domain.Profile, crmID string) (*domain.CRMTicket, error) {
	if err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	closed, err := s.client.CloseTicket(ctx, crmID)
	if err != nil {
		return nil, s.upstream("close ticket", crmID, err)
	}
	return s.store(ctx, *closed), nil
}

// SearchUsers proxies the CRM user search.
func (s *SyncService) SearchUsers(ctx context.Context, actor *domain.Profile, query string) ([]RemoteUser, error) {
	if err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	users, err := s.client.SearchUsers(ctx, query)
	if err != nil {
		return nil, s.upstream("search users", "", err)
	}
	return users, nil
}

// ListCategories proxies the CRM category list.
func (s *SyncService) ListCategories(ctx context.Context, actor *domain.Profile) ([]RemoteCategory, error) {
	if err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	categories, err := s.client.ListCategories(ctx)
	if err != nil {
		return nil, s.upstream("list categories", "", err)
	}
	return categories, nil
}

// ListManagers proxies the CRM manager list.
func (s *SyncService) ListManagers(ctx context.Context, actor *domain.Profile) ([]RemoteUser, error) {
	if err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	managers, err := s.client.ListManagers(ctx)
	if err != nil {
		return nil, s.upstream("list managers", "", err)
	}
	return managers, nil
}

func (s *SyncService) require(ctx context.Context, actor *domain.Profile) error {
	if actor == nil {
		return apperrors.NewUnauthenticated()
	}
	if s.permissions == nil {
		return apperrors.NewForbidden(forbiddenMessage)
	}
	return s.permissions.Require(ctx, actor, domain.PermManageCRMTickets, forbiddenMessage)
}

func (s *SyncService) writable(ctx context.Context, actor *domain.Profile) error {
	if err := s.require(ctx, actor); err != nil {
		return err
	}
	if s.client == nil {
		return apperrors.NewUpstream(ErrNotConfigured)
	}
	return nil
}

func (s *SyncService) upstream(op, crmID string, err error) error {
	s.logger.Warn("crm call failed", zap.String("op", op), zap.String("crm_id", crmID), zap.Error(err))
	return apperrors.NewUpstream(fmt.Errorf("%s: %w", op, err))
}

// resync refreshes one mirror row after a write. Failures only log; the write already succeeded.
func (s *SyncService) resync(ctx context.Context, crmID string) {
	ticket, err := s.client.GetTicket(ctx, crmID)
	if err != nil {
		s.logger.Warn("crm resync failed", zap.String("crm_id", crmID), zap.Error(err))
		return
	}
	s.store(ctx, *ticket)
}

func (s *SyncService) store(ctx context.Context, ticket RemoteTicket) *domain.CRMTicket {
	row := toMirror(ticket, s.now().UTC())
	if _, err := s.mirror.Upsert(ctx, []domain.CRMTicket{row}); err != nil {
		s.logger.Warn("crm mirror write failed", zap.String("crm_id", row.CRMID), zap.Error(err))
	}
	return &row
}
