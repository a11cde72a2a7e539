package crm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type fakeClient struct {
	mu        sync.Mutex
	tickets   map[string]RemoteTicket
	comments  map[string][]RemoteComment
	files     map[string][]byte
	down      bool
	listPages []int
	closed    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{tickets: map[string]RemoteTicket{}, comments: map[string][]RemoteComment{}, files: map[string][]byte{}}
}

var errDown = errors.New("connection refused")

func (f *fakeClient) ListTickets(_ context.Context, page, perPage int, _ ListFilters) (*TicketPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, &UpstreamError{Op: "list tickets", Err: errDown}
	}
	f.listPages = append(f.listPages, page)
	out := &TicketPage{Total: len(f.tickets)}
	for _, t := range f.tickets {
		if len(out.Tickets) == perPage {
			break
		}
		out.Tickets = append(out.Tickets, t)
	}
	return out, nil
}

func (f *fakeClient) GetTicket(_ context.Context, id string) (*RemoteTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, &UpstreamError{Op: "get ticket", Err: errDown}
	}
	t, ok := f.tickets[id]
	if !ok {
		return nil, &UpstreamError{Op: "get ticket", Status: 404}
	}
	return &t, nil
}

func (f *fakeClient) ListComments(_ context.Context, id string) ([]RemoteComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, &UpstreamError{Op: "list comments", Err: errDown}
	}
	return f.comments[id], nil
}

func (f *fakeClient) AddComment(_ context.Context, id, text string, _ []UploadAttachment) (*RemoteComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := RemoteComment{ID: "new", Body: text}
	f.comments[id] = append(f.comments[id], c)
	return &c, nil
}

func (f *fakeClient) UpdateComment(_ context.Context, _, commentID, text string) (*RemoteComment, error) {
	return &RemoteComment{ID: commentID, Body: text}, nil
}

func (f *fakeClient) DeleteComment(context.Context, string, string) error { return nil }

func (f *fakeClient) UpdateTicket(_ context.Context, id string, patch TicketPatch) (*RemoteTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	f.tickets[id] = t
	return &t, nil
}

func (f *fakeClient) CloseTicket(_ context.Context, id string) (*RemoteTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	t.Status = "closed"
	f.tickets[id] = t
	f.closed = append(f.closed, id)
	return &t, nil
}

func (f *fakeClient) SearchUsers(context.Context, string) ([]RemoteUser, error) {
	return []RemoteUser{{ID: "u1", Name: "Ana"}}, nil
}

func (f *fakeClient) ListCategories(context.Context) ([]RemoteCategory, error) { return nil, nil }

func (f *fakeClient) ListManagers(context.Context) ([]RemoteUser, error) { return nil, nil }

func (f *fakeClient) DownloadAttachment(_ context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[url]
	if !ok {
		return nil, "", &UpstreamError{Op: "download attachment", Status: 500}
	}
	return data, "text/plain", nil
}

type fakeMirror struct {
	mu   sync.Mutex
	rows map[string]domain.CRMTicket
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[string]domain.CRMTicket{}}
}

func (m *fakeMirror) Upsert(_ context.Context, tickets []domain.CRMTicket) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tickets {
		m.rows[t.CRMID] = t
	}
	return len(tickets), nil
}

func (m *fakeMirror) GetByCRMID(_ context.Context, id string) (*domain.CRMTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *fakeMirror) List(_ context.Context, _ repository.CRMTicketFilter) ([]domain.CRMTicket, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CRMTicket, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, t)
	}
	return out, len(out), nil
}

type fakeBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (b *fakeBlobs) Put(_ context.Context, key string, _ []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	return nil
}

func (b *fakeBlobs) Get(context.Context, string) ([]byte, string, error) { return nil, "", nil }

type rolePermissions struct{}

func (rolePermissions) Require(_ context.Context, actor *domain.Profile, _ domain.PermissionKey, message string) error {
	if actor.Role == domain.RoleUser {
		return apperrors.NewForbidden(message)
	}
	return nil
}

type syncCounter struct {
	runs, failures, upserted int
}

func (c *syncCounter) RecordCRMSync(upserted int, err error) {
	c.runs++
	if err != nil {
		c.failures++
	}
	c.upserted += upserted
}

func newSyncFixture() (*SyncService, *fakeClient, *fakeMirror, *fakeBlobs, *syncCounter) {
	client := newFakeClient()
	mirror := newFakeMirror()
	blobs := &fakeBlobs{}
	counter := &syncCounter{}
	svc := NewSyncService(Dependencies{
		Client:      client,
		Mirror:      mirror,
		Blobs:       blobs,
		Permissions: rolePermissions{},
		Metrics:     counter,
		PageSize:    2,
	})
	return svc, client, mirror, blobs, counter
}

var agent = &domain.Profile{ID: "a1", Role: domain.RoleAgent}

func TestSyncTicketsUpsertsBoundedPage(t *testing.T) {
	svc, client, mirror, _, counter := newSyncFixture()
	for _, id := range []string{"c1", "c2", "c3"} {
		client.tickets[id] = RemoteTicket{ID: id, Subject: "remote " + id}
	}
	mirror.rows["c1"] = domain.CRMTicket{CRMID: "c1", Subject: "local edit"}

	n, err := svc.SyncTickets(context.Background(), 0, ListFilters{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected page of 2, got %d", n)
	}
	if client.listPages[0] != 1 {
		t.Fatalf("page should be clamped to 1")
	}
	if counter.runs != 1 || counter.upserted != 2 {
		t.Fatalf("unexpected metrics %+v", counter)
	}

	_, _ = svc.SyncTickets(context.Background(), 1, ListFilters{})
	_, _ = svc.SyncTickets(context.Background(), 1, ListFilters{})
	for id, row := range mirror.rows {
		if strings.HasPrefix(row.Subject, "local") {
			t.Fatalf("remote copy should win for %s", id)
		}
	}
}

func TestSyncTicketsUpstreamFailure(t *testing.T) {
	svc, client, _, _, counter := newSyncFixture()
	client.down = true

	_, err := svc.SyncTickets(context.Background(), 1, ListFilters{})
	if de := apperrors.ToDomainError(err); de.Code != apperrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if counter.failures != 1 {
		t.Fatalf("expected failure recorded")
	}
}

func TestGetTicketDetailInlinesAttachments(t *testing.T) {
	svc, client, mirror, blobs, _ := newSyncFixture()
	client.tickets["c1"] = RemoteTicket{ID: "c1", Subject: "VPN"}
	client.comments["c1"] = []RemoteComment{{
		ID:   "cm1",
		Body: "see logs",
		Attachments: []RemoteAttachment{
			{ID: "f1", FileName: "log.txt", URL: "https://crm/files/1"},
			{ID: "f2", FileName: "gone.txt", URL: "https://crm/files/2"},
		},
	}}
	client.files["https://crm/files/1"] = []byte("hello")

	detail, err := svc.GetTicketDetail(context.Background(), agent, "c1")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Stale {
		t.Fatalf("fresh detail should not be stale")
	}
	atts := detail.Comments[0].Attachments
	if atts[0].DataURI != "data:text/plain;base64,aGVsbG8=" {
		t.Fatalf("unexpected data uri %q", atts[0].DataURI)
	}
	if atts[1].DataURI != "" {
		t.Fatalf("failed download should leave empty payload")
	}
	if atts[0].StoredKey != "crm/c1/f1/log.txt" || len(blobs.keys) != 1 {
		t.Fatalf("expected rehosted attachment, got %q %v", atts[0].StoredKey, blobs.keys)
	}
	if _, ok := mirror.rows["c1"]; !ok {
		t.Fatalf("detail load should refresh the mirror")
	}
}

func TestGetTicketDetailFallsBackToMirror(t *testing.T) {
	svc, client, mirror, _, _ := newSyncFixture()
	client.down = true
	mirror.rows["c1"] = domain.CRMTicket{CRMID: "c1", Subject: "cached"}

	detail, err := svc.GetTicketDetail(context.Background(), agent, "c1")
	if err != nil {
		t.Fatalf("expected cached detail, got %v", err)
	}
	if !detail.Stale || detail.Ticket.Subject != "cached" {
		t.Fatalf("unexpected fallback %+v", detail)
	}

	_, err = svc.GetTicketDetail(context.Background(), agent, "c9")
	if de := apperrors.ToDomainError(err); de.Code != apperrors.CodeUpstream {
		t.Fatalf("expected upstream error without cache, got %v", err)
	}
	if strings.Contains(apperrors.ToDomainError(err).Message, "refused") {
		t.Fatalf("raw upstream text leaked into message")
	}
}

func TestWritesRequirePermissionAndResync(t *testing.T) {
	svc, client, mirror, _, _ := newSyncFixture()
	client.tickets["c1"] = RemoteTicket{ID: "c1", Status: "open"}

	user := &domain.Profile{ID: "u1", Role: domain.RoleUser}
	_, err := svc.CloseTicket(context.Background(), user, "c1")
	if de := apperrors.ToDomainError(err); de.Code != apperrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(client.closed) != 0 {
		t.Fatalf("denied close must not reach the CRM")
	}

	if _, err := svc.AddComment(context.Background(), nil, "c1", "x", nil); apperrors.ToDomainError(err).Code != apperrors.CodeUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	closed, err := svc.CloseTicket(context.Background(), agent, "c1")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != "closed" || mirror.rows["c1"].Status != "closed" {
		t.Fatalf("mirror not refreshed after close")
	}

	if _, err := svc.AddComment(context.Background(), agent, "c1", "thanks", nil); err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if len(client.comments["c1"]) != 1 {
		t.Fatalf("comment not forwarded")
	}
}

func TestUnconfiguredClient(t *testing.T) {
	svc := NewSyncService(Dependencies{Mirror: newFakeMirror(), Permissions: rolePermissions{}})
	if _, err := svc.SyncTickets(context.Background(), 1, ListFilters{}); apperrors.ToDomainError(err).Code != apperrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := svc.SearchUsers(context.Background(), agent, "ana"); apperrors.ToDomainError(err).Code != apperrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
