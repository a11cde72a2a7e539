package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type grantTable []domain.PermissionGrant

func (g grantTable) GrantsForRole(_ context.Context, role domain.Role) ([]domain.PermissionGrant, error) {
	var out []domain.PermissionGrant
	for _, grant := range g {
		if grant.Role == role {
			out = append(out, grant)
		}
	}
	return out, nil
}

// seedGrants mirrors the default grant rows shipped with the schema migrations.
var seedGrants = grantTable{
	{Role: domain.RoleSystemAdmin, Key: domain.PermManageDepartments},
	{Role: domain.RoleSystemAdmin, Key: domain.PermManageUsers},
	{Role: domain.RoleSystemAdmin, Key: domain.PermDeleteTickets},
	{Role: domain.RoleSystemAdmin, Key: domain.PermAssignTickets},
	{Role: domain.RoleAdmin, Key: domain.PermManageDepartments},
	{Role: domain.RoleAdmin, Key: domain.PermManageUsers},
	{Role: domain.RoleAdmin, Key: domain.PermAssignTickets},
	{Role: domain.RoleManager, Key: domain.PermManageUsers, DepartmentScoped: true},
	{Role: domain.RoleManager, Key: domain.PermAssignTickets, DepartmentScoped: true},
	{Role: domain.RoleManager, Key: domain.PermViewAllTicketsInDept, DepartmentScoped: true},
	{Role: domain.RoleManager, Key: domain.PermTakeOverChats},
	{Role: domain.RoleAgent, Key: domain.PermTakeOverChats},
}

func newChecker() *authz.Checker {
	return authz.NewChecker(seedGrants, nil, nil)
}

func person(id string, role domain.Role, dept string) *domain.Profile {
	p := &domain.Profile{ID: id, Role: role, FullName: id, Email: id + "@example.com"}
	if dept != "" {
		p.DepartmentID = &dept
	}
	return p
}

type memTickets struct {
	mu      sync.Mutex
	byID    map[string]domain.Ticket
	seq     int
	bulkIDs []string
	now     func() time.Time
}

func newMemTickets(now func() time.Time) *memTickets {
	return &memTickets{byID: map[string]domain.Ticket{}, now: now}
}

func (m *memTickets) put(t domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = t
}

func (m *memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ticket.ID = fmt.Sprintf("t-%03d", m.seq)
	ticket.CreatedAt = m.now()
	ticket.UpdatedAt = ticket.CreatedAt
	m.byID[ticket.ID] = *ticket
	return nil
}

func (m *memTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = m.now()
	m.byID[ticket.ID] = *ticket
	return nil
}

func (m *memTickets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTickets) GetByIDs(_ context.Context, ids []string) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, id := range ids {
		if t, ok := m.byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTickets) matching(filter repository.TicketFilter) []domain.Ticket {
	var out []domain.Ticket
	for _, t := range m.byID {
		t := t
		if filter.Matches(&t) {
			out = append(out, t)
		}
	}
	repository.SortTickets(out)
	return out
}

func (m *memTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.matching(filter)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memTickets) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	filter.After = nil
	return len(m.matching(filter)), nil
}

func (m *memTickets) CollaboratorTicketIDs(_ context.Context, profileID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, t := range m.byID {
		if t.HasCollaborator(profileID) {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memTickets) AddCollaborator(_ context.Context, ticketID, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.byID[ticketID]
	t.CollaboratorIDs = append(t.CollaboratorIDs, profileID)
	m.byID[ticketID] = t
	return nil
}

func (m *memTickets) RemoveCollaborator(_ context.Context, ticketID, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.byID[ticketID]
	var kept []string
	for _, id := range t.CollaboratorIDs {
		if id != profileID {
			kept = append(kept, id)
		}
	}
	t.CollaboratorIDs = kept
	m.byID[ticketID] = t
	return nil
}

func (m *memTickets) BulkUpdate(_ context.Context, ids []string, patch repository.TicketPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkIDs = append(m.bulkIDs, ids...)
	var n int64
	for _, id := range ids {
		t, ok := m.byID[id]
		if !ok {
			continue
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.AssignedTo != nil {
			assignee := *patch.AssignedTo
			t.AssignedTo = &assignee
		}
		t.UpdatedAt = m.now()
		m.byID[id] = t
		n++
	}
	return n, nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (m *memHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = fmt.Sprintf("h-%d", len(m.entries)+1)
	m.entries = append(m.entries, *h)
	return nil
}

func (m *memHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range m.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memComments struct {
	mu       sync.Mutex
	comments []domain.TicketComment
}

func (m *memComments) Create(_ context.Context, c *domain.TicketComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = fmt.Sprintf("c-%d", len(m.comments)+1)
	c.CreatedAt = time.Now()
	m.comments = append(m.comments, *c)
	return nil
}

func (m *memComments) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketComment
	for _, c := range m.comments {
		if c.TicketID == ticketID && (includeInternal || !c.IsInternal) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memComments) FirstResponseAt(context.Context, string, string) (*time.Time, error) {
	return nil, nil
}

type memProfiles struct {
	mu        sync.Mutex
	byID      map[string]domain.Profile
	mutations int
}

func newMemProfiles(profiles ...*domain.Profile) *memProfiles {
	m := &memProfiles{byID: map[string]domain.Profile{}}
	for _, p := range profiles {
		m.byID[p.ID] = *p
	}
	return m
}

func (m *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("p-%d", len(m.byID)+1)
	}
	m.byID[p.ID] = *p
	m.mutations++
	return nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (m *memProfiles) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memProfiles) List(_ context.Context, filter repository.ProfileFilter) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Profile
	for _, p := range m.byID {
		if filter.DepartmentID != nil && !p.InDepartment(*filter.DepartmentID) {
			continue
		}
		if !filter.IncludeDeleted && !p.Active() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProfiles) update(id string, fn func(p *domain.Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&p)
	m.byID[id] = p
	m.mutations++
	return nil
}

func (m *memProfiles) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return m.update(id, func(p *domain.Profile) { p.Role = role })
}

func (m *memProfiles) UpdateDepartment(_ context.Context, id string, departmentID *string) error {
	return m.update(id, func(p *domain.Profile) { p.DepartmentID = departmentID })
}

func (m *memProfiles) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return m.update(id, func(p *domain.Profile) { p.PasswordHash = passwordHash })
}

func (m *memProfiles) SetDeletedAt(_ context.Context, id string, deletedAt *time.Time) error {
	return m.update(id, func(p *domain.Profile) { p.DeletedAt = deletedAt })
}

func (m *memProfiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	m.mutations++
	return nil
}

func (m *memProfiles) CountByDepartment(_ context.Context, departmentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.byID {
		if p.InDepartment(departmentID) {
			n++
		}
	}
	return n, nil
}

type memDepartments struct {
	mu        sync.Mutex
	byID      map[string]domain.Department
	mutations int
}

func newMemDepartments(ids ...string) *memDepartments {
	m := &memDepartments{byID: map[string]domain.Department{}}
	for _, id := range ids {
		m.byID[id] = domain.Department{ID: id, Name: id}
	}
	return m
}

func (m *memDepartments) Create(_ context.Context, d *domain.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = fmt.Sprintf("d-%d", len(m.byID)+1)
	m.byID[d.ID] = *d
	m.mutations++
	return nil
}

func (m *memDepartments) Update(_ context.Context, d *domain.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[d.ID] = *d
	m.mutations++
	return nil
}

func (m *memDepartments) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	m.mutations++
	return nil
}

func (m *memDepartments) GetByID(_ context.Context, id string) (*domain.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &d, nil
}

func (m *memDepartments) List(_ context.Context) ([]domain.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Department, 0, len(m.byID))
	for _, d := range m.byID {
		out = append(out, d)
	}
	return out, nil
}

type memChats struct {
	mu       sync.Mutex
	sessions map[string]domain.ChatSession
	messages []domain.ChatMessage
}

func newMemChats() *memChats {
	return &memChats{sessions: map[string]domain.ChatSession{}}
}

func (m *memChats) CreateSession(_ context.Context, s *domain.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = fmt.Sprintf("c-%d", len(m.sessions)+1)
	m.sessions[s.ID] = *s
	return nil
}

func (m *memChats) GetSession(_ context.Context, id string) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m *memChats) UpdateSession(_ context.Context, s *domain.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memChats) ListSessions(_ context.Context, modes []domain.ChatMode) ([]domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatSession
	for _, s := range m.sessions {
		for _, mode := range modes {
			if s.Mode == mode {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (m *memChats) AddMessage(_ context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = fmt.Sprintf("m-%d", len(m.messages)+1)
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memChats) ListMessages(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memTasks struct {
	mu   sync.Mutex
	byID map[string]domain.Task
}

func newMemTasks() *memTasks {
	return &memTasks{byID: map[string]domain.Task{}}
}

func (m *memTasks) Create(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.ID = fmt.Sprintf("k-%d", len(m.byID)+1)
	task.Position = 0
	for _, t := range m.byID {
		if t.Column == task.Column {
			task.Position++
		}
	}
	m.byID[task.ID] = *task
	return nil
}

func (m *memTasks) Update(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[task.ID] = *task
	return nil
}

func (m *memTasks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTasks) List(_ context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Task, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memTasks) Move(_ context.Context, id string, column domain.TaskColumn, position int) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t.Column = column
	t.Position = position
	m.byID[id] = t
	return &t, nil
}
