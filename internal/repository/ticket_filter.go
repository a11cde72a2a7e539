package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrInvalidCursor is returned for cursors this service did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// TicketCursor marks the last ticket of a page in updated_at DESC, id DESC order.
type TicketCursor struct {
	UpdatedAt time.Time
	ID        string
}

// Encode renders the cursor as an opaque token.
func (c TicketCursor) Encode() string {
	raw := c.UpdatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeTicketCursor parses a token produced by Encode.
func DecodeTicketCursor(token string) (*TicketCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &TicketCursor{UpdatedAt: ts, ID: parts[1]}, nil
}

// TicketFilter is a conjunction of ticket predicates. Zero fields do not restrict.
type TicketFilter struct {
	CreatorOrAssignee *string
	DepartmentID      *string
	IDs               []string
	StaleBefore       *time.Time
	Search            string
	Status            *domain.TicketStatus
	Priority          *domain.TicketPriority
	After             *TicketCursor
	Limit             int
}

// Where renders the predicates as SQL over alias t. Placeholders start after
// the args already collected. The cursor is excluded when withCursor is false.
func (f TicketFilter) Where(args []any, withCursor bool) (string, []any) {
	clauses := []string{"1=1"}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CreatorOrAssignee != nil {
		p := next(*f.CreatorOrAssignee)
		clauses = append(clauses, fmt.Sprintf("(t.created_by = %s OR t.assigned_to = %s)", p, p))
	}
	if f.DepartmentID != nil {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ticket_departments td WHERE td.ticket_id = t.id AND td.department_id = %s)",
			next(*f.DepartmentID)))
	}
	if f.IDs != nil {
		clauses = append(clauses, fmt.Sprintf("t.id = ANY(%s::uuid[])", next(f.IDs)))
	}
	if f.StaleBefore != nil {
		clauses = append(clauses, fmt.Sprintf("t.updated_at < %s AND t.status NOT IN ('closed','resolved')", next(*f.StaleBefore)))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		clauses = append(clauses, fmt.Sprintf("t.title ILIKE %s", next("%"+escapeLike(term)+"%")))
	}
	if f.Status != nil {
		clauses = append(clauses, fmt.Sprintf("t.status = %s", next(*f.Status)))
	}
	if f.Priority != nil {
		clauses = append(clauses, fmt.Sprintf("t.priority = %s", next(*f.Priority)))
	}
	if withCursor && f.After != nil {
		ts := next(f.After.UpdatedAt)
		id := next(f.After.ID)
		clauses = append(clauses, fmt.Sprintf("(t.updated_at, t.id) < (%s, %s::uuid)", ts, id))
	}
	return strings.Join(clauses, " AND "), args
}

// Matches evaluates the filter against a loaded ticket, cursor included.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.CreatorOrAssignee != nil && t.CreatedBy != *f.CreatorOrAssignee && !t.IsAssignedTo(*f.CreatorOrAssignee) {
		return false
	}
	if f.DepartmentID != nil && !t.InDepartment(*f.DepartmentID) {
		return false
	}
	if f.IDs != nil && !containsString(f.IDs, t.ID) {
		return false
	}
	if f.StaleBefore != nil && (!t.UpdatedAt.Before(*f.StaleBefore) || t.Status.Terminal()) {
		return false
	}
	if term := strings.TrimSpace(f.Search); term != "" &&
		!strings.Contains(strings.ToLower(t.Title), strings.ToLower(term)) {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.After != nil && !TicketBefore(t, f.After) {
		return false
	}
	return true
}

// TicketBefore reports whether t sorts after the cursor in list order.
func TicketBefore(t *domain.Ticket, c *TicketCursor) bool {
	if t.UpdatedAt.Equal(c.UpdatedAt) {
		return t.ID < c.ID
	}
	return t.UpdatedAt.Before(c.UpdatedAt)
}

// SortTickets orders tickets by updated_at DESC, id DESC.
func SortTickets(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID > b.ID
	})
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
