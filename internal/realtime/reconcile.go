package realtime

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ApplyLocal returns a copy of local with mutate applied to ticketID. The
// mutation is speculative; UpdatedAt is left alone so the server copy wins later.
func ApplyLocal(local []domain.Ticket, ticketID string, mutate func(*domain.Ticket)) []domain.Ticket {
	out := make([]domain.Ticket, len(local))
	copy(out, local)
	for i := range out {
		if out[i].ID == ticketID {
			mutate(&out[i])
		}
	}
	return out
}

// Reconcile folds a server event into a locally held ticket list ordered by
// updated_at DESC, id DESC. Deletes remove the ticket; other events upsert the
// snapshot unless the local copy is strictly newer. local is not modified.
func Reconcile(local []domain.Ticket, msg TicketMessage) []domain.Ticket {
	return ReconcileView(local, msg, nil)
}

// ReconcileView is Reconcile for a filtered view: tickets that stop matching
// keep are dropped, and new ones are only inserted when they match.
func ReconcileView(local []domain.Ticket, msg TicketMessage, keep func(*domain.Ticket) bool) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(local)+1)
	idx := -1
	for i, t := range local {
		if t.ID == msg.TicketID {
			idx = i
		}
	}

	if msg.Type == events.EventTicketDeleted {
		for i, t := range local {
			if i != idx {
				out = append(out, t)
			}
		}
		return out
	}
	if msg.Ticket == nil {
		return append(out, local...)
	}

	incoming := msg.Ticket.Ticket()
	if idx >= 0 {
		current := local[idx]
		if current.UpdatedAt.After(incoming.UpdatedAt) {
			return append(out, local...)
		}
		// snapshots omit the description
		incoming.Description = current.Description
	}

	for i, t := range local {
		if i != idx {
			out = append(out, t)
		}
	}
	if keep == nil || keep(&incoming) {
		out = append(out, incoming)
	}
	repository.SortTickets(out)
	return out
}
