package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.do(func(d *data) error {
		ticket.ID = d.id()
		ticket.Version = 1
		ticket.UpdatedAt = ticket.CreatedAt
		d.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r ticketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.do(func(d *data) error {
		t, ok := d.tickets[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the transaction already holds the store lock.
func (r ticketRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r ticketRepo) UpdateIfUnchanged(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error {
	return r.s.do(func(d *data) error {
		stored, ok := d.tickets[ticket.ID]
		if !ok || stored.Status != expectedStatus || stored.Version != expectedVersion {
			return apperrors.NewConcurrentModification(ticket.ID)
		}
		ticket.Version = expectedVersion + 1
		d.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.s.do(func(d *data) error {
		statuses := make(map[domain.TicketStatus]bool, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses[st] = true
		}
		for _, t := range d.tickets {
			if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
				continue
			}
			if filter.TechnicianID != nil && !t.AssignedTo(*filter.TechnicianID) {
				continue
			}
			if len(statuses) > 0 && !statuses[t.Status] {
				continue
			}
			reopened := openReopen(d, t.ID) != nil
			if filter.OnlyReopened && !reopened {
				continue
			}
			if !filter.OnlyReopened && !filter.IncludeReopened && reopened {
				continue
			}
			out = append(out, *t.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r ticketRepo) ActiveLoads(ctx context.Context) (map[int64]int, error) {
	loads := make(map[int64]int)
	err := r.s.do(func(d *data) error {
		for _, t := range d.tickets {
			if t.TechnicianID != nil && t.Active() {
				loads[*t.TechnicianID]++
			}
		}
		return nil
	})
	return loads, err
}

func (r ticketRepo) AutoCloseFinished(ctx context.Context, cutoff, now time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []int64
	err := r.s.do(func(d *data) error {
		candidates := make([]*domain.Ticket, 0)
		for _, t := range d.tickets {
			if lifecycle.DueForAutoClose(t, evaluationFor(d, t.ID, t.ReopenCycle) != nil, openReopen(d, t.ID), cutoff) {
				candidates = append(candidates, t)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			if !candidates[i].FinishedAt.Equal(*candidates[j].FinishedAt) {
				return candidates[i].FinishedAt.Before(*candidates[j].FinishedAt)
			}
			return candidates[i].ID < candidates[j].ID
		})
		for _, t := range candidates {
			if len(ids) == limit {
				break
			}
			if err := lifecycle.AutoClose(t, now); err != nil {
				continue
			}
			t.Version++
			t.UpdatedAt = now
			ids = append(ids, t.ID)
		}
		return nil
	})
	return ids, err
}

type serviceRepo struct{ s *Store }

func (r serviceRepo) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	var out *domain.Service
	err := r.s.do(func(d *data) error {
		svc, ok := d.services[id]
		if !ok {
			return pgx.ErrNoRows
		}
		cp := *svc
		out = &cp
		return nil
	})
	return out, err
}

type technicianRepo struct{ s *Store }

func (r technicianRepo) GetByID(ctx context.Context, id int64) (*domain.Technician, error) {
	var out *domain.Technician
	err := r.s.do(func(d *data) error {
		tech, ok := d.technicians[id]
		if !ok {
			return pgx.ErrNoRows
		}
		cp := *tech
		out = &cp
		return nil
	})
	return out, err
}

func (r technicianRepo) List(ctx context.Context) ([]domain.Technician, error) {
	var out []domain.Technician
	err := r.s.do(func(d *data) error {
		for _, tech := range d.technicians {
			out = append(out, *tech)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r technicianRepo) ListSpecialties(ctx context.Context, area string) ([]domain.Specialty, error) {
	var out []domain.Specialty
	err := r.s.do(func(d *data) error {
		for _, sp := range d.specialties {
			if strings.EqualFold(sp.Area, area) {
				out = append(out, sp)
			}
		}
		return nil
	})
	return out, err
}

func (r technicianRepo) ListRules(ctx context.Context, area string) ([]domain.AssignmentRule, error) {
	var out []domain.AssignmentRule
	err := r.s.do(func(d *data) error {
		for _, rule := range d.rules {
			if rule.ServiceID != nil || strings.EqualFold(rule.Area, area) {
				out = append(out, rule)
			}
		}
		return nil
	})
	return out, err
}

type escalationRepo struct{ s *Store }

func (r escalationRepo) Create(ctx context.Context, escalation *domain.Escalation) error {
	return r.s.do(func(d *data) error {
		escalation.ID = d.id()
		d.escalations = append(d.escalations, *escalation)
		return nil
	})
}

func (r escalationRepo) Latest(ctx context.Context, ticketID int64) (*domain.Escalation, error) {
	var out *domain.Escalation
	err := r.s.do(func(d *data) error {
		for i := len(d.escalations) - 1; i >= 0; i-- {
			if d.escalations[i].TicketID == ticketID {
				cp := d.escalations[i]
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r escalationRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Escalation, error) {
	var out []domain.Escalation
	err := r.s.do(func(d *data) error {
		for _, e := range d.escalations {
			if e.TicketID == ticketID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

type reopenRepo struct{ s *Store }

func (r reopenRepo) Create(ctx context.Context, reopen *domain.Reopen) error {
	return r.s.do(func(d *data) error {
		for _, existing := range d.reopens {
			if existing.TicketID != reopen.TicketID {
				continue
			}
			if existing.Cycle == reopen.Cycle || !existing.Resolved() {
				return apperrors.NewIllegalTransition("ticket already has an unresolved reopen cycle", map[string]any{
					"ticket_id": reopen.TicketID,
				})
			}
		}
		reopen.ID = d.id()
		d.reopens = append(d.reopens, cloneReopen(*reopen))
		return nil
	})
}

func (r reopenRepo) Open(ctx context.Context, ticketID int64) (*domain.Reopen, error) {
	var out *domain.Reopen
	err := r.s.do(func(d *data) error {
		if open := openReopen(d, ticketID); open != nil {
			cp := cloneReopen(*open)
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r reopenRepo) Update(ctx context.Context, reopen *domain.Reopen) error {
	return r.s.do(func(d *data) error {
		for i := range d.reopens {
			if d.reopens[i].ID == reopen.ID {
				d.reopens[i] = cloneReopen(*reopen)
				return nil
			}
		}
		return pgx.ErrNoRows
	})
}

func (r reopenRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Reopen, error) {
	var out []domain.Reopen
	err := r.s.do(func(d *data) error {
		for _, reopen := range d.reopens {
			if reopen.TicketID == ticketID {
				out = append(out, cloneReopen(reopen))
			}
		}
		return nil
	})
	return out, err
}

func openReopen(d *data, ticketID int64) *domain.Reopen {
	for i := range d.reopens {
		if d.reopens[i].TicketID == ticketID && !d.reopens[i].Resolved() {
			return &d.reopens[i]
		}
	}
	return nil
}

type evaluationRepo struct{ s *Store }

func (r evaluationRepo) Create(ctx context.Context, evaluation *domain.Evaluation) error {
	return r.s.do(func(d *data) error {
		if evaluationFor(d, evaluation.TicketID, evaluation.Cycle) != nil {
			return apperrors.NewAlreadyEvaluated(evaluation.TicketID, evaluation.Cycle)
		}
		evaluation.ID = d.id()
		d.evaluations = append(d.evaluations, *evaluation)
		return nil
	})
}

func (r evaluationRepo) ForCycle(ctx context.Context, ticketID int64, cycle int) (*domain.Evaluation, error) {
	var out *domain.Evaluation
	err := r.s.do(func(d *data) error {
		if e := evaluationFor(d, ticketID, cycle); e != nil {
			cp := *e
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r evaluationRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Evaluation, error) {
	var out []domain.Evaluation
	err := r.s.do(func(d *data) error {
		for _, e := range d.evaluations {
			if e.TicketID == ticketID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func evaluationFor(d *data, ticketID int64, cycle int) *domain.Evaluation {
	for i := range d.evaluations {
		if d.evaluations[i].TicketID == ticketID && d.evaluations[i].Cycle == cycle {
			return &d.evaluations[i]
		}
	}
	return nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(ctx context.Context, history *domain.TicketHistory) error {
	return r.s.do(func(d *data) error {
		history.ID = d.id()
		d.history = append(d.history, *history)
		return nil
	})
}

func (r historyRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	err := r.s.do(func(d *data) error {
		for _, h := range d.history {
			if h.TicketID == ticketID {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, err
}
