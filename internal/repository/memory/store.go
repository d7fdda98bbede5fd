// Package memory implements repository.Store in process memory. It backs the
// engine tests and the serve command when no Postgres DSN is configured.
package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type data struct {
	nextID      int64
	tickets     map[int64]*domain.Ticket
	services    map[int64]*domain.Service
	technicians map[int64]*domain.Technician
	specialties []domain.Specialty
	rules       []domain.AssignmentRule
	escalations []domain.Escalation
	reopens     []domain.Reopen
	evaluations []domain.Evaluation
	history     []domain.TicketHistory
}

func newData() *data {
	return &data{
		tickets:     make(map[int64]*domain.Ticket),
		services:    make(map[int64]*domain.Service),
		technicians: make(map[int64]*domain.Technician),
	}
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

// clone copies everything a transaction may mutate.
func (d *data) clone() *data {
	cp := &data{
		nextID:      d.nextID,
		tickets:     make(map[int64]*domain.Ticket, len(d.tickets)),
		services:    d.services,
		technicians: d.technicians,
		specialties: d.specialties,
		rules:       d.rules,
		escalations: append([]domain.Escalation(nil), d.escalations...),
		reopens:     make([]domain.Reopen, len(d.reopens)),
		evaluations: append([]domain.Evaluation(nil), d.evaluations...),
		history:     append([]domain.TicketHistory(nil), d.history...),
	}
	for id, t := range d.tickets {
		cp.tickets[id] = t.Clone()
	}
	for i, r := range d.reopens {
		cp.reopens[i] = cloneReopen(r)
	}
	return cp
}

type shared struct {
	mu sync.Mutex
	d  *data
}

// Store is an in-memory repository.Store. Transactions hold a store-wide lock
// and work on a copy that replaces the live data only on success.
type Store struct {
	shared *shared
	tx     *data
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{shared: &shared{d: newData()}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) do(fn func(d *data) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return fn(s.shared.d)
}

// WithTx runs fn under the store lock against a copy of the data.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	work := s.shared.d.clone()
	if err := fn(&Store{shared: s.shared, tx: work}); err != nil {
		return err
	}
	s.shared.d = work
	return nil
}

func (s *Store) Tickets() repository.TicketRepository         { return ticketRepo{s} }
func (s *Store) Services() repository.ServiceRepository       { return serviceRepo{s} }
func (s *Store) Technicians() repository.TechnicianRepository { return technicianRepo{s} }
func (s *Store) Escalations() repository.EscalationRepository { return escalationRepo{s} }
func (s *Store) Reopens() repository.ReopenRepository         { return reopenRepo{s} }
func (s *Store) Evaluations() repository.EvaluationRepository { return evaluationRepo{s} }
func (s *Store) History() repository.TicketHistoryRepository  { return historyRepo{s} }

// AddService registers a catalog entry and returns its id.
func (s *Store) AddService(svc domain.Service) int64 {
	var id int64
	_ = s.do(func(d *data) error {
		if svc.ID == 0 {
			svc.ID = d.id()
		}
		d.services[svc.ID] = &svc
		id = svc.ID
		return nil
	})
	return id
}

// AddTechnician registers a technician and returns its id.
func (s *Store) AddTechnician(tech domain.Technician) int64 {
	var id int64
	_ = s.do(func(d *data) error {
		if tech.ID == 0 {
			tech.ID = d.id()
		}
		d.technicians[tech.ID] = &tech
		id = tech.ID
		return nil
	})
	return id
}

// AddSpecialty registers a technician specialty.
func (s *Store) AddSpecialty(sp domain.Specialty) {
	_ = s.do(func(d *data) error {
		if sp.ID == 0 {
			sp.ID = d.id()
		}
		d.specialties = append(d.specialties, sp)
		return nil
	})
}

// AddRule registers an assignment rule.
func (s *Store) AddRule(rule domain.AssignmentRule) {
	_ = s.do(func(d *data) error {
		if rule.ID == 0 {
			rule.ID = d.id()
		}
		d.rules = append(d.rules, rule)
		return nil
	})
}

func cloneReopen(r domain.Reopen) domain.Reopen {
	cp := r
	if r.RespondedAt != nil {
		v := *r.RespondedAt
		cp.RespondedAt = &v
	}
	if r.ResolvedAt != nil {
		v := *r.ResolvedAt
		cp.ResolvedAt = &v
	}
	return cp
}
