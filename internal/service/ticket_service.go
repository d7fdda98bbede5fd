package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      repository.Store
	assignment *AssignmentService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	engine     config.EngineConfig
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Assignment *AssignmentService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Engine     config.EngineConfig
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	ServiceID   int64
	Description string
	// Priority overrides the service default when set.
	Priority string
}

// StatusChangeInput describes a requested transition. Reason and Estimate
// feed Pendiente; TechnicianID and Reason feed Escalado.
type StatusChangeInput struct {
	Status       domain.TicketStatus
	Reason       string
	Estimate     string
	TechnicianID *int64
	// ExpectedVersion, when set, must match the stored ticket version.
	ExpectedVersion *int64
}

// EscalateInput describes an escalation.
type EscalateInput struct {
	TechnicianID    *int64
	Reason          string
	ExpectedVersion *int64
}

// EvaluateInput describes a requester evaluation.
type EvaluateInput struct {
	Rating  int
	Comment string
}

// ListTicketsInput describes listing filters.
type ListTicketsInput struct {
	Statuses        []domain.TicketStatus
	TechnicianID    *int64
	RequesterID     *int64
	OnlyReopened    bool
	IncludeReopened bool
	Limit           int
	Offset          int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		store:      deps.Store,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		engine:     deps.Engine,
		now:        clock,
	}
}

// CreateTicket opens a ticket against a service, snapshots its SLA and
// assigns it in the same write.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Principal, input CreateTicketInput) (*TicketView, error) {
	if err := lifecycle.Authorize(actor.Role, lifecycle.ActionCreate); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description required", map[string]any{"missing": []string{"description"}})
	}
	svc, err := s.store.Services().GetByID(ctx, input.ServiceID)
	if err != nil {
		return nil, notFoundOr(err, "service", input.ServiceID)
	}
	if !svc.Active {
		return nil, apperrors.NewValidationError("service inactive", map[string]any{"service_id": svc.ID})
	}
	priority, err := resolvePriority(input.Priority, svc.DefaultPriority)
	if err != nil {
		return nil, err
	}

	now := s.now()
	enforce, target := sla.Bounds(svc.MaximumTime, svc.TargetTime)
	ticket := &domain.Ticket{
		RequesterID: actor.UserID,
		ServiceID:   svc.ID,
		Category:    svc.Category,
		Subcategory: svc.Subcategory,
		Description: description,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedAt:   now,
		SLA:         enforce,
		TargetSLA:   target,
	}
	if due, ok := sla.Deadline(now, enforce); ok {
		ticket.DueAt = &due
	}

	selection, err := s.assignment.Select(ctx, svc, priority, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if selection.Assigned {
		technicianID := selection.TechnicianID
		ticket.TechnicianID = &technicianID
		ticket.TechnicianName = selection.TechnicianName
		ticket.AssignedAt = &now
		if actor.Role == domain.RoleTechnician && actor.UserID == technicianID {
			ticket.Status = domain.TicketStatusInProgress
			ticket.AttentionStartedAt = &now
		}
	}

	var view *TicketView
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		entries := []domain.TicketHistory{historyEntry(actor, ticket.ID, domain.ChangeTypeCreated, now, nil, map[string]any{
			"status":     ticket.Status,
			"priority":   ticket.Priority,
			"service_id": ticket.ServiceID,
			"sla":        ticket.SLA.String(),
		})}
		if selection.Assigned {
			entries = append(entries, historyEntry(actor, ticket.ID, domain.ChangeTypeAssignee, now,
				map[string]any{"technician_id": nil},
				map[string]any{"technician_id": selection.TechnicianID, "source": selection.Source}))
		}
		for i := range entries {
			if err := tx.History().Create(ctx, &entries[i]); err != nil {
				return err
			}
		}
		var err error
		view, err = s.buildView(ctx, tx, ticket)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition(string(ticket.Status))
	s.publishEvent(ctx, actor, events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{
		ServiceID:   ticket.ServiceID,
		Category:    ticket.Category,
		Subcategory: ticket.Subcategory,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		DueAt:       ticket.DueAt,
	})
	assigned := events.TicketAssignedPayload{Source: string(selection.Source), Reason: selection.Reason}
	if selection.Assigned {
		assigned.TechnicianID = ticket.TechnicianID
		assigned.TechnicianName = ticket.TechnicianName
		s.assignment.LoadsChanged(ctx)
	}
	s.publishEvent(ctx, actor, events.EventTicketAssigned, ticket.ID, assigned)
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("status", string(ticket.Status)),
		zap.String("assignment_source", string(selection.Source)))
	return view, nil
}

// ViewTicket returns the projection. The first time a technician or
// administrator opens an untouched ticket it moves to En Progreso.
func (s *TicketService) ViewTicket(ctx context.Context, actor domain.Principal, ticketID int64) (*TicketView, error) {
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if probe := ticket.Clone(); lifecycle.StartAttention(actor.Role, probe, s.now()) {
		return s.mutate(ctx, actor, ticketID, nil, func(ctx context.Context, tx repository.Store, m *mutation) error {
			lifecycle.StartAttention(actor.Role, m.ticket, m.now)
			return nil
		})
	}
	view, err := s.buildView(ctx, s.store, ticket)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return view, nil
}

// ChangeStatus validates and applies a status transition.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Principal, ticketID int64, input StatusChangeInput) (*TicketView, error) {
	action, ok := lifecycle.ActionForStatus(input.Status)
	if !ok {
		return nil, apperrors.NewIllegalTransition("unsupported target status", map[string]any{"to": input.Status})
	}
	if err := lifecycle.Authorize(actor.Role, action); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, ticketID, input.ExpectedVersion, func(ctx context.Context, tx repository.Store, m *mutation) error {
		switch input.Status {
		case domain.TicketStatusPending:
			return lifecycle.SetPending(actor.Role, m.state, input.Reason, input.Estimate, m.now)
		case domain.TicketStatusInProgress:
			return lifecycle.Resume(actor.Role, m.state, m.now)
		case domain.TicketStatusEscalated:
			return s.applyEscalation(ctx, tx, m, input.TechnicianID, input.Reason)
		case domain.TicketStatusFinished:
			if err := lifecycle.Finish(actor.Role, m.state, m.now); err != nil {
				return err
			}
			m.emit(events.EventTicketEvaluationDue, events.TicketEvaluationDuePayload{
				RequesterID: m.ticket.RequesterID,
				Cycle:       m.ticket.ReopenCycle,
				FinishedAt:  m.now,
				AutoCloseAt: m.now.Add(s.engine.AutoCloseGrace()),
			})
			return nil
		default:
			return lifecycle.ForceClose(actor.Role, m.ticket, m.now)
		}
	})
}

// Escalate reassigns the ticket to a user-chosen technician.
func (s *TicketService) Escalate(ctx context.Context, actor domain.Principal, ticketID int64, input EscalateInput) (*TicketView, error) {
	return s.ChangeStatus(ctx, actor, ticketID, StatusChangeInput{
		Status:          domain.TicketStatusEscalated,
		Reason:          input.Reason,
		TechnicianID:    input.TechnicianID,
		ExpectedVersion: input.ExpectedVersion,
	})
}

// ForceClose closes a ticket regardless of evaluation (administrators only).
func (s *TicketService) ForceClose(ctx context.Context, actor domain.Principal, ticketID int64) (*TicketView, error) {
	return s.ChangeStatus(ctx, actor, ticketID, StatusChangeInput{Status: domain.TicketStatusClosed})
}

func (s *TicketService) applyEscalation(ctx context.Context, tx repository.Store, m *mutation, technicianID *int64, reason string) error {
	var to *domain.Technician
	if technicianID != nil {
		tech, err := tx.Technicians().GetByID(ctx, *technicianID)
		if err != nil {
			return notFoundOr(err, "technician", *technicianID)
		}
		to = tech
	}
	record, err := lifecycle.Escalate(m.actor.Role, m.state, to, reason, m.actor.UserID, m.now)
	if err != nil {
		return err
	}
	if err := tx.Escalations().Create(ctx, record); err != nil {
		return err
	}
	m.assignSource = "escalation"
	m.record(domain.ChangeTypeEscalation,
		map[string]any{"technician_id": record.FromTechnicianID},
		map[string]any{"technician_id": record.ToTechnicianID, "reason": record.Reason, "escalation_id": record.ID})
	m.emit(events.EventTicketEscalated, events.TicketEscalatedPayload{
		EscalationID:     record.ID,
		FromTechnicianID: record.FromTechnicianID,
		ToTechnicianID:   record.ToTechnicianID,
		Reason:           record.Reason,
	})
	return nil
}

// Reopen starts a reopen cycle on a finished or closed ticket.
func (s *TicketService) Reopen(ctx context.Context, actor domain.Principal, ticketID int64, observation string) (*TicketView, error) {
	if err := lifecycle.Authorize(actor.Role, lifecycle.ActionReopen); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, ticketID, nil, func(ctx context.Context, tx repository.Store, m *mutation) error {
		reopen, err := lifecycle.Reopen(actor.Role, m.state, observation, actor.UserID, m.now)
		if err != nil {
			return err
		}
		if err := tx.Reopens().Create(ctx, reopen); err != nil {
			return err
		}
		m.record(domain.ChangeTypeReopen,
			map[string]any{"cycle": reopen.Cycle - 1},
			map[string]any{"cycle": reopen.Cycle, "observation": reopen.Observation})
		m.emit(events.EventTicketReopened, events.TicketReopenedPayload{
			Cycle:       reopen.Cycle,
			Observation: reopen.Observation,
		})
		return nil
	})
}

// RespondReopen records the technician's cause for the open reopen cycle.
func (s *TicketService) RespondReopen(ctx context.Context, actor domain.Principal, ticketID int64, cause string) (*TicketView, error) {
	if err := lifecycle.Authorize(actor.Role, lifecycle.ActionRespondReopen); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, ticketID, nil, func(ctx context.Context, tx repository.Store, m *mutation) error {
		if err := lifecycle.RespondReopen(actor.Role, m.state, cause, m.now); err != nil {
			return err
		}
		reopen := m.state.OpenReopen
		if err := tx.Reopens().Update(ctx, reopen); err != nil {
			return err
		}
		m.record(domain.ChangeTypeReopenCause, nil, map[string]any{"cycle": reopen.Cycle, "cause": reopen.Cause})
		return nil
	})
}

// Evaluate records the requester's rating for the current cycle.
func (s *TicketService) Evaluate(ctx context.Context, actor domain.Principal, ticketID int64, input EvaluateInput) (*TicketView, error) {
	if err := lifecycle.Authorize(actor.Role, lifecycle.ActionEvaluate); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, ticketID, nil, func(ctx context.Context, tx repository.Store, m *mutation) error {
		existing, err := tx.Evaluations().ForCycle(ctx, m.ticket.ID, m.ticket.ReopenCycle)
		if err != nil {
			return err
		}
		evaluation, err := lifecycle.Evaluate(actor.Role, m.state, existing, input.Rating, input.Comment, actor.UserID, m.now)
		if err != nil {
			return err
		}
		if err := tx.Evaluations().Create(ctx, evaluation); err != nil {
			return err
		}
		if reopen := m.state.OpenReopen; reopen != nil && reopen.Resolved() {
			if err := tx.Reopens().Update(ctx, reopen); err != nil {
				return err
			}
		}
		m.record(domain.ChangeTypeEvaluation, nil, map[string]any{
			"cycle":  evaluation.Cycle,
			"rating": evaluation.Rating,
		})
		m.emit(events.EventTicketEvaluated, events.TicketEvaluatedPayload{
			Cycle:  evaluation.Cycle,
			Rating: evaluation.Rating,
		})
		return nil
	})
}

// ComputeRemainingTime returns the signed countdown against the enforcement bound.
func (s *TicketService) ComputeRemainingTime(ctx context.Context, actor domain.Principal, ticketID int64) (*RemainingTime, error) {
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return remainingTime(ticket, s.now()), nil
}

// ListTickets returns projections. Employees only see their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Principal, input ListTicketsInput) ([]TicketView, error) {
	filter := repository.TicketFilter{
		RequesterID:     input.RequesterID,
		TechnicianID:    input.TechnicianID,
		Statuses:        input.Statuses,
		OnlyReopened:    input.OnlyReopened,
		IncludeReopened: input.IncludeReopened,
		Limit:           input.Limit,
		Offset:          input.Offset,
	}
	if !lifecycle.Can(actor.Role, lifecycle.ActionListAll) {
		requester := actor.UserID
		filter.RequesterID = &requester
	}
	tickets, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		view, err := s.buildView(ctx, s.store, &tickets[i])
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		views = append(views, *view)
	}
	return views, nil
}

// History returns the audit trail of a ticket.
func (s *TicketService) History(ctx context.Context, actor domain.Principal, ticketID int64) ([]domain.TicketHistory, error) {
	if _, err := s.getAccessible(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.store.History().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Escalations returns the full escalation chain of a ticket.
func (s *TicketService) Escalations(ctx context.Context, actor domain.Principal, ticketID int64) ([]domain.Escalation, error) {
	if _, err := s.getAccessible(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	chain, err := s.store.Escalations().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return chain, nil
}

func (s *TicketService) getAccessible(ctx context.Context, actor domain.Principal, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if err := checkAccess(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func checkAccess(actor domain.Principal, ticket *domain.Ticket) error {
	if lifecycle.Can(actor.Role, lifecycle.ActionListAll) || actor.Role == domain.RoleSystem {
		return nil
	}
	if ticket.RequesterID != actor.UserID {
		return apperrors.NewForbidden("ticket belongs to another requester")
	}
	return nil
}

func resolvePriority(raw string, fallback domain.TicketPriority) (domain.TicketPriority, error) {
	if strings.TrimSpace(raw) == "" {
		if fallback == "" {
			return domain.TicketPriorityMedium, nil
		}
		return fallback, nil
	}
	priority, ok := domain.ParsePriority(raw)
	if !ok {
		return "", apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
	}
	return priority, nil
}

func notFoundOr(err error, resource string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

func historyEntry(actor domain.Principal, ticketID int64, changeType domain.TicketChangeType, at time.Time, oldValue, newValue map[string]any) domain.TicketHistory {
	entry := domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByRole: actor.Role,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
		CreatedAt:     at,
	}
	if actor.UserID != 0 {
		id := actor.UserID
		entry.ChangedByID = &id
	}
	return entry
}

func actorOf(p domain.Principal) events.Actor {
	actor := events.Actor{Role: p.Role}
	if p.UserID != 0 {
		id := p.UserID
		actor.UserID = &id
	}
	return actor
}

func (s *TicketService) publishEvent(ctx context.Context, actor domain.Principal, eventType events.EventType, ticketID int64, payload any) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actorOf(actor),
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// publish delivers after commit. Failures are logged, never returned.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
