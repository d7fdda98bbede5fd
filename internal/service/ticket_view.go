package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// TicketView is the projection every engine operation returns.
type TicketView struct {
	Ticket             domain.Ticket
	CurrentEscalation  *domain.Escalation
	OpenReopen         *domain.Reopen
	// Evaluation is the one recorded for the ticket's current cycle.
	Evaluation         *domain.Evaluation
	Reopened           bool
	AwaitingEvaluation bool
	// RemainingSeconds is signed; negative means overdue. Nil when the SLA is not computable.
	RemainingSeconds   *int64
	// EnTiempo uses the enforcement bound; WithinTarget uses the target bound.
	EnTiempo           *bool
	WithinTarget       *bool
}

// RemainingTime is the live countdown for a ticket.
type RemainingTime struct {
	TicketID         int64
	DueAt            *time.Time
	RemainingSeconds *int64
	Overdue          bool
}

func (s *TicketService) buildView(ctx context.Context, store repository.Store, ticket *domain.Ticket) (*TicketView, error) {
	escalation, err := store.Escalations().Latest(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	reopen, err := store.Reopens().Open(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	evaluation, err := store.Evaluations().ForCycle(ctx, ticket.ID, ticket.ReopenCycle)
	if err != nil {
		return nil, err
	}
	return project(ticket, escalation, reopen, evaluation, s.now()), nil
}

func project(ticket *domain.Ticket, escalation *domain.Escalation, reopen *domain.Reopen, evaluation *domain.Evaluation, now time.Time) *TicketView {
	view := &TicketView{
		Ticket:            *ticket.Clone(),
		CurrentEscalation: escalation,
		OpenReopen:        reopen,
		Evaluation:        evaluation,
		Reopened:          reopen != nil && !reopen.Resolved(),
	}
	view.AwaitingEvaluation = evaluation == nil &&
		(ticket.Status == domain.TicketStatusFinished || (ticket.Status == domain.TicketStatusClosed && ticket.AutoClosed))
	if remaining, ok := sla.Remaining(ticket.CreatedAt, ticket.SLA, now); ok {
		view.RemainingSeconds = &remaining
	}
	completedAt := ticket.FinishedAt
	if completedAt == nil {
		completedAt = ticket.ClosedAt
	}
	view.EnTiempo = sla.OnTime(ticket.CreatedAt, completedAt, ticket.SLA)
	view.WithinTarget = sla.OnTime(ticket.CreatedAt, completedAt, ticket.TargetSLA)
	return view
}

func remainingTime(ticket *domain.Ticket, now time.Time) *RemainingTime {
	out := &RemainingTime{TicketID: ticket.ID}
	if due, ok := sla.Deadline(ticket.CreatedAt, ticket.SLA); ok {
		out.DueAt = &due
	}
	if remaining, ok := sla.Remaining(ticket.CreatedAt, ticket.SLA, now); ok {
		out.RemainingSeconds = &remaining
		out.Overdue = remaining < 0
	}
	return out
}
