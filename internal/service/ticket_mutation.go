package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// mutation carries one locked ticket through a transition and collects
// what must be recorded with it.
type mutation struct {
	actor  domain.Principal
	ticket *domain.Ticket
	state  lifecycle.State
	now    time.Time

	history []domain.TicketHistory
	events  []events.Event
	// assignSource labels the assigned event emitted when the holder changes.
	assignSource string
}

func (m *mutation) record(changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	m.history = append(m.history, historyEntry(m.actor, m.ticket.ID, changeType, m.now, oldValue, newValue))
}

func (m *mutation) emit(eventType events.EventType, payload any) {
	m.events = append(m.events, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  m.ticket.ID,
		Actor:     actorOf(m.actor),
		Timestamp: m.now,
		Payload:   payload,
	})
}

type applyFunc func(ctx context.Context, tx repository.Store, m *mutation) error

// mutate locks the ticket, applies fn, and writes the ticket back with a
// conditional update on the status and version it was read with. History
// rows and side records share the transaction. Events, metrics and cache
// invalidation run only after commit.
func (s *TicketService) mutate(ctx context.Context, actor domain.Principal, ticketID int64, expectedVersion *int64, fn applyFunc) (*TicketView, error) {
	var (
		view            *TicketView
		m               *mutation
		before          *domain.Ticket
		assigneeChanged bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", ticketID)
		}
		if err := checkAccess(actor, ticket); err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != ticket.Version {
			return apperrors.NewConcurrentModification(ticketID)
		}
		reopen, err := tx.Reopens().Open(ctx, ticketID)
		if err != nil {
			return err
		}

		before = ticket.Clone()
		m = &mutation{
			actor:  actor,
			ticket: ticket,
			state:  lifecycle.State{Ticket: ticket, OpenReopen: reopen},
			now:    s.now(),
		}
		if err := fn(ctx, tx, m); err != nil {
			return err
		}

		ticket.UpdatedAt = m.now
		if err := tx.Tickets().UpdateIfUnchanged(ctx, ticket, before.Status, before.Version); err != nil {
			return err
		}

		var derived []domain.TicketHistory
		if statusChanged(before, ticket) {
			newValue := map[string]any{"status": ticket.Status}
			if ticket.Status == domain.TicketStatusPending {
				newValue["pending_reason"] = ticket.PendingReason
				newValue["pending_estimate"] = ticket.PendingEstimate
			}
			derived = append(derived, historyEntry(actor, ticket.ID, domain.ChangeTypeStatus, m.now,
				map[string]any{"status": before.Status}, newValue))
		}
		if holder(before) != holder(ticket) {
			assigneeChanged = true
			derived = append(derived, historyEntry(actor, ticket.ID, domain.ChangeTypeAssignee, m.now,
				map[string]any{"technician_id": before.TechnicianID},
				map[string]any{"technician_id": ticket.TechnicianID, "source": m.assignSource}))
		}
		entries := append(derived, m.history...)
		for i := range entries {
			if err := tx.History().Create(ctx, &entries[i]); err != nil {
				return err
			}
		}

		view, err = s.buildView(ctx, tx, ticket)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	after := view.Ticket
	if before.Status != after.Status {
		s.metrics.RecordTransition(string(after.Status))
		s.publishEvent(ctx, actor, events.EventTicketStatusChanged, after.ID, events.TicketStatusChangedPayload{
			OldStatus: before.Status,
			NewStatus: after.Status,
		})
	}
	if assigneeChanged {
		s.assignment.LoadsChanged(ctx)
		s.publishEvent(ctx, actor, events.EventTicketAssigned, after.ID, events.TicketAssignedPayload{
			TechnicianID:   after.TechnicianID,
			TechnicianName: after.TechnicianName,
			Source:         m.assignSource,
		})
	} else if before.Status.Operational() != after.Status.Operational() {
		// finishing, closing or re-entering work changes the holder's load
		s.assignment.LoadsChanged(ctx)
	}
	for _, event := range m.events {
		publish(ctx, s.dispatcher, s.logger, event)
	}
	return view, nil
}

func statusChanged(before, after *domain.Ticket) bool {
	return before.Status != after.Status ||
		before.PendingReason != after.PendingReason ||
		before.PendingEstimate != after.PendingEstimate
}

func holder(t *domain.Ticket) int64 {
	if t.TechnicianID == nil {
		return 0
	}
	return *t.TechnicianID
}
