// Package lifecycle validates and applies ticket status transitions.
// Functions mutate the ticket in memory only; callers persist the result atomically.
package lifecycle

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const (
	MinRating = 1
	MaxRating = 5
)

// State is a ticket together with its unresolved reopen cycle, if any.
type State struct {
	Ticket     *domain.Ticket
	OpenReopen *domain.Reopen
}

// Reopened reports whether the ticket carries an unresolved reopen record.
func (s State) Reopened() bool {
	return s.OpenReopen != nil && !s.OpenReopen.Resolved()
}

func illegal(t *domain.Ticket, target domain.TicketStatus, message string) error {
	return apperrors.NewIllegalTransition(message, map[string]any{
		"ticket_id": t.ID,
		"from":      t.Status,
		"to":        target,
	})
}

// workable checks that the ticket can be moved into an operational status.
// Finalizado and Cerrado tickets are workable again only while reopened.
func workable(s State, target domain.TicketStatus) error {
	t := s.Ticket
	if t.Status.Operational() {
		return nil
	}
	if s.Reopened() && (t.Status == domain.TicketStatusFinished || t.Status == domain.TicketStatusClosed) {
		return nil
	}
	return illegal(t, target, "ticket is not in an operational status")
}

// reenter clears terminal timestamps when a reopened ticket goes back to work.
// Attention seconds stay frozen and AutoClosed is kept: the ticket still
// counts as closed by the system.
func reenter(t *domain.Ticket) {
	if t.Status.Operational() {
		return
	}
	t.FinishedAt = nil
	t.ClosedAt = nil
}

func stamp(at time.Time) *time.Time {
	return &at
}

// StartAttention moves an untouched ticket to En Progreso the first time a
// technician or administrator opens it. Reports whether the ticket changed.
func StartAttention(role domain.Role, t *domain.Ticket, now time.Time) bool {
	if !Can(role, ActionStartAttention) {
		return false
	}
	switch t.Status {
	case domain.TicketStatusOpen:
	case domain.TicketStatusPending:
		if strings.TrimSpace(t.PendingReason) != "" {
			return false
		}
	default:
		return false
	}
	t.Status = domain.TicketStatusInProgress
	if t.AttentionStartedAt == nil {
		t.AttentionStartedAt = stamp(now)
	}
	t.ClearPending()
	return true
}

// SetPending parks the ticket with a reason and an estimate, both stored verbatim.
func SetPending(role domain.Role, s State, reason, estimate string, now time.Time) error {
	if err := Authorize(role, ActionSetPending); err != nil {
		return err
	}
	t := s.Ticket
	if err := workable(s, domain.TicketStatusPending); err != nil {
		return err
	}
	missing := []string{}
	if strings.TrimSpace(reason) == "" {
		missing = append(missing, "reason")
	}
	if strings.TrimSpace(estimate) == "" {
		missing = append(missing, "estimate")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("pending requires a reason and an estimated time", map[string]any{
			"missing": missing,
		})
	}
	reenter(t)
	t.Status = domain.TicketStatusPending
	t.PendingReason = reason
	t.PendingEstimate = estimate
	t.PendingSetAt = stamp(now)
	return nil
}

// Resume moves the ticket to En Progreso, stamping attention start once.
func Resume(role domain.Role, s State, now time.Time) error {
	if err := Authorize(role, ActionResume); err != nil {
		return err
	}
	t := s.Ticket
	if t.Status == domain.TicketStatusInProgress {
		return illegal(t, domain.TicketStatusInProgress, "ticket is already in progress")
	}
	if err := workable(s, domain.TicketStatusInProgress); err != nil {
		return err
	}
	reenter(t)
	t.Status = domain.TicketStatusInProgress
	if t.AttentionStartedAt == nil {
		t.AttentionStartedAt = stamp(now)
	}
	t.ClearPending()
	return nil
}

// Escalate reassigns the ticket to a user-chosen technician and returns the
// escalation record to append.
func Escalate(role domain.Role, s State, to *domain.Technician, reason string, by int64, now time.Time) (*domain.Escalation, error) {
	if err := Authorize(role, ActionEscalate); err != nil {
		return nil, err
	}
	t := s.Ticket
	if err := workable(s, domain.TicketStatusEscalated); err != nil {
		return nil, err
	}
	if to == nil || to.ID == 0 {
		return nil, apperrors.NewValidationError("escalation requires a destination technician", map[string]any{
			"missing": []string{"technician_id"},
		})
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("escalation requires a reason", map[string]any{
			"missing": []string{"reason"},
		})
	}
	if !to.Active {
		return nil, apperrors.NewValidationError("destination technician is inactive", map[string]any{
			"technician_id": to.ID,
		})
	}
	if t.AssignedTo(to.ID) {
		return nil, apperrors.NewValidationError("destination technician already holds the ticket", map[string]any{
			"technician_id": to.ID,
		})
	}

	record := &domain.Escalation{
		TicketID:         t.ID,
		ToTechnicianID:   to.ID,
		ToTechnicianName: to.Name,
		Reason:           reason,
		EscalatedBy:      by,
		CreatedAt:        now,
	}
	if t.TechnicianID != nil {
		from := *t.TechnicianID
		record.FromTechnicianID = &from
	}

	reenter(t)
	t.Status = domain.TicketStatusEscalated
	toID := to.ID
	t.TechnicianID = &toID
	t.TechnicianName = to.Name
	t.AssignedAt = stamp(now)
	t.ClearPending()
	return record, nil
}

// Finish marks the work done, freezes attention time and opens the evaluation window.
func Finish(role domain.Role, s State, now time.Time) error {
	if err := Authorize(role, ActionFinish); err != nil {
		return err
	}
	t := s.Ticket
	if !t.Status.Operational() {
		return illegal(t, domain.TicketStatusFinished, "only operational tickets can be finished")
	}
	t.Status = domain.TicketStatusFinished
	t.FinishedAt = stamp(now)
	t.FreezeAttention(now)
	t.ClearPending()
	return nil
}

// ForceClose closes any ticket that is not already closed.
func ForceClose(role domain.Role, t *domain.Ticket, now time.Time) error {
	if err := Authorize(role, ActionForceClose); err != nil {
		return err
	}
	if t.Status == domain.TicketStatusClosed {
		return illegal(t, domain.TicketStatusClosed, "ticket is already closed")
	}
	t.Status = domain.TicketStatusClosed
	t.ClosedAt = stamp(now)
	t.FreezeAttention(now)
	t.ClearPending()
	return nil
}

// DueForAutoClose reports whether the sweep may close t at cutoff.
// A ticket qualifies while still Finalizado, finished at or before cutoff and
// unevaluated. A reopen requested after the last finish holds the ticket open
// until the technician answers it; the window then runs from the answer.
func DueForAutoClose(t *domain.Ticket, evaluated bool, open *domain.Reopen, cutoff time.Time) bool {
	if t.Status != domain.TicketStatusFinished || evaluated || t.FinishedAt == nil {
		return false
	}
	if t.FinishedAt.After(cutoff) {
		return false
	}
	if open == nil || open.Resolved() || open.CreatedAt.Before(*t.FinishedAt) {
		return true
	}
	return open.Answered() && !open.RespondedAt.After(cutoff)
}

// AutoClose applies the system closure after the evaluation grace window.
func AutoClose(t *domain.Ticket, now time.Time) error {
	if t.Status != domain.TicketStatusFinished {
		return illegal(t, domain.TicketStatusClosed, "only finished tickets are closed automatically")
	}
	t.Status = domain.TicketStatusClosed
	t.ClosedAt = stamp(now)
	t.AutoClosed = true
	t.FreezeAttention(now)
	return nil
}

// Reopen starts a new reopen cycle. The stored status does not change.
func Reopen(role domain.Role, s State, observation string, by int64, now time.Time) (*domain.Reopen, error) {
	if err := Authorize(role, ActionReopen); err != nil {
		return nil, err
	}
	t := s.Ticket
	if t.Status != domain.TicketStatusFinished && t.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewIllegalTransition("only finished or closed tickets can be reopened", map[string]any{
			"ticket_id": t.ID,
			"status":    t.Status,
		})
	}
	if s.Reopened() {
		return nil, apperrors.NewIllegalTransition("ticket already has an unresolved reopen cycle", map[string]any{
			"ticket_id": t.ID,
			"cycle":     s.OpenReopen.Cycle,
		})
	}
	if strings.TrimSpace(observation) == "" {
		return nil, apperrors.NewValidationError("reopen requires an observation", map[string]any{
			"missing": []string{"observation"},
		})
	}
	t.ReopenCycle++
	return &domain.Reopen{
		TicketID:    t.ID,
		Cycle:       t.ReopenCycle,
		Observation: observation,
		RequestedBy: by,
		CreatedAt:   now,
	}, nil
}

// RespondReopen records the technician's cause for the open reopen cycle.
func RespondReopen(role domain.Role, s State, cause string, now time.Time) error {
	if err := Authorize(role, ActionRespondReopen); err != nil {
		return err
	}
	if !s.Reopened() {
		return apperrors.NewIllegalTransition("ticket has no unresolved reopen cycle", map[string]any{
			"ticket_id": s.Ticket.ID,
		})
	}
	if s.OpenReopen.Answered() {
		return apperrors.NewIllegalTransition("reopen cause already recorded", map[string]any{
			"ticket_id": s.Ticket.ID,
			"cycle":     s.OpenReopen.Cycle,
		})
	}
	if strings.TrimSpace(cause) == "" {
		return apperrors.NewValidationError("reopen response requires a cause", map[string]any{
			"missing": []string{"cause"},
		})
	}
	s.OpenReopen.Cause = cause
	s.OpenReopen.RespondedAt = stamp(now)
	return nil
}

// Evaluate records the rating for the ticket's current cycle. existing is the
// evaluation already stored for that cycle, if any. A Finalizado ticket closes;
// an automatically closed one keeps its status and flag.
func Evaluate(role domain.Role, s State, existing *domain.Evaluation, rating int, comment string, by int64, now time.Time) (*domain.Evaluation, error) {
	if err := Authorize(role, ActionEvaluate); err != nil {
		return nil, err
	}
	t := s.Ticket
	if existing != nil {
		return nil, apperrors.NewAlreadyEvaluated(t.ID, t.ReopenCycle)
	}
	if t.Status != domain.TicketStatusFinished && t.Status != domain.TicketStatusClosed {
		return nil, illegal(t, domain.TicketStatusClosed, "only finished or closed tickets can be evaluated")
	}
	if s.Reopened() && !s.OpenReopen.Answered() {
		return nil, apperrors.NewIllegalTransition("reopen cycle is awaiting the technician's cause", map[string]any{
			"ticket_id": t.ID,
			"cycle":     s.OpenReopen.Cycle,
		})
	}
	if rating < MinRating || rating > MaxRating {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{
			"rating": rating,
		})
	}

	evaluation := &domain.Evaluation{
		TicketID:    t.ID,
		Cycle:       t.ReopenCycle,
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		EvaluatorID: by,
		CreatedAt:   now,
	}
	if t.Status == domain.TicketStatusFinished {
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = stamp(now)
		t.FreezeAttention(now)
	}
	if s.Reopened() {
		s.OpenReopen.ResolvedAt = stamp(now)
	}
	return evaluation, nil
}
