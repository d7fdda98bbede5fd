package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/assignment"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

var t0 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	store    *memory.Store
	tickets  *TicketService
	sweeper  *AutoCloseService
	clock    *fakeClock
	recorder *recorder
	metrics  *observability.Metrics

	serviceID int64
	poolSvcID int64
	anaID     int64
	benID     int64

	employee domain.Principal
	ana      domain.Principal
	ben      domain.Principal
	admin    domain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	anaID := store.AddTechnician(domain.Technician{Name: "Ana", Active: true})
	benID := store.AddTechnician(domain.Technician{Name: "Ben", Active: true})
	store.AddSpecialty(domain.Specialty{TechnicianID: anaID, Area: assignment.AreaInternet, Level: domain.ExpertisePrincipal, Active: true})
	serviceID := store.AddService(domain.Service{
		Category:           "Internet",
		Subcategory:        "Sin conexión",
		TargetTime:         "2 días",
		DefaultPriority:    domain.TicketPriorityMedium,
		InitialResponsible: "RITO",
		Active:             true,
	})
	poolSvcID := store.AddService(domain.Service{
		Category:           "Mobiliario",
		Subcategory:        "Silla",
		TargetTime:         "120",
		DefaultPriority:    domain.TicketPriorityLow,
		InitialResponsible: "RITO",
		Active:             true,
	})

	clock := &fakeClock{now: t0}
	rec := &recorder{}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, rec.handle)
	}
	metrics := observability.NewMetrics()
	assignments := NewAssignmentService(AssignmentDependencies{Store: store, Metrics: metrics})
	engine := config.DefaultEngineConfig()

	return &fixture{
		store: store,
		tickets: NewTicketService(TicketDependencies{
			Store:      store,
			Assignment: assignments,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Engine:     engine,
			Clock:      clock.Now,
		}),
		sweeper: NewAutoCloseService(AutoCloseDependencies{
			Store:      store,
			Assignment: assignments,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Engine:     engine,
			Clock:      clock.Now,
		}),
		clock:     clock,
		recorder:  rec,
		metrics:   metrics,
		serviceID: serviceID,
		poolSvcID: poolSvcID,
		anaID:     anaID,
		benID:     benID,
		employee:  domain.Principal{UserID: 100, Name: "Eva", Role: domain.RoleEmployee},
		ana:       domain.Principal{UserID: anaID, Name: "Ana", Role: domain.RoleTechnician},
		ben:       domain.Principal{UserID: benID, Name: "Ben", Role: domain.RoleTechnician},
		admin:     domain.Principal{UserID: 900, Name: "Root", Role: domain.RoleAdmin},
	}
}

func (f *fixture) create(t *testing.T) *TicketView {
	t.Helper()
	view, err := f.tickets.CreateTicket(context.Background(), f.employee, CreateTicketInput{
		ServiceID:   f.serviceID,
		Description: "no internet on floor 3",
	})
	require.NoError(t, err)
	return view
}

func (f *fixture) finish(t *testing.T, ticketID int64) *TicketView {
	t.Helper()
	view, err := f.tickets.ChangeStatus(context.Background(), f.ana, ticketID, StatusChangeInput{Status: domain.TicketStatusFinished})
	require.NoError(t, err)
	return view
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateTicketAssignsBySpecialtyAndSnapshotsSLA(t *testing.T) {
	f := newFixture(t)
	view := f.create(t)

	ticket := view.Ticket
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.TechnicianID)
	assert.Equal(t, f.anaID, *ticket.TechnicianID)
	assert.Equal(t, "Ana", ticket.TechnicianName)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, sla.Days(2), ticket.SLA)
	require.NotNil(t, ticket.DueAt)
	assert.Equal(t, t0.Add(48*time.Hour), *ticket.DueAt)
	require.NotNil(t, view.RemainingSeconds)
	assert.Equal(t, int64(172800), *view.RemainingSeconds)
	assert.Nil(t, view.EnTiempo)

	history, err := f.tickets.History(context.Background(), f.employee, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
	assert.Equal(t, domain.ChangeTypeAssignee, history[1].ChangeType)

	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventTicketAssigned}, f.recorder.types())
}

func TestRemainingTimeCountsDownAndGoesNegative(t *testing.T) {
	f := newFixture(t)
	view := f.create(t)

	f.clock.Advance(24 * time.Hour)
	remaining, err := f.tickets.ComputeRemainingTime(context.Background(), f.employee, view.Ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, remaining.RemainingSeconds)
	assert.Equal(t, int64(86400), *remaining.RemainingSeconds)
	assert.False(t, remaining.Overdue)

	f.clock.Advance(48 * time.Hour)
	remaining, err = f.tickets.ComputeRemainingTime(context.Background(), f.employee, view.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-86400), *remaining.RemainingSeconds)
	assert.True(t, remaining.Overdue)
}

func TestCreateTicketByAssignedTechnicianStartsInProgress(t *testing.T) {
	f := newFixture(t)
	view, err := f.tickets.CreateTicket(context.Background(), f.ana, CreateTicketInput{
		ServiceID:   f.serviceID,
		Description: "router down",
		Priority:    "alta",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, view.Ticket.Priority)
	require.NotNil(t, view.Ticket.AttentionStartedAt)
	assert.Equal(t, t0, *view.Ticket.AttentionStartedAt)
}

func TestCreateTicketFallsBackToUnassignedPool(t *testing.T) {
	f := newFixture(t)
	view, err := f.tickets.CreateTicket(context.Background(), f.employee, CreateTicketInput{
		ServiceID:   f.poolSvcID,
		Description: "broken chair",
	})
	require.NoError(t, err)
	assert.Nil(t, view.Ticket.TechnicianID)
	assert.Equal(t, domain.TicketStatusOpen, view.Ticket.Status)
	assert.Equal(t, domain.TicketPriorityLow, view.Ticket.Priority)

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	require.Len(t, f.recorder.events, 2)
	payload, ok := f.recorder.events[1].Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	assert.Nil(t, payload.TechnicianID)
	assert.Equal(t, string(assignment.SourceNone), payload.Source)
	assert.NotEmpty(t, payload.Reason)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.CreateTicket(ctx, f.employee, CreateTicketInput{ServiceID: f.serviceID, Description: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = f.tickets.CreateTicket(ctx, f.employee, CreateTicketInput{ServiceID: 999, Description: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = f.tickets.CreateTicket(ctx, f.employee, CreateTicketInput{ServiceID: f.serviceID, Description: "x", Priority: "urgent"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestViewTicketStartsAttentionForTechnicianOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)

	view, err := f.tickets.ViewTicket(ctx, f.employee, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, view.Ticket.Status)

	f.clock.Advance(10 * time.Minute)
	view, err = f.tickets.ViewTicket(ctx, f.ana, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Ticket.Status)
	require.NotNil(t, view.Ticket.AttentionStartedAt)
	assert.Equal(t, t0.Add(10*time.Minute), *view.Ticket.AttentionStartedAt)

	f.clock.Advance(10 * time.Minute)
	view, err = f.tickets.ViewTicket(ctx, f.ana, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(10*time.Minute), *view.Ticket.AttentionStartedAt)
}

func TestEmployeeCannotReachAnotherRequestersTicket(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	other := domain.Principal{UserID: 101, Role: domain.RoleEmployee}

	_, err := f.tickets.ViewTicket(context.Background(), other, created.Ticket.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.tickets.Reopen(context.Background(), other, created.Ticket.ID, "still broken")
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestSetPendingRequiresReasonAndEstimate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)

	_, err := f.tickets.ChangeStatus(ctx, f.ana, created.Ticket.ID, StatusChangeInput{
		Status: domain.TicketStatusPending,
		Reason: "waiting for provider",
	})
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, []string{"estimate"}, domainErr.Details["missing"])

	stored, err := f.store.Tickets().GetByID(ctx, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)

	view, err := f.tickets.ChangeStatus(ctx, f.ana, created.Ticket.ID, StatusChangeInput{
		Status:   domain.TicketStatusPending,
		Reason:   "waiting for provider",
		Estimate: "mañana",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, view.Ticket.Status)
	assert.Equal(t, "mañana", view.Ticket.PendingEstimate)
}

func TestEmployeeCannotChangeStatus(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	_, err := f.tickets.ChangeStatus(context.Background(), f.employee, created.Ticket.ID, StatusChangeInput{Status: domain.TicketStatusFinished})
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))

	_, err = f.tickets.ForceClose(context.Background(), f.ana, created.Ticket.ID)
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))
}

func TestAdminForceClose(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	view, err := f.tickets.ForceClose(context.Background(), f.admin, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, view.Ticket.Status)
	assert.False(t, view.Ticket.AutoClosed)

	_, err = f.tickets.ForceClose(context.Background(), f.admin, created.Ticket.ID)
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))
}

func TestEscalationMovesTicketAndLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)

	loads, err := f.store.Tickets().ActiveLoads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loads[f.anaID])
	assert.Equal(t, 0, loads[f.benID])

	f.recorder.reset()
	view, err := f.tickets.Escalate(ctx, f.ana, created.Ticket.ID, EscalateInput{
		TechnicianID: int64Ptr(f.benID),
		Reason:       "needs fiber team",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, view.Ticket.Status)
	require.NotNil(t, view.Ticket.TechnicianID)
	assert.Equal(t, f.benID, *view.Ticket.TechnicianID)
	require.NotNil(t, view.CurrentEscalation)
	assert.Equal(t, f.benID, view.CurrentEscalation.ToTechnicianID)

	chain, err := f.tickets.Escalations(ctx, f.admin, created.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.NotNil(t, chain[0].FromTechnicianID)
	assert.Equal(t, f.anaID, *chain[0].FromTechnicianID)

	loads, err = f.store.Tickets().ActiveLoads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, loads[f.anaID])
	assert.Equal(t, 1, loads[f.benID])

	assert.ElementsMatch(t, []events.EventType{
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketEscalated,
	}, f.recorder.types())
}

func TestEscalationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)

	_, err := f.tickets.Escalate(ctx, f.ana, created.Ticket.ID, EscalateInput{Reason: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = f.tickets.Escalate(ctx, f.ana, created.Ticket.ID, EscalateInput{TechnicianID: int64Ptr(f.benID)})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = f.tickets.Escalate(ctx, f.ana, created.Ticket.ID, EscalateInput{TechnicianID: int64Ptr(f.anaID), Reason: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = f.tickets.Escalate(ctx, f.ana, created.Ticket.ID, EscalateInput{TechnicianID: int64Ptr(4242), Reason: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	chain, err := f.tickets.Escalations(ctx, f.admin, created.Ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestStaleExpectedVersionIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)
	stale := created.Ticket.Version

	_, err := f.tickets.ViewTicket(ctx, f.ana, created.Ticket.ID)
	require.NoError(t, err)

	_, err = f.tickets.ChangeStatus(ctx, f.ana, created.Ticket.ID, StatusChangeInput{
		Status:          domain.TicketStatusFinished,
		ExpectedVersion: &stale,
	})
	assert.True(t, errors.Is(err, apperrors.ErrConcurrentModification))
}

func TestFinishEmitsEvaluationDue(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	f.recorder.reset()

	f.clock.Advance(time.Hour)
	view := f.finish(t, created.Ticket.ID)
	assert.Equal(t, domain.TicketStatusFinished, view.Ticket.Status)
	assert.True(t, view.AwaitingEvaluation)
	require.NotNil(t, view.EnTiempo)
	assert.True(t, *view.EnTiempo)

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	require.Len(t, f.recorder.events, 2)
	assert.Equal(t, events.EventTicketStatusChanged, f.recorder.events[0].Type)
	due, ok := f.recorder.events[1].Payload.(events.TicketEvaluationDuePayload)
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Hour).Add(48*time.Hour), due.AutoCloseAt)
}

func TestAutoCloseSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)

	f.clock.Advance(time.Hour)
	f.finish(t, created.Ticket.ID)

	f.clock.Advance(48*time.Hour - time.Second)
	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Closed)

	f.clock.Advance(2 * time.Second)
	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.Ticket.ID}, result.Closed)

	view, err := f.tickets.ViewTicket(ctx, f.employee, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, view.Ticket.Status)
	assert.True(t, view.Ticket.AutoClosed)
	assert.True(t, view.AwaitingEvaluation)

	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Closed)

	history, err := f.tickets.History(ctx, f.admin, created.Ticket.ID)
	require.NoError(t, err)
	autoCloses := 0
	for _, h := range history {
		if h.ChangeType == domain.ChangeTypeAutoClose {
			autoCloses++
		}
	}
	assert.Equal(t, 1, autoCloses)
}

func TestSweepSkipsEvaluatedTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)
	f.finish(t, created.Ticket.ID)

	_, err := f.tickets.Evaluate(ctx, f.employee, created.Ticket.ID, EvaluateInput{Rating: 4})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Closed)
}

func TestSweepHoldsReopenedTicketUntilCauseIsAnswered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)
	id := created.Ticket.ID
	f.finish(t, id)

	f.clock.Advance(time.Hour)
	view, err := f.tickets.Reopen(ctx, f.employee, id, "still down")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusFinished, view.Ticket.Status)
	assert.True(t, view.Reopened)

	f.clock.Advance(48*time.Hour + time.Second)
	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Closed)

	view, err = f.tickets.ViewTicket(ctx, f.employee, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusFinished, view.Ticket.Status)
	assert.False(t, view.Ticket.AutoClosed)

	_, err = f.tickets.RespondReopen(ctx, f.ana, id, "router firmware")
	require.NoError(t, err)

	f.clock.Advance(48*time.Hour - time.Second)
	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Closed)

	f.clock.Advance(2 * time.Second)
	result, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, result.Closed)
}

func TestEvaluateClosesTicketOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)

	_, err := f.tickets.Evaluate(ctx, f.employee, created.Ticket.ID, EvaluateInput{Rating: 5})
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))

	f.finish(t, created.Ticket.ID)

	_, err = f.tickets.Evaluate(ctx, f.employee, created.Ticket.ID, EvaluateInput{Rating: 0})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	view, err := f.tickets.Evaluate(ctx, f.employee, created.Ticket.ID, EvaluateInput{Rating: 5, Comment: " great "})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, view.Ticket.Status)
	require.NotNil(t, view.Evaluation)
	assert.Equal(t, 5, view.Evaluation.Rating)
	assert.Equal(t, "great", view.Evaluation.Comment)
	assert.False(t, view.AwaitingEvaluation)

	_, err = f.tickets.Evaluate(ctx, f.employee, created.Ticket.ID, EvaluateInput{Rating: 3})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyEvaluated))
}

func TestLateEvaluationKeepsAutoClosedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)
	f.finish(t, created.Ticket.ID)
	f.clock.Advance(49 * time.Hour)
	_, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)

	view, err := f.tickets.Evaluate(ctx, f.employee, created.Ticket.ID, EvaluateInput{Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, view.Ticket.Status)
	assert.True(t, view.Ticket.AutoClosed)
	assert.False(t, view.AwaitingEvaluation)
}

func TestReopenCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)
	id := created.Ticket.ID
	f.finish(t, id)
	_, err := f.tickets.Evaluate(ctx, f.employee, id, EvaluateInput{Rating: 4})
	require.NoError(t, err)

	view, err := f.tickets.Reopen(ctx, f.employee, id, "it failed again")
	require.NoError(t, err)
	assert.True(t, view.Reopened)
	assert.Equal(t, 1, view.Ticket.ReopenCycle)
	assert.Equal(t, domain.TicketStatusClosed, view.Ticket.Status)
	assert.Nil(t, view.Evaluation)

	_, err = f.tickets.Reopen(ctx, f.employee, id, "again")
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))

	listed, err := f.tickets.ListTickets(ctx, f.employee, ListTicketsInput{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	listed, err = f.tickets.ListTickets(ctx, f.employee, ListTicketsInput{OnlyReopened: true})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = f.tickets.Evaluate(ctx, f.employee, id, EvaluateInput{Rating: 4})
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))

	_, err = f.tickets.RespondReopen(ctx, f.ana, id, "ISP outage")
	require.NoError(t, err)
	_, err = f.tickets.RespondReopen(ctx, f.ana, id, "other")
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))

	view, err = f.tickets.Evaluate(ctx, f.employee, id, EvaluateInput{Rating: 3})
	require.NoError(t, err)
	assert.False(t, view.Reopened)
	require.NotNil(t, view.Evaluation)
	assert.Equal(t, 1, view.Evaluation.Cycle)
}

func TestReopenedTicketReturnsToWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)
	id := created.Ticket.ID
	f.finish(t, id)

	_, err := f.tickets.Reopen(ctx, f.employee, id, "not fixed")
	require.NoError(t, err)

	view, err := f.tickets.ChangeStatus(ctx, f.ana, id, StatusChangeInput{Status: domain.TicketStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Ticket.Status)
	assert.Nil(t, view.Ticket.FinishedAt)
	assert.True(t, view.Reopened)
}

func TestAutoClosedTicketKeepsFlagWhenReworked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t)
	id := created.Ticket.ID
	f.finish(t, id)

	f.clock.Advance(48*time.Hour + time.Second)
	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{id}, result.Closed)

	_, err = f.tickets.Reopen(ctx, f.employee, id, "broke again")
	require.NoError(t, err)

	view, err := f.tickets.ChangeStatus(ctx, f.ana, id, StatusChangeInput{Status: domain.TicketStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Ticket.Status)
	assert.Nil(t, view.Ticket.ClosedAt)
	assert.True(t, view.Ticket.AutoClosed)
}

func TestListTicketsScopesEmployees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t)
	_, err := f.tickets.CreateTicket(ctx, domain.Principal{UserID: 101, Role: domain.RoleEmployee}, CreateTicketInput{
		ServiceID:   f.serviceID,
		Description: "printer",
	})
	require.NoError(t, err)

	mine, err := f.tickets.ListTickets(ctx, f.employee, ListTicketsInput{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.employee.UserID, mine[0].Ticket.RequesterID)

	all, err := f.tickets.ListTickets(ctx, f.admin, ListTicketsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assigned, err := f.tickets.ListTickets(ctx, f.admin, ListTicketsInput{TechnicianID: int64Ptr(f.benID)})
	require.NoError(t, err)
	assert.Empty(t, assigned)
}

func TestSelectTechnicianRequiresStaffRole(t *testing.T) {
	f := newFixture(t)
	assignments := NewAssignmentService(AssignmentDependencies{Store: f.store})

	_, err := assignments.SelectTechnician(context.Background(), f.employee, f.serviceID, "", nil)
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))

	selection, err := assignments.SelectTechnician(context.Background(), f.admin, f.serviceID, "", int64Ptr(f.anaID))
	require.NoError(t, err)
	assert.False(t, selection.Assigned)
}
