package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const defaultSweepBatch = 500

// AutoCloseService closes Finalizado tickets whose evaluation window expired.
type AutoCloseService struct {
	store      repository.Store
	assignment *AssignmentService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	grace      time.Duration
	batch      int
	now        func() time.Time
}

// AutoCloseDependencies bundles collaborators.
type AutoCloseDependencies struct {
	Store      repository.Store
	Assignment *AssignmentService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Engine     config.EngineConfig
	Clock      func() time.Time
}

// SweepResult reports one sweep run.
type SweepResult struct {
	Cutoff time.Time
	Closed []int64
}

// NewAutoCloseService constructs the service.
func NewAutoCloseService(deps AutoCloseDependencies) *AutoCloseService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	batch := deps.Engine.SweepBatch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &AutoCloseService{
		store:      deps.Store,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		grace:      deps.Engine.AutoCloseGrace(),
		batch:      batch,
		now:        clock,
	}
}

// Sweep closes every eligible ticket. The guard is re-evaluated inside the
// closing statement, so concurrent or repeated sweeps close each ticket once.
func (s *AutoCloseService) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	result := SweepResult{Cutoff: now.Add(-s.grace)}
	for {
		var closed []int64
		err := s.store.WithTx(ctx, func(tx repository.Store) error {
			ids, err := tx.Tickets().AutoCloseFinished(ctx, result.Cutoff, now, s.batch)
			if err != nil {
				return err
			}
			for _, id := range ids {
				entry := historyEntry(domain.SystemPrincipal, id, domain.ChangeTypeAutoClose, now,
					map[string]any{"status": domain.TicketStatusFinished},
					map[string]any{"status": domain.TicketStatusClosed, "auto_closed": true})
				if err := tx.History().Create(ctx, &entry); err != nil {
					return err
				}
			}
			closed = ids
			return nil
		})
		if err != nil {
			return result, err
		}
		result.Closed = append(result.Closed, closed...)
		s.announce(ctx, closed, now)
		if len(closed) < s.batch {
			break
		}
	}

	s.metrics.RecordAutoClose(len(result.Closed))
	if len(result.Closed) > 0 {
		s.assignment.LoadsChanged(ctx)
		s.logger.Info("auto-close sweep closed tickets",
			zap.Int("count", len(result.Closed)),
			zap.Time("cutoff", result.Cutoff))
	}
	return result, nil
}

func (s *AutoCloseService) announce(ctx context.Context, ids []int64, at time.Time) {
	for _, id := range ids {
		s.metrics.RecordTransition(string(domain.TicketStatusClosed))
		publish(ctx, s.dispatcher, s.logger, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketStatusChanged,
			TicketID:  id,
			Actor:     actorOf(domain.SystemPrincipal),
			Timestamp: at,
			Payload: events.TicketStatusChangedPayload{
				OldStatus:  domain.TicketStatusFinished,
				NewStatus:  domain.TicketStatusClosed,
				AutoClosed: true,
			},
		})
	}
}
