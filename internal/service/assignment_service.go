package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/assignment"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// LoadReader serves technician loads, possibly from a stale snapshot.
type LoadReader interface {
	Loads(ctx context.Context) (map[int64]int, error)
	Invalidate(ctx context.Context) error
}

// AssignmentService resolves technicians for tickets. It implements
// assignment.Directory over the store and the load cache.
type AssignmentService struct {
	store    repository.Store
	loads    LoadReader
	selector *assignment.Selector
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store              repository.Store
	Loads              LoadReader
	UnassignedSentinel string
	Metrics            *observability.Metrics
	Logger             *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AssignmentService{
		store:   deps.Store,
		loads:   deps.Loads,
		metrics: deps.Metrics,
		logger:  logger,
	}
	s.selector = assignment.NewSelector(s, deps.UnassignedSentinel)
	return s
}

// Snapshot loads technicians, the area's specialties and rules, and current loads.
func (s *AssignmentService) Snapshot(ctx context.Context, area string) (assignment.Snapshot, error) {
	techs := s.store.Technicians()
	list, err := techs.List(ctx)
	if err != nil {
		return assignment.Snapshot{}, err
	}
	specialties, err := techs.ListSpecialties(ctx, area)
	if err != nil {
		return assignment.Snapshot{}, err
	}
	rules, err := techs.ListRules(ctx, area)
	if err != nil {
		return assignment.Snapshot{}, err
	}
	loads, err := s.currentLoads(ctx)
	if err != nil {
		return assignment.Snapshot{}, err
	}
	return assignment.Snapshot{
		Technicians: list,
		Specialties: specialties,
		Rules:       rules,
		Loads:       loads,
	}, nil
}

func (s *AssignmentService) currentLoads(ctx context.Context) (map[int64]int, error) {
	if s.loads != nil {
		return s.loads.Loads(ctx)
	}
	return s.store.Tickets().ActiveLoads(ctx)
}

// Select runs the selector for an already loaded service.
func (s *AssignmentService) Select(ctx context.Context, svc *domain.Service, priority domain.TicketPriority, exclude *int64) (assignment.Selection, error) {
	selection, err := s.selector.Select(ctx, assignment.Request{
		Service:             svc,
		Priority:            priority,
		ExcludeTechnicianID: exclude,
	})
	if err != nil {
		return assignment.Selection{}, err
	}
	s.metrics.RecordAssignment(string(selection.Source))
	return selection, nil
}

// SelectTechnician exposes the selector to technicians and administrators,
// e.g. to suggest escalation targets. It never writes.
func (s *AssignmentService) SelectTechnician(ctx context.Context, actor domain.Principal, serviceID int64, priority domain.TicketPriority, exclude *int64) (assignment.Selection, error) {
	if !lifecycle.Can(actor.Role, lifecycle.ActionListAll) {
		return assignment.Selection{}, apperrors.NewRoleForbidden("technician selection requires technician or administrator role", map[string]any{
			"role": actor.Role,
		})
	}
	svc, err := s.store.Services().GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return assignment.Selection{}, apperrors.NewNotFound("service", map[string]any{"service_id": serviceID})
		}
		return assignment.Selection{}, apperrors.MapError(err)
	}
	if priority == "" {
		priority = svc.DefaultPriority
	}
	return s.Select(ctx, svc, priority, exclude)
}

// LoadsChanged drops the cached load snapshot after an assignment changed.
func (s *AssignmentService) LoadsChanged(ctx context.Context) {
	if s == nil || s.loads == nil {
		return
	}
	if err := s.loads.Invalidate(ctx); err != nil {
		s.logger.Warn("technician load cache invalidation failed", zap.Error(err))
	}
}
