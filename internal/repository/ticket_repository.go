package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	RequesterID  *int64
	TechnicianID *int64
	Statuses     []domain.TicketStatus
	// By default tickets with an unresolved reopen cycle are left out.
	IncludeReopened bool
	OnlyReopened    bool
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	// UpdateIfUnchanged writes ticket only while the stored status and version
	// still match the expected values, then bumps the version.
	UpdateIfUnchanged(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ActiveLoads counts operational tickets per assigned technician.
	ActiveLoads(ctx context.Context) (map[int64]int, error)
	// AutoCloseFinished closes, in one guarded statement, every Finalizado
	// ticket finished at or before cutoff with no evaluation for its current cycle.
	AutoCloseFinished(ctx context.Context, cutoff, now time.Time, limit int) ([]int64, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, requester_id, service_id, category, subcategory, description, priority, status,
       technician_id, technician_name, created_at, assigned_at, attention_started_at, finished_at,
       closed_at, attention_seconds, pending_reason, pending_estimate, pending_set_at, auto_closed,
       reopen_cycle, sla_kind, sla_value, target_kind, target_value, due_at, version, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (requester_id, service_id, category, subcategory, description, priority, status,
            technician_id, technician_name, created_at, assigned_at, attention_started_at,
            sla_kind, sla_value, target_kind, target_value, due_at, version, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,1,$10)
        RETURNING id, version, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.RequesterID,
		ticket.ServiceID,
		ticket.Category,
		ticket.Subcategory,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.TechnicianID,
		ticket.TechnicianName,
		ticket.CreatedAt,
		ticket.AssignedAt,
		ticket.AttentionStartedAt,
		ticket.SLA.Kind.String(),
		ticket.SLA.Value,
		ticket.TargetSLA.Kind.String(),
		ticket.TargetSLA.Value,
		ticket.DueAt,
	).Scan(&ticket.ID, &ticket.Version, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) UpdateIfUnchanged(ctx context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus, expectedVersion int64) error {
	const query = `
        UPDATE tickets SET status=$1, technician_id=$2, technician_name=$3, assigned_at=$4,
            attention_started_at=$5, finished_at=$6, closed_at=$7, attention_seconds=$8,
            pending_reason=$9, pending_estimate=$10, pending_set_at=$11, auto_closed=$12,
            reopen_cycle=$13, version=version+1, updated_at=$14
        WHERE id=$15 AND status=$16 AND version=$17
        RETURNING version`
	err := r.db.QueryRow(ctx, query,
		ticket.Status,
		ticket.TechnicianID,
		ticket.TechnicianName,
		ticket.AssignedAt,
		ticket.AttentionStartedAt,
		ticket.FinishedAt,
		ticket.ClosedAt,
		ticket.AttentionSeconds,
		ticket.PendingReason,
		ticket.PendingEstimate,
		ticket.PendingSetAt,
		ticket.AutoClosed,
		ticket.ReopenCycle,
		ticket.UpdatedAt,
		ticket.ID,
		expectedStatus,
		expectedVersion,
	).Scan(&ticket.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewConcurrentModification(ticket.ID)
	}
	return err
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("t.requester_id = $%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("t.technician_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("t.status = ANY($%d)", len(args)))
	}
	const openReopen = `EXISTS (SELECT 1 FROM ticket_reopens r WHERE r.ticket_id = t.id AND r.resolved_at IS NULL)`
	switch {
	case filter.OnlyReopened:
		clauses = append(clauses, openReopen)
	case !filter.IncludeReopened:
		clauses = append(clauses, "NOT "+openReopen)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s ORDER BY t.updated_at DESC, t.id DESC LIMIT %d OFFSET %d`,
		prefixed("t.", ticketColumns), strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ActiveLoads(ctx context.Context) (map[int64]int, error) {
	const query = `
        SELECT technician_id, COUNT(*) FROM tickets
        WHERE technician_id IS NOT NULL AND status = ANY($1)
        GROUP BY technician_id`
	rows, err := r.db.Query(ctx, query, operationalStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := make(map[int64]int)
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		loads[id] = count
	}
	return loads, rows.Err()
}

func (r *ticketRepository) AutoCloseFinished(ctx context.Context, cutoff, now time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 500
	}
	const query = `
        UPDATE tickets t SET status=$1, closed_at=$2, auto_closed=TRUE,
            attention_seconds=COALESCE(t.attention_seconds,
                GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($2::timestamptz - COALESCE(t.attention_started_at, t.created_at))))::BIGINT)),
            version=t.version+1, updated_at=$2
        WHERE t.id IN (
            SELECT c.id FROM tickets c
            WHERE c.status=$3 AND c.finished_at IS NOT NULL AND c.finished_at <= $4
              AND NOT EXISTS (SELECT 1 FROM ticket_evaluations e WHERE e.ticket_id = c.id AND e.cycle = c.reopen_cycle)
              AND NOT EXISTS (SELECT 1 FROM ticket_reopens r
                  WHERE r.ticket_id = c.id AND r.resolved_at IS NULL AND r.created_at >= c.finished_at
                    AND (r.responded_at IS NULL OR r.responded_at > $4))
            ORDER BY c.finished_at
            LIMIT $5
            FOR UPDATE SKIP LOCKED)
          AND t.status=$3
        RETURNING t.id`
	rows, err := r.db.Query(ctx, query,
		domain.TicketStatusClosed,
		now,
		domain.TicketStatusFinished,
		cutoff,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func operationalStatuses() []string {
	return []string{
		string(domain.TicketStatusOpen),
		string(domain.TicketStatusPending),
		string(domain.TicketStatusInProgress),
		string(domain.TicketStatusEscalated),
	}
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                domain.Ticket
		slaKind, targetKind   string
		slaValue, targetValue float64
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.RequesterID,
		&ticket.ServiceID,
		&ticket.Category,
		&ticket.Subcategory,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.TechnicianID,
		&ticket.TechnicianName,
		&ticket.CreatedAt,
		&ticket.AssignedAt,
		&ticket.AttentionStartedAt,
		&ticket.FinishedAt,
		&ticket.ClosedAt,
		&ticket.AttentionSeconds,
		&ticket.PendingReason,
		&ticket.PendingEstimate,
		&ticket.PendingSetAt,
		&ticket.AutoClosed,
		&ticket.ReopenCycle,
		&slaKind,
		&slaValue,
		&targetKind,
		&targetValue,
		&ticket.DueAt,
		&ticket.Version,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.SLA = objective(slaKind, slaValue)
	ticket.TargetSLA = objective(targetKind, targetValue)
	return &ticket, nil
}

func objective(kind string, value float64) sla.Objective {
	switch sla.ParseKind(kind) {
	case sla.KindMinutes:
		return sla.Minutes(value)
	case sla.KindDays:
		return sla.Days(int(value))
	}
	return sla.Unparseable
}
