package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ReopenRepository stores reopen cycles.
type ReopenRepository interface {
	Create(ctx context.Context, reopen *domain.Reopen) error
	// Open returns the unresolved cycle, or nil when there is none.
	Open(ctx context.Context, ticketID int64) (*domain.Reopen, error)
	Update(ctx context.Context, reopen *domain.Reopen) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Reopen, error)
}

type reopenRepository struct {
	db DBTX
}

// NewReopenRepository builds repository.
func NewReopenRepository(db DBTX) ReopenRepository {
	return &reopenRepository{db: db}
}

const reopenColumns = `id, ticket_id, cycle, observation, requested_by, cause, responded_at, created_at, resolved_at`

func (r *reopenRepository) Create(ctx context.Context, reopen *domain.Reopen) error {
	const query = `
        INSERT INTO ticket_reopens (ticket_id, cycle, observation, requested_by, cause, created_at)
        VALUES ($1,$2,$3,$4,'',$5)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		reopen.TicketID,
		reopen.Cycle,
		reopen.Observation,
		reopen.RequestedBy,
		reopen.CreatedAt,
	).Scan(&reopen.ID)
	if isUniqueViolation(err) {
		return apperrors.NewIllegalTransition("ticket already has an unresolved reopen cycle", map[string]any{
			"ticket_id": reopen.TicketID,
		})
	}
	return err
}

func (r *reopenRepository) Open(ctx context.Context, ticketID int64) (*domain.Reopen, error) {
	query := `SELECT ` + reopenColumns + ` FROM ticket_reopens WHERE ticket_id=$1 AND resolved_at IS NULL ORDER BY cycle DESC LIMIT 1`
	reopen, err := scanReopen(r.db.QueryRow(ctx, query, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reopen, err
}

func (r *reopenRepository) Update(ctx context.Context, reopen *domain.Reopen) error {
	const query = `UPDATE ticket_reopens SET cause=$1, responded_at=$2, resolved_at=$3 WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query, reopen.Cause, reopen.RespondedAt, reopen.ResolvedAt, reopen.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *reopenRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Reopen, error) {
	query := `SELECT ` + reopenColumns + ` FROM ticket_reopens WHERE ticket_id=$1 ORDER BY cycle ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Reopen
	for rows.Next() {
		reopen, err := scanReopen(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *reopen)
	}
	return result, rows.Err()
}

func scanReopen(row pgx.Row) (*domain.Reopen, error) {
	var reopen domain.Reopen
	if err := row.Scan(
		&reopen.ID,
		&reopen.TicketID,
		&reopen.Cycle,
		&reopen.Observation,
		&reopen.RequestedBy,
		&reopen.Cause,
		&reopen.RespondedAt,
		&reopen.CreatedAt,
		&reopen.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &reopen, nil
}
