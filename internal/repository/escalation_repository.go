package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EscalationRepository stores the append-only escalation log.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.Escalation) error
	// Latest returns the current escalation, or nil when the ticket was never escalated.
	Latest(ctx context.Context, ticketID int64) (*domain.Escalation, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Escalation, error)
}

type escalationRepository struct {
	db DBTX
}

// NewEscalationRepository builds repository.
func NewEscalationRepository(db DBTX) EscalationRepository {
	return &escalationRepository{db: db}
}

const escalationColumns = `id, ticket_id, from_technician_id, to_technician_id, to_technician_name, reason, escalated_by, created_at`

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        INSERT INTO ticket_escalations (ticket_id, from_technician_id, to_technician_id, to_technician_name, reason, escalated_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.FromTechnicianID,
		escalation.ToTechnicianID,
		escalation.ToTechnicianName,
		escalation.Reason,
		escalation.EscalatedBy,
		escalation.CreatedAt,
	).Scan(&escalation.ID)
}

func (r *escalationRepository) Latest(ctx context.Context, ticketID int64) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM ticket_escalations WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`
	escalation, err := scanEscalation(r.db.QueryRow(ctx, query, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return escalation, err
}

func (r *escalationRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM ticket_escalations WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Escalation
	for rows.Next() {
		escalation, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *escalation)
	}
	return result, rows.Err()
}

func scanEscalation(row pgx.Row) (*domain.Escalation, error) {
	var e domain.Escalation
	if err := row.Scan(
		&e.ID,
		&e.TicketID,
		&e.FromTechnicianID,
		&e.ToTechnicianID,
		&e.ToTechnicianName,
		&e.Reason,
		&e.EscalatedBy,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
