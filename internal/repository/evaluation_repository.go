package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// EvaluationRepository stores one evaluation per ticket cycle.
type EvaluationRepository interface {
	// Create fails with an already-evaluated error when the cycle has one.
	Create(ctx context.Context, evaluation *domain.Evaluation) error
	// ForCycle returns the cycle's evaluation, or nil when none was recorded.
	ForCycle(ctx context.Context, ticketID int64, cycle int) (*domain.Evaluation, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Evaluation, error)
}

type evaluationRepository struct {
	db DBTX
}

// NewEvaluationRepository builds repository.
func NewEvaluationRepository(db DBTX) EvaluationRepository {
	return &evaluationRepository{db: db}
}

const evaluationColumns = `id, ticket_id, cycle, rating, comment, evaluator_id, created_at`

func (r *evaluationRepository) Create(ctx context.Context, evaluation *domain.Evaluation) error {
	const query = `
        INSERT INTO ticket_evaluations (ticket_id, cycle, rating, comment, evaluator_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		evaluation.TicketID,
		evaluation.Cycle,
		evaluation.Rating,
		evaluation.Comment,
		evaluation.EvaluatorID,
		evaluation.CreatedAt,
	).Scan(&evaluation.ID)
	if isUniqueViolation(err) {
		return apperrors.NewAlreadyEvaluated(evaluation.TicketID, evaluation.Cycle)
	}
	return err
}

func (r *evaluationRepository) ForCycle(ctx context.Context, ticketID int64, cycle int) (*domain.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM ticket_evaluations WHERE ticket_id=$1 AND cycle=$2`
	evaluation, err := scanEvaluation(r.db.QueryRow(ctx, query, ticketID, cycle))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return evaluation, err
}

func (r *evaluationRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM ticket_evaluations WHERE ticket_id=$1 ORDER BY cycle ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Evaluation
	for rows.Next() {
		evaluation, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *evaluation)
	}
	return result, rows.Err()
}

func scanEvaluation(row pgx.Row) (*domain.Evaluation, error) {
	var e domain.Evaluation
	if err := row.Scan(&e.ID, &e.TicketID, &e.Cycle, &e.Rating, &e.Comment, &e.EvaluatorID, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
