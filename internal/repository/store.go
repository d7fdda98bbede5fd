package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories the engine needs and runs them atomically.
type Store interface {
	Tickets() TicketRepository
	Services() ServiceRepository
	Technicians() TechnicianRepository
	Escalations() EscalationRepository
	Reopens() ReopenRepository
	Evaluations() EvaluationRepository
	History() TicketHistoryRepository
	// WithTx runs fn against a transactional view of the store. Returning an
	// error rolls back every write made through that view.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewStore builds the Postgres-backed store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Tickets() TicketRepository         { return &ticketRepository{db: s.db} }
func (s *pgStore) Services() ServiceRepository       { return &serviceRepository{db: s.db} }
func (s *pgStore) Technicians() TechnicianRepository { return &technicianRepository{db: s.db} }
func (s *pgStore) Escalations() EscalationRepository { return &escalationRepository{db: s.db} }
func (s *pgStore) Reopens() ReopenRepository         { return &reopenRepository{db: s.db} }
func (s *pgStore) Evaluations() EvaluationRepository { return &evaluationRepository{db: s.db} }
func (s *pgStore) History() TicketHistoryRepository  { return &ticketHistoryRepository{db: s.db} }

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &pgStore{pool: s.pool, db: tx, inTx: true}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
