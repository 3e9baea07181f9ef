package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements domain.UnitOfWork on top of PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by db
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

type pgRepos struct {
	q      dbtx
	logger *slog.Logger
}

func (r pgRepos) Credits() domain.CreditLedger {
	return &PostgresCreditLedger{q: r.q, logger: r.logger}
}

func (r pgRepos) Analyses() domain.AnalysisRepository {
	return &PostgresAnalysisRepository{q: r.q, logger: r.logger}
}

func (r pgRepos) Suggestions() domain.SuggestionRepository {
	return &PostgresSuggestionRepository{q: r.q, logger: r.logger}
}

func (r pgRepos) Steps() domain.StepRepository {
	return &PostgresStepRepository{q: r.q, logger: r.logger}
}

func (r pgRepos) Tasks() domain.TaskRepository {
	return &PostgresTaskRepository{q: r.q, logger: r.logger}
}

func (r pgRepos) Comments() domain.CommentRepository {
	return &PostgresCommentRepository{q: r.q, logger: r.logger}
}

func (s *PostgresStore) root() pgRepos { return pgRepos{q: s.db, logger: s.logger} }

func (s *PostgresStore) Credits() domain.CreditLedger             { return s.root().Credits() }
func (s *PostgresStore) Analyses() domain.AnalysisRepository      { return s.root().Analyses() }
func (s *PostgresStore) Suggestions() domain.SuggestionRepository { return s.root().Suggestions() }
func (s *PostgresStore) Steps() domain.StepRepository             { return s.root().Steps() }
func (s *PostgresStore) Tasks() domain.TaskRepository             { return s.root().Tasks() }
func (s *PostgresStore) Comments() domain.CommentRepository       { return s.root().Comments() }

// WithinTx runs fn inside a READ COMMITTED transaction. The transaction is
// committed only if fn returns nil.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, pgRepos{q: tx, logger: s.logger}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("failed to roll back transaction",
				slog.String("error", rbErr.Error()),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const uniqueViolation = "23505"

// mapError translates driver errors into domain errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == inFlightIndex {
		return domain.ErrAlreadyInFlight
	}
	return err
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
