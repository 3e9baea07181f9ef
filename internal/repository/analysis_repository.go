package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// PostgresAnalysisRepository implements domain.AnalysisRepository
type PostgresAnalysisRepository struct {
	q      dbtx
	logger *slog.Logger
}

const analysisColumns = `id, user_id, store_id, status, period_start, period_end, summary,
	suggestions, alerts, opportunities, credits_used, failure_reason, created_at, completed_at`

// Create inserts a new analysis. A second in-flight analysis for the same
// user fails with domain.ErrAlreadyInFlight.
func (r *PostgresAnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	suggestions, err := marshalSuggestions(a.Suggestions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.q.ExecContext(ctx, query,
		a.ID, a.UserID, a.StoreID, a.Status, a.PeriodStart, a.PeriodEnd, a.Summary,
		suggestions, rawOrNull(a.Alerts), rawOrNull(a.Opportunities),
		a.CreditsUsed, a.FailureReason, a.CreatedAt, a.CompletedAt,
	)
	if err != nil {
		if mapped := mapError(err); mapped == domain.ErrAlreadyInFlight {
			return mapped
		}
		r.logger.Error("failed to create analysis",
			slog.String("user_id", a.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	return nil
}

// GetByID retrieves an analysis by ID
func (r *PostgresAnalysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	return scanAnalysis(row)
}

// GetForUpdate retrieves an analysis and locks its row
func (r *PostgresAnalysisRepository) GetForUpdate(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1 FOR UPDATE`, id)
	return scanAnalysis(row)
}

// FindInFlight returns the user's pending or processing analysis
func (r *PostgresAnalysisRepository) FindInFlight(ctx context.Context, userID string) (*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses
		WHERE user_id = $1 AND status IN ('pending', 'processing')
		LIMIT 1`
	return scanAnalysis(r.q.QueryRowContext(ctx, query, userID))
}

// Latest returns the user's most recently created analysis of any status
func (r *PostgresAnalysisRepository) Latest(ctx context.Context, userID string) (*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return scanAnalysis(r.q.QueryRowContext(ctx, query, userID))
}

// Update persists status and result fields
func (r *PostgresAnalysisRepository) Update(ctx context.Context, a *domain.Analysis) error {
	suggestions, err := marshalSuggestions(a.Suggestions)
	if err != nil {
		return err
	}

	query := `
		UPDATE analyses
		SET status = $2, summary = $3, suggestions = $4, alerts = $5, opportunities = $6,
			credits_used = $7, failure_reason = $8, completed_at = $9
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		a.ID, a.Status, a.Summary, suggestions, rawOrNull(a.Alerts), rawOrNull(a.Opportunities),
		a.CreditsUsed, a.FailureReason, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", mapError(err))
	}
	return checkAffected(result)
}

// ListByStore returns a store's analyses newest first
func (r *PostgresAnalysisRepository) ListByStore(ctx context.Context, storeID string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + analysisColumns + ` FROM analyses
		WHERE store_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.list(ctx, query, storeID, limit)
}

// ListStale returns in-flight analyses created before the cutoff
func (r *PostgresAnalysisRepository) ListStale(ctx context.Context, createdBefore time.Time) ([]*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses
		WHERE status IN ('pending', 'processing') AND created_at < $1
		ORDER BY created_at`
	return r.list(ctx, query, createdBefore)
}

func (r *PostgresAnalysisRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Analysis, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list analyses",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	a := &domain.Analysis{}
	var suggestions, alerts, opportunities []byte

	err := s.Scan(
		&a.ID, &a.UserID, &a.StoreID, &a.Status, &a.PeriodStart, &a.PeriodEnd, &a.Summary,
		&suggestions, &alerts, &opportunities, &a.CreditsUsed, &a.FailureReason,
		&a.CreatedAt, &a.CompletedAt,
	)
	if err != nil {
		if err = notFound(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	if len(suggestions) > 0 {
		if err := json.Unmarshal(suggestions, &a.Suggestions); err != nil {
			return nil, fmt.Errorf("failed to decode suggestions: %w", err)
		}
	}
	if len(alerts) > 0 {
		a.Alerts = json.RawMessage(alerts)
	}
	if len(opportunities) > 0 {
		a.Opportunities = json.RawMessage(opportunities)
	}
	return a, nil
}

// JSONB parameters are passed as strings; lib/pq encodes []byte as bytea.
func marshalSuggestions(s []domain.ProposedSuggestion) (string, error) {
	if s == nil {
		s = []domain.ProposedSuggestion{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode suggestions: %w", err)
	}
	return string(data), nil
}

// rawOrNull stores empty payloads as SQL NULL.
func rawOrNull(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}
