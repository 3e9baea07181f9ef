package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// PostgresStepRepository implements domain.StepRepository
type PostgresStepRepository struct {
	q      dbtx
	logger *slog.Logger
}

const stepColumns = `id, suggestion_id, title, description, position, is_custom, status,
	completed_at, completed_by, created_at`

// Create inserts a step
func (r *PostgresStepRepository) Create(ctx context.Context, s *domain.Step) error {
	query := `
		INSERT INTO suggestion_steps (` + stepColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		s.ID, s.SuggestionID, s.Title, s.Description, s.Position, s.IsCustom, s.Status,
		s.CompletedAt, s.CompletedBy, s.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create step",
			slog.String("suggestion_id", s.SuggestionID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create step: %w", err)
	}
	return nil
}

// GetByID retrieves a step by ID
func (r *PostgresStepRepository) GetByID(ctx context.Context, id string) (*domain.Step, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+stepColumns+` FROM suggestion_steps WHERE id = $1`, id)
	return scanStep(row)
}

// Update persists completion state
func (r *PostgresStepRepository) Update(ctx context.Context, s *domain.Step) error {
	query := `
		UPDATE suggestion_steps
		SET title = $2, description = $3, status = $4, completed_at = $5, completed_by = $6
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, s.ID, s.Title, s.Description, s.Status, s.CompletedAt, s.CompletedBy)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a step. Comments anchored to it become general.
func (r *PostgresStepRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM suggestion_steps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}
	return checkAffected(result)
}

// ListBySuggestion returns steps ordered by position, then insertion
func (r *PostgresStepRepository) ListBySuggestion(ctx context.Context, suggestionID string) ([]*domain.Step, error) {
	query := `SELECT ` + stepColumns + ` FROM suggestion_steps
		WHERE suggestion_id = $1
		ORDER BY position, seq`

	rows, err := r.q.QueryContext(ctx, query, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var out []*domain.Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MaxPosition returns the highest position in use, or -1 when there are no steps
func (r *PostgresStepRepository) MaxPosition(ctx context.Context, suggestionID string) (int, error) {
	var pos int
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) FROM suggestion_steps WHERE suggestion_id = $1`,
		suggestionID,
	).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to read max step position: %w", err)
	}
	return pos, nil
}

func scanStep(sc scanner) (*domain.Step, error) {
	s := &domain.Step{}
	err := sc.Scan(
		&s.ID, &s.SuggestionID, &s.Title, &s.Description, &s.Position, &s.IsCustom, &s.Status,
		&s.CompletedAt, &s.CompletedBy, &s.CreatedAt,
	)
	if err != nil {
		if err = notFound(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan step: %w", err)
	}
	return s, nil
}
