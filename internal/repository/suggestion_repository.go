package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// PostgresSuggestionRepository implements domain.SuggestionRepository
type PostgresSuggestionRepository struct {
	q      dbtx
	logger *slog.Logger
}

const suggestionColumns = `id, store_id, COALESCE(analysis_id, ''), category, title, description,
	priority, recommended_action, status, was_successful, created_at, updated_at`

// Create inserts a suggestion
func (r *PostgresSuggestionRepository) Create(ctx context.Context, s *domain.Suggestion) error {
	actions, err := marshalActions(s.RecommendedAction)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO suggestions (id, store_id, analysis_id, category, title, description,
			priority, recommended_action, status, was_successful, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.q.ExecContext(ctx, query,
		s.ID, s.StoreID, s.AnalysisID, s.Category, s.Title, s.Description,
		s.Priority, actions, s.Status, s.WasSuccessful, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create suggestion",
			slog.String("store_id", s.StoreID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create suggestion: %w", err)
	}
	return nil
}

// GetByID retrieves a suggestion by ID
func (r *PostgresSuggestionRepository) GetByID(ctx context.Context, id string) (*domain.Suggestion, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id)
	return scanSuggestion(row)
}

// GetForUpdate retrieves a suggestion and locks its row
func (r *PostgresSuggestionRepository) GetForUpdate(ctx context.Context, id string) (*domain.Suggestion, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1 FOR UPDATE`, id)
	return scanSuggestion(row)
}

// Update persists the mutable fields
func (r *PostgresSuggestionRepository) Update(ctx context.Context, s *domain.Suggestion) error {
	query := `
		UPDATE suggestions
		SET status = $2, was_successful = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, s.ID, s.Status, s.WasSuccessful, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	return checkAffected(result)
}

// ListByStore returns a store's suggestions newest first
func (r *PostgresSuggestionRepository) ListByStore(ctx context.Context, storeID string, f domain.SuggestionFilter) ([]*domain.Suggestion, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + suggestionColumns + ` FROM suggestions WHERE store_id = $1`)
	args := []any{storeID}

	if f.Status != "" {
		args = append(args, f.Status)
		fmt.Fprintf(&b, ` AND status = $%d`, len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		fmt.Fprintf(&b, ` AND category = $%d`, len(args))
	}
	b.WriteString(` ORDER BY created_at DESC, seq`)

	rows, err := r.q.QueryContext(ctx, b.String(), args...)
	if err != nil {
		r.logger.Error("failed to list suggestions",
			slog.String("store_id", storeID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSuggestion(sc scanner) (*domain.Suggestion, error) {
	s := &domain.Suggestion{}
	var actions []byte

	err := sc.Scan(
		&s.ID, &s.StoreID, &s.AnalysisID, &s.Category, &s.Title, &s.Description,
		&s.Priority, &actions, &s.Status, &s.WasSuccessful, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err = notFound(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan suggestion: %w", err)
	}

	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &s.RecommendedAction); err != nil {
			return nil, fmt.Errorf("failed to decode recommended actions: %w", err)
		}
	}
	return s, nil
}

func marshalActions(a []string) (string, error) {
	if a == nil {
		a = []string{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode recommended actions: %w", err)
	}
	return string(data), nil
}
