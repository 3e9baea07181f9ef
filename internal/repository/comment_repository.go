package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// PostgresCommentRepository implements domain.CommentRepository.
// A NULL step_id marks a general comment.
type PostgresCommentRepository struct {
	q      dbtx
	logger *slog.Logger
}

const commentColumns = `id, suggestion_id, step_id, user_id, content, created_at`

// Create inserts a comment
func (r *PostgresCommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	query := `
		INSERT INTO suggestion_comments (` + commentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query, c.ID, c.SuggestionID, c.Scope.Ref(), c.UserID, c.Content, c.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create comment",
			slog.String("suggestion_id", c.SuggestionID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by ID
func (r *PostgresCommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM suggestion_comments WHERE id = $1`, id)
	return scanComment(row)
}

// Delete removes a comment
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM suggestion_comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return checkAffected(result)
}

// ListBySuggestion returns comments oldest first
func (r *PostgresCommentRepository) ListBySuggestion(ctx context.Context, suggestionID string) ([]*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM suggestion_comments
		WHERE suggestion_id = $1
		ORDER BY created_at, seq`

	rows, err := r.q.QueryContext(ctx, query, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComment(sc scanner) (*domain.Comment, error) {
	c := &domain.Comment{}
	var stepID *string

	if err := sc.Scan(&c.ID, &c.SuggestionID, &stepID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
		if err = notFound(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	c.Scope = domain.CommentScopeFrom(stepID)
	return c, nil
}
