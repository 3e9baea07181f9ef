package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// PostgresTaskRepository implements domain.TaskRepository.
// A NULL step_index marks a general task.
type PostgresTaskRepository struct {
	q      dbtx
	logger *slog.Logger
}

const taskColumns = `id, suggestion_id, step_index, title, description, status, due_date,
	completed_at, completed_by, created_by, created_at, updated_at`

// Create inserts a task
func (r *PostgresTaskRepository) Create(ctx context.Context, t *domain.Task) error {
	query := `
		INSERT INTO suggestion_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		t.ID, t.SuggestionID, t.Scope.Index(), t.Title, t.Description, t.Status, t.DueDate,
		t.CompletedAt, t.CompletedBy, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create task",
			slog.String("suggestion_id", t.SuggestionID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM suggestion_tasks WHERE id = $1`, id)
	return scanTask(row)
}

// Update persists all mutable fields
func (r *PostgresTaskRepository) Update(ctx context.Context, t *domain.Task) error {
	query := `
		UPDATE suggestion_tasks
		SET step_index = $2, title = $3, description = $4, status = $5, due_date = $6,
			completed_at = $7, completed_by = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		t.ID, t.Scope.Index(), t.Title, t.Description, t.Status, t.DueDate,
		t.CompletedAt, t.CompletedBy, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a task
func (r *PostgresTaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM suggestion_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return checkAffected(result)
}

// ListBySuggestion returns tasks in creation order
func (r *PostgresTaskRepository) ListBySuggestion(ctx context.Context, suggestionID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM suggestion_tasks
		WHERE suggestion_id = $1
		ORDER BY seq`

	rows, err := r.q.QueryContext(ctx, query, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(sc scanner) (*domain.Task, error) {
	t := &domain.Task{}
	var stepIndex *int

	err := sc.Scan(
		&t.ID, &t.SuggestionID, &stepIndex, &t.Title, &t.Description, &t.Status, &t.DueDate,
		&t.CompletedAt, &t.CompletedBy, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err = notFound(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	t.Scope = domain.TaskScopeFrom(stepIndex)
	return t, nil
}
