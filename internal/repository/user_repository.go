package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// PostgresCreditLedger implements domain.CreditLedger on the users table
type PostgresCreditLedger struct {
	q      dbtx
	logger *slog.Logger
}

// Balance returns the current credit balance
func (r *PostgresCreditLedger) Balance(ctx context.Context, userID string) (int, error) {
	var credits int
	err := r.q.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err != nil {
		return 0, notFound(err)
	}
	return credits, nil
}

// Lock reads the balance with a row lock held until the transaction ends
func (r *PostgresCreditLedger) Lock(ctx context.Context, userID string) (int, error) {
	var credits int
	err := r.q.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&credits)
	if err != nil {
		return 0, notFound(err)
	}
	return credits, nil
}

// Debit subtracts amount only when the balance covers it
func (r *PostgresCreditLedger) Debit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Validationf("debit amount must be positive")
	}

	query := `
		UPDATE users
		SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND credits >= $2
		RETURNING credits
	`

	var credits int
	if err := r.q.QueryRowContext(ctx, query, userID, amount).Scan(&credits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the user is missing or the guard failed.
			if _, balErr := r.Balance(ctx, userID); balErr != nil {
				return 0, balErr
			}
			return 0, domain.ErrInsufficientCredits
		}
		r.logger.Error("failed to debit credits",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}

	return credits, nil
}

// Credit adds amount to the balance
func (r *PostgresCreditLedger) Credit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Validationf("credit amount must be positive")
	}

	query := `
		UPDATE users
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1
		RETURNING credits
	`

	var credits int
	if err := r.q.QueryRowContext(ctx, query, userID, amount).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to credit user: %w", notFound(err))
	}
	return credits, nil
}

// Ensure inserts the user with a zero balance if absent
func (r *PostgresCreditLedger) Ensure(ctx context.Context, userID, activeStoreID string) error {
	query := `
		INSERT INTO users (id, active_store_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.q.ExecContext(ctx, query, userID, activeStoreID); err != nil {
		r.logger.Error("failed to ensure user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}
