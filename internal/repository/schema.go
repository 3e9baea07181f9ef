package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const inFlightIndex = "uniq_analyses_user_in_flight"

// schema is idempotent. At most one pending or processing analysis per user
// is enforced by the partial unique index.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
		active_store_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		store_id TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		suggestions JSONB NOT NULL DEFAULT '[]',
		alerts JSONB,
		opportunities JSONB,
		credits_used INTEGER NOT NULL DEFAULT 0,
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + inFlightIndex + `
		ON analyses (user_id) WHERE status IN ('pending', 'processing')`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_store_created ON analyses (store_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS suggestions (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		analysis_id TEXT REFERENCES analyses(id) ON DELETE SET NULL,
		category TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT '',
		recommended_action JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed', 'ignored')),
		was_successful BOOLEAN,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		seq BIGSERIAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_suggestions_store ON suggestions (store_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS suggestion_steps (
		id TEXT PRIMARY KEY,
		suggestion_id TEXT NOT NULL REFERENCES suggestions(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		is_custom BOOLEAN NOT NULL DEFAULT false,
		status TEXT NOT NULL CHECK (status IN ('pending', 'completed')),
		completed_at TIMESTAMPTZ,
		completed_by TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		seq BIGSERIAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_steps_suggestion ON suggestion_steps (suggestion_id, position, seq)`,
	`CREATE TABLE IF NOT EXISTS suggestion_tasks (
		id TEXT PRIMARY KEY,
		suggestion_id TEXT NOT NULL REFERENCES suggestions(id) ON DELETE CASCADE,
		step_index INTEGER,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed')),
		due_date TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		completed_by TEXT,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		seq BIGSERIAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_suggestion ON suggestion_tasks (suggestion_id, seq)`,
	`CREATE TABLE IF NOT EXISTS suggestion_comments (
		id TEXT PRIMARY KEY,
		suggestion_id TEXT NOT NULL REFERENCES suggestions(id) ON DELETE CASCADE,
		step_id TEXT REFERENCES suggestion_steps(id) ON DELETE SET NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		seq BIGSERIAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_suggestion ON suggestion_comments (suggestion_id, created_at, seq)`,
}

// EnsureSchema creates tables and indexes that do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
