package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
)

type Migration struct {
	ID          string
	Description string
	Up          func(context.Context, pgx.Tx) error
}

var migrations = []Migration{
	{
		ID:          "001_practice_sessions",
		Description: "Create practice_sessions table and user/created index",
		Up: func(ctx context.Context, tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `
				CREATE TABLE IF NOT EXISTS practice_sessions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					audio_path TEXT NOT NULL,
					transcription TEXT NOT NULL DEFAULT '',
					word_count INTEGER NOT NULL DEFAULT 0,
					speaking_rate_wpm DOUBLE PRECISION NOT NULL DEFAULT 0,
					duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
					average_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
					volume_variation DOUBLE PRECISION NOT NULL DEFAULT 0,
					silence_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
					score DOUBLE PRECISION NOT NULL DEFAULT 0,
					ai_feedback TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);

				CREATE INDEX IF NOT EXISTS practice_sessions_user_created_idx
					ON practice_sessions (user_id, created_at DESC);
			`)
			return err
		},
	},
}

// Migrate applies pending migrations, asking for confirmation before each.
func (s *Store) Migrate(ctx context.Context, logger *log.Logger) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migration_history (
			id TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create migration_history table: %w", err)
	}

	for _, migration := range migrations {
		var one int
		err := s.pool.QueryRow(ctx,
			"SELECT 1 FROM migration_history WHERE id = $1", migration.ID,
		).Scan(&one)
		if err == nil {
			logger.Info("Skipping migration (already applied)", "id", migration.ID)
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check migration status: %w", err)
		}

		var confirm bool
		err = huh.NewConfirm().
			Title(fmt.Sprintf("New migration found: %s", migration.ID)).
			Description(migration.Description).
			Value(&confirm).
			Run()
		if err != nil {
			return fmt.Errorf("get user confirmation: %w", err)
		}

		if !confirm {
			logger.Info("Migration skipped", "id", migration.ID)
			continue
		}

		logger.Info("Applying migration", "id", migration.ID)

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if err := migration.Up(ctx, tx); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("apply migration %s: %w", migration.ID, err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO migration_history (id) VALUES ($1)", migration.ID)
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("record migration %s: %w", migration.ID, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", migration.ID, err)
		}

		logger.Info("Successfully applied migration", "id", migration.ID)
	}

	logger.Info("Migration process completed")
	return nil
}
