package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

// The profiles table mirrors what the platform trigger writes on sign-up;
// the service only inserts fallback rows into it. Attachments are fully
// owned by the service.
var steps = []migrationStep{
	{
		Name: "create_table_profiles",
		SQL: `CREATE TABLE IF NOT EXISTS profiles (
  id         UUID        PRIMARY KEY,
  email      TEXT        NOT NULL,
  full_name  TEXT        NOT NULL DEFAULT '',
  avatar_url TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_profiles_email",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles (email);`,
	},
	{
		Name: "create_table_attachments",
		SQL: `CREATE TABLE IF NOT EXISTS attachments (
  id           UUID        PRIMARY KEY,
  user_id      UUID        NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
  filename     TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  content_type TEXT        NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_attachments_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_attachments_user_id ON attachments (user_id);`,
	},
	{
		Name: "create_index_attachments_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_attachments_created_at ON attachments (created_at);`,
	},
}

// EnsureMigrated checks if the 'attachments' table exists and runs the
// migration steps if it doesn't. Each step is idempotent.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	mlog := log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	mlog.Info().Msg("migration check starting")

	var exists bool
	query := "SELECT to_regclass('public.attachments') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		mlog.Error().Err(err).Dur("duration", time.Since(start)).Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		mlog.Info().Dur("duration", time.Since(start)).Msg("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			mlog.Error().Err(err).
				Str("migration_step", step.Name).
				Dur("duration", time.Since(start)).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		mlog.Info().
			Str("migration_step", step.Name).
			Dur("step_duration", time.Since(stepStart)).
			Msg("migration step applied")
	}

	mlog.Info().Dur("duration", time.Since(start)).Msg("migration completed")
	return nil
}
