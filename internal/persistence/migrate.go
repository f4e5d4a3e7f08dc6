package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

const migrationLockID int64 = 64250423391944124

//go:embed migrations/*.up.sql
var migrations embed.FS

// MigratePostgres applies every embedded migration in file name order. The
// scripts are idempotent, so each startup replays all of them.
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	// Concurrent servers and test packages migrate the same database.
	if _, err := db.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	for _, name := range files {
		script, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationFiles() ([]string, error) {
	files, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migrations embedded")
	}
	sort.Strings(files)
	return files, nil
}
