// Package migrate applies the storefront schema with goose. The SQL files are
// compiled into every binary, so a service can migrate without the source
// tree on disk.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"

	"github.com/printdock/printdock-backend/pkg/logger"
)

// SourceDir is where new migrations are written, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations shipped with the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// RunnerParams configure a Runner. Dialect defaults to postgres, which also
// takes a session advisory lock so the api, publisher and cron binaries can
// all auto-migrate on boot without racing.
type RunnerParams struct {
	DB      *sql.DB
	FS      fs.FS
	Dialect goose.Dialect
	Logger  *logger.Logger
}

// Runner wraps a goose provider and logs each applied migration. It does not
// own the *sql.DB it was given.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(params RunnerParams) (*Runner, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	fsys := params.FS
	if fsys == nil {
		fsys = Embedded()
	}
	dialect := params.Dialect
	if dialect == "" {
		dialect = goose.DialectPostgres
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	opts := []goose.ProviderOption{goose.WithVerbose(false)}
	if dialect == goose.DialectPostgres {
		locker, err := lock.NewPostgresSessionLocker()
		if err != nil {
			return nil, fmt.Errorf("migration lock: %w", err)
		}
		opts = append(opts, goose.WithSessionLocker(locker))
	}

	provider, err := goose.NewProvider(dialect, params.DB, fsys, opts...)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Up applies every pending migration and returns how many ran.
func (r *Runner) Up(ctx context.Context) (int, error) {
	results, err := r.provider.Up(ctx)
	r.logResults(ctx, results)
	if err != nil {
		return len(results), fmt.Errorf("goose up: %w", err)
	}
	return len(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	if result != nil {
		r.logResults(ctx, []*goose.MigrationResult{result})
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// To moves the schema up or down until version is the newest applied one.
func (r *Runner) To(ctx context.Context, version int64) error {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil
	case current < version:
		results, err = r.provider.UpTo(ctx, version)
	default:
		results, err = r.provider.DownTo(ctx, version)
	}
	r.logResults(ctx, results)
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

// Version reports the newest applied migration, 0 on an empty database.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return r.provider.Status(ctx)
}

func (r *Runner) logResults(ctx context.Context, results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     res.Source.Version,
			"file":        path.Base(res.Source.Path),
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		entryCtx := r.logg.WithFields(ctx, fields)
		if res.Error != nil {
			r.logg.Error(entryCtx, "migrate.failed", res.Error)
			continue
		}
		r.logg.Info(entryCtx, "migrate.applied")
	}
}
