package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are authored. Binaries read the embedded copy.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migration files to run: the embedded set when dir is empty,
// otherwise the files on disk under dir.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Runner applies goose migrations against a postgres database.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration and returns the versions it ran.
func (r *Runner) Up(ctx context.Context) ([]int64, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return appliedVersions(results), fmt.Errorf("goose up: %w", err)
	}
	return appliedVersions(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) (int64, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose down: %w", err)
	}
	if result == nil || result.Source == nil {
		return 0, nil
	}
	return result.Source.Version, nil
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	v, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}

// Status lists every known migration with whether it has been applied.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, st := range statuses {
		if st == nil || st.Source == nil {
			continue
		}
		out = append(out, MigrationStatus{
			Version:   st.Source.Version,
			Path:      st.Source.Path,
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) error {
	current, err := r.Version(ctx)
	if err != nil {
		return err
	}
	switch {
	case current == target:
		return nil
	case current < target:
		if _, err := r.provider.UpTo(ctx, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if _, err := r.provider.DownTo(ctx, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

func appliedVersions(results []*goose.MigrationResult) []int64 {
	versions := make([]int64, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil || res.Error != nil {
			continue
		}
		versions = append(versions, res.Source.Version)
	}
	return versions
}
