package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const versionLayout = "20060102150405"

var (
	unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

	sqlTemplate = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.Name}}
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert {{.Name}}
-- +goose StatementEnd
`))
)

// CreateSQLMigration writes an empty Up/Down pair to dir as <version>_<name>.sql and
// returns its path. The version is the current UTC timestamp, bumped past the newest
// file already in dir so two quick calls never collide.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	version, err := nextVersion(dir, time.Now().UTC())
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if err := sqlTemplate.Execute(f, struct{ Name string }{slug}); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("render migration %q: %w", path, err)
	}
	return path, f.Close()
}

func nextVersion(dir string, now time.Time) (int64, error) {
	version, err := strconv.ParseInt(now.Format(versionLayout), 10, 64)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read %q: %w", dir, err)
	}
	for _, entry := range entries {
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok || entry.IsDir() {
			continue
		}
		if existing, err := strconv.ParseInt(prefix, 10, 64); err == nil && existing >= version {
			version = existing + 1
		}
	}
	return version, nil
}
