package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/gosimple/slug"
)

// golang-migrate sorts versions numerically; six digits keep ls order too
const versionDigits = 6

var scaffold = template.Must(template.New("migration").Parse(
	`-- {{.Name}}{{if .Rollback}} (rollback){{end}}
-- Created: {{.Created}}
{{- if .Description}}
-- {{.Description}}
{{- end}}
{{- if not .Rollback}}

-- Record tables keep a tenant_id UUID column and the
-- ledger_notify_records_changed trigger so cached snapshots are
-- invalidated on write.
{{- end}}

`))

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// MigrationPair is a scaffolded up/down file pair
type MigrationPair struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// Scaffold writes the next numbered up/down pair into dir, creating dir
// if needed. Existing files are never overwritten.
func Scaffold(dir, name, description string) (*MigrationPair, error) {
	words := slugify(name)
	if words == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations dir: %w", err)
	}
	existing, err := List(os.DirFS(dir))
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%0*d", versionDigits, NextVersion(existing))
	base := filepath.Join(dir, version+"_"+words)
	pair := &MigrationPair{
		Version:  version,
		Name:     name,
		UpPath:   base + ".up.sql",
		DownPath: base + ".down.sql",
	}

	created := time.Now().UTC().Format(time.RFC3339)
	if err := writeScaffold(pair.UpPath, name, description, created, false); err != nil {
		return nil, err
	}
	if err := writeScaffold(pair.DownPath, name, "", created, true); err != nil {
		_ = os.Remove(pair.UpPath)
		return nil, err
	}
	return pair, nil
}

func writeScaffold(file, name, description, created string, rollback bool) error {
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", file, err)
	}
	defer f.Close()

	return scaffold.Execute(f, map[string]any{
		"Name":        name,
		"Description": description,
		"Created":     created,
		"Rollback":    rollback,
	})
}

// slugify lowercases name and joins its alphanumeric runs with underscores
// slugify transliterates name to ASCII and joins its words with underscores
func slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(slug.Make(name), "_"), "_")
}

// List returns the sorted base names of the up migrations in fsys. A
// missing directory has no migrations.
func List(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := fs.Stat(fsys, m); err != nil || info.IsDir() {
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("stat %s: %w", m, err)
			}
			continue
		}
		names = append(names, strings.TrimSuffix(path.Base(m), ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}

// NextVersion returns one past the highest numeric version prefix
func NextVersion(names []string) int {
	next := 1
	for _, n := range names {
		prefix, _, _ := strings.Cut(n, "_")
		if v, err := strconv.Atoi(prefix); err == nil && v >= next {
			next = v + 1
		}
	}
	return next
}
