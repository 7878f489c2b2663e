package audit

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

const migrationsLogPrefix = "audit:migrations"

// Migrations holds the audit schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// LoadMigrations reads all .sql files from dir in fsys, sorted by name, and returns their contents.
func LoadMigrations(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, name, err)
		}
		out = append(out, string(data))
	}
	return out, nil
}
