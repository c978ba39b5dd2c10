package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks the migrations in dir on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return FromDir(dir).Validate()
}

// Validate checks every migration in the source: versioned filenames with
// no duplicate versions, an Up section before its Down section, and
// balanced StatementBegin/StatementEnd blocks in each.
func (s Source) Validate() error {
	if s.fsys == nil {
		return fmt.Errorf("migration source is required")
	}
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", s, err)
	}

	seen := map[string]string{}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(s.fsys, path.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func checkAnnotations(sql string) error {
	up := strings.Index(sql, annotationUp)
	down := strings.Index(sql, annotationDown)
	switch {
	case up < 0:
		return fmt.Errorf("missing %q", annotationUp)
	case down < 0:
		return fmt.Errorf("missing %q", annotationDown)
	case down < up:
		return fmt.Errorf("%q appears before %q", annotationDown, annotationUp)
	}

	depth := 0
	for _, line := range strings.Split(sql, "\n") {
		switch strings.TrimSpace(line) {
		case annotationBegin:
			depth++
			if depth > 1 {
				return fmt.Errorf("nested %q", annotationBegin)
			}
		case annotationEnd:
			depth--
			if depth < 0 {
				return fmt.Errorf("%q without %q", annotationEnd, annotationBegin)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unterminated %q", annotationBegin)
	}
	return nil
}

// dirExists is used by create to decide between mkdir and reuse.
func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
