package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// File is one migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// Scan lists the .sql migrations in fsys ordered by version. Misnamed files
// and repeated versions are errors.
func Scan(fsys fs.FS) ([]File, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	files := make([]File, 0, len(entries))
	seen := map[int64]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", e.Name(), err)
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, e.Name())
		}
		seen[version] = e.Name()
		files = append(files, File{Version: version, Name: m[2], Path: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// Validate checks names and that every file has an Up section followed by a
// Down section. An empty directory is valid.
func Validate(fsys fs.FS) error {
	files, err := Scan(fsys)
	if err != nil {
		return err
	}
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f.Path)
		if err != nil {
			return fmt.Errorf("read %q: %w", f.Path, err)
		}
		txt := string(b)
		up := strings.Index(txt, "-- +goose Up")
		down := strings.Index(txt, "-- +goose Down")
		switch {
		case up < 0:
			return fmt.Errorf("migration %q missing \"-- +goose Up\"", f.Path)
		case down < 0:
			return fmt.Errorf("migration %q missing \"-- +goose Down\"", f.Path)
		case down < up:
			return fmt.Errorf("migration %q has Down before Up", f.Path)
		}
	}
	return nil
}
