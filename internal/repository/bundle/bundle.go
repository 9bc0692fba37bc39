// Package bundle persists dataset bundles. Every sink writes the whole bundle
// (table and column metadata) as one artifact and reads it back unchanged.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kailas-cloud/labkit/internal/domain"
)

// Driver names.
const (
	DriverParquet = "parquet"
	DriverXLSX    = "xlsx"
	DriverValkey  = "valkey"
	DriverRedis   = "redis"
)

// fileName returns "<name>_dataset.<ext>".
func fileName(name, ext string) string {
	return name + "_dataset." + ext
}

// validate rejects bundles that cannot be written as a fixed-width table.
func validate(b domain.Bundle) error {
	if b.Name == "" {
		return fmt.Errorf("bundle name is required: %w", domain.ErrInvalidSchema)
	}
	width := len(b.Table.Columns)
	if width == 0 {
		return fmt.Errorf("bundle %s has no columns: %w", b.Name, domain.ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, width)
	for _, c := range b.Table.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("bundle %s: duplicate column %q: %w", b.Name, c, domain.ErrInvalidSchema)
		}
		seen[c] = struct{}{}
	}
	for i, row := range b.Table.Rows {
		if len(row) != width {
			return fmt.Errorf("bundle %s: row %d has %d values, want %d: %w",
				b.Name, i, len(row), width, domain.ErrInvalidSchema)
		}
	}
	return nil
}

// metadataOrder lists metadata keys in column order, then any extra keys sorted.
func metadataOrder(columns []string, meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	inTable := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := meta[c]; ok {
			keys = append(keys, c)
		}
		inTable[c] = struct{}{}
	}
	var extra []string
	for k := range meta {
		if _, ok := inTable[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// writeAtomic creates dir, hands a temp file to write, then renames it over path.
func writeAtomic(path string, write func(f *os.File) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(filepath.Clean(tmp))
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = write(f); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// statExisting maps a missing file to domain.ErrNotFound.
func statExisting(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}
