package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/labkit/internal/domain"
)

// Parquet key/value metadata entries. Leaf order in a parquet group is
// alphabetical, so the table's column order travels separately.
const (
	columnsKey  = "labkit.columns"
	metadataKey = "labkit.metadata"
)

const readBatch = 1000

// ParquetStore keeps each bundle as <dir>/<name>_dataset.parquet with one DOUBLE column per table column.
type ParquetStore struct {
	dir string
}

// NewParquetStore creates a parquet sink rooted at dir.
func NewParquetStore(dir string) *ParquetStore {
	return &ParquetStore{dir: dir}
}

// Driver returns the sink name.
func (s *ParquetStore) Driver() string { return DriverParquet }

// Path returns the file a bundle is written to.
func (s *ParquetStore) Path(name string) string {
	return filepath.Join(s.dir, fileName(name, "parquet"))
}

// Save writes the bundle, replacing any previous file.
func (s *ParquetStore) Save(ctx context.Context, b domain.Bundle) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %s: %w", b.Name, err)
	}
	if err := validate(b); err != nil {
		return err
	}

	cols := b.Table.Columns
	group := make(parquet.Group, len(cols))
	for _, c := range cols {
		group[c] = parquet.Leaf(parquet.DoubleType)
	}
	schema := parquet.NewSchema(b.Name, group)

	leaf := make([]int, len(cols))
	for i, c := range cols {
		lc, ok := schema.Lookup(c)
		if !ok {
			return fmt.Errorf("column %s missing from parquet schema: %w", c, domain.ErrInvalidSchema)
		}
		leaf[i] = lc.ColumnIndex
	}

	colsJSON, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}
	metaJSON, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	rows := make([]parquet.Row, len(b.Table.Rows))
	for r, values := range b.Table.Rows {
		row := make(parquet.Row, len(cols))
		for i, v := range values {
			row[leaf[i]] = parquet.ValueOf(v).Level(0, 0, leaf[i])
		}
		rows[r] = row
	}

	return writeAtomic(s.Path(b.Name), func(f *os.File) error {
		w := parquet.NewWriter(f, schema,
			parquet.KeyValueMetadata(columnsKey, string(colsJSON)),
			parquet.KeyValueMetadata(metadataKey, string(metaJSON)),
		)
		if _, err := w.WriteRows(rows); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close parquet writer: %w", err)
		}
		return nil
	})
}

// Load reads a bundle back. A missing file returns domain.ErrNotFound.
func (s *ParquetStore) Load(ctx context.Context, name string) (domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return domain.Bundle{}, fmt.Errorf("load %s: %w", name, err)
	}

	path := s.Path(name)
	if err := statExisting(path); err != nil {
		return domain.Bundle{}, err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("open parquet: %w", err)
	}

	var cols []string
	raw, ok := pf.Lookup(columnsKey)
	if !ok {
		return domain.Bundle{}, fmt.Errorf("%s: no %s entry: %w", path, columnsKey, domain.ErrInvalidSchema)
	}
	if err := json.Unmarshal([]byte(raw), &cols); err != nil {
		return domain.Bundle{}, fmt.Errorf("parse %s: %w", columnsKey, err)
	}

	meta := map[string]string{}
	if raw, ok := pf.Lookup(metadataKey); ok {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return domain.Bundle{}, fmt.Errorf("parse %s: %w", metadataKey, err)
		}
	}

	pos, err := resolveColumns(pf, cols)
	if err != nil {
		return domain.Bundle{}, err
	}

	table := domain.Table{Columns: cols, Rows: make([][]float64, 0, pf.NumRows())}
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, pos, len(cols), &table); err != nil {
			return domain.Bundle{}, err
		}
	}

	return domain.Bundle{Name: name, Table: table, Metadata: meta}, nil
}

// resolveColumns maps leaf column indexes to table positions.
func resolveColumns(pf *parquet.File, cols []string) (map[int]int, error) {
	byName := make(map[string]int, len(cols))
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		byName[path[0]] = i
	}

	pos := make(map[int]int, len(cols))
	for i, c := range cols {
		leaf, ok := byName[c]
		if !ok {
			return nil, fmt.Errorf("column %s not found in parquet schema: %w", c, domain.ErrInvalidSchema)
		}
		pos[leaf] = i
	}
	return pos, nil
}

func readRowGroup(rg parquet.RowGroup, pos map[int]int, width int, table *domain.Table) error {
	rows := parquet.NewRowGroupReader(rg)
	defer func() { _ = rows.Close() }()

	buf := make([]parquet.Row, readBatch)
	for {
		n, readErr := rows.ReadRows(buf)
		for i := 0; i < n; i++ {
			values := make([]float64, width)
			for _, v := range buf[i] {
				if p, ok := pos[v.Column()]; ok {
					values[p] = v.Double()
				}
			}
			table.Rows = append(table.Rows, values)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}
