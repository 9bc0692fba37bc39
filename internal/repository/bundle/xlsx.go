package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kailas-cloud/labkit/internal/domain"
)

const (
	dataSheet     = "data"
	metadataSheet = "metadata"
	defaultSheet  = "Sheet1"
)

// XLSXStore keeps each bundle as a workbook: sheet "data" holds a header row and
// the numeric rows, sheet "metadata" holds column/description pairs.
type XLSXStore struct {
	dir string
}

// NewXLSXStore creates a workbook sink rooted at dir.
func NewXLSXStore(dir string) *XLSXStore {
	return &XLSXStore{dir: dir}
}

// Driver returns the sink name.
func (s *XLSXStore) Driver() string { return DriverXLSX }

// Path returns the workbook a bundle is written to.
func (s *XLSXStore) Path(name string) string {
	return filepath.Join(s.dir, fileName(name, "xlsx"))
}

// Save writes the bundle, replacing any previous workbook.
func (s *XLSXStore) Save(ctx context.Context, b domain.Bundle) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %s: %w", b.Name, err)
	}
	if err := validate(b); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(defaultSheet, dataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(metadataSheet); err != nil {
		return fmt.Errorf("create metadata sheet: %w", err)
	}

	header := make([]any, len(b.Table.Columns))
	for i, c := range b.Table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, values := range b.Table.Rows {
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}

	metaRows := [][]any{{"column", "description"}}
	for _, k := range metadataOrder(b.Table.Columns, b.Metadata) {
		metaRows = append(metaRows, []any{k, b.Metadata[k]})
	}
	for r := range metaRows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(metadataSheet, cell, &metaRows[r]); err != nil {
			return fmt.Errorf("write metadata row %d: %w", r, err)
		}
	}

	_ = f.SetColWidth(metadataSheet, "A", "A", 12)
	_ = f.SetColWidth(metadataSheet, "B", "B", 80)

	return writeAtomic(s.Path(b.Name), func(out *os.File) error {
		if _, err := f.WriteTo(out); err != nil {
			return fmt.Errorf("xlsx write: %w", err)
		}
		return nil
	})
}

// Load reads a workbook back. A missing file returns domain.ErrNotFound.
func (s *XLSXStore) Load(ctx context.Context, name string) (domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return domain.Bundle{}, fmt.Errorf("load %s: %w", name, err)
	}

	path := s.Path(name)
	if err := statExisting(path); err != nil {
		return domain.Bundle{}, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(dataSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("read %s sheet: %w", dataSheet, err)
	}
	if len(rows) == 0 {
		return domain.Bundle{}, fmt.Errorf("%s: empty %s sheet: %w", path, dataSheet, domain.ErrInvalidSchema)
	}

	cols := rows[0]
	table := domain.Table{Columns: cols, Rows: make([][]float64, 0, len(rows)-1)}
	for r, cells := range rows[1:] {
		if len(cells) != len(cols) {
			return domain.Bundle{}, fmt.Errorf("%s: row %d has %d cells, want %d: %w",
				path, r+2, len(cells), len(cols), domain.ErrInvalidSchema)
		}
		values := make([]float64, len(cols))
		for i, cell := range cells {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return domain.Bundle{}, fmt.Errorf("%s: row %d column %s: %w", path, r+2, cols[i], err)
			}
			values[i] = v
		}
		table.Rows = append(table.Rows, values)
	}

	meta := map[string]string{}
	metaRows, err := f.GetRows(metadataSheet)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("read %s sheet: %w", metadataSheet, err)
	}
	for _, cells := range metaRows[min(1, len(metaRows)):] {
		switch len(cells) {
		case 0:
		case 1:
			meta[cells[0]] = ""
		default:
			meta[cells[0]] = cells[1]
		}
	}

	return domain.Bundle{Name: name, Table: table, Metadata: meta}, nil
}
