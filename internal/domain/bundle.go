package domain

// Table is a fixed-width numeric table. Every row has len(Columns) values.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of all values of the named column.
func (t Table) Column(name string) ([]float64, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Value returns a single cell.
func (t Table) Value(row int, name string) (float64, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return 0, false
	}
	return t.Rows[row][idx], true
}

// Bundle pairs a table with its column metadata. It is the unit of persistence.
type Bundle struct {
	Name     string            `json:"name"`
	Table    Table             `json:"data"`
	Metadata map[string]string `json:"metadata"`
}
