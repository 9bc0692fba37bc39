package domain

// Column is a named table field with a human-readable description.
type Column struct {
	Name        string
	Description string
}

// Schema is the fixed, ordered column layout of a dataset. It is authored by hand,
// never derived from the data.
type Schema struct {
	Columns []Column
}

// Width returns the number of fields per row.
func (s Schema) Width() int {
	return len(s.Columns)
}

// Names returns column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Metadata returns the column name to description mapping.
func (s Schema) Metadata() map[string]string {
	m := make(map[string]string, len(s.Columns))
	for _, c := range s.Columns {
		m[c.Name] = c.Description
	}
	return m
}
