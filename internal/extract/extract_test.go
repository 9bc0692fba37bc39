package extract

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/labkit/internal/domain"
)

func schemaOf(names ...string) domain.Schema {
	cols := make([]domain.Column, len(names))
	for i, n := range names {
		cols[i] = domain.Column{Name: n, Description: "desc " + n}
	}
	return domain.Schema{Columns: cols}
}

func TestIsNumericToken(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"0", true},
		{"12", true},
		{"-2.5", true},
		{"+3", true},
		{".75", true},
		{"5.", true},
		{"1e10", true},
		{"1E-3", true},
		{"-.5e+2", true},
		{"0.00632", true},
		{"", false},
		{"+", false},
		{"-", false},
		{".", false},
		{"-.", false},
		{"e5", false},
		{"1e", false},
		{"1e+", false},
		{"1.2.3", false},
		{"foo", false},
		{"12a", false},
		{"1,000", false},
		{"--1", false},
		{"0x1F", false},
		{"NaN", false},
		{"Inf", false},
	}
	for _, tc := range tests {
		if got := IsNumericToken(tc.tok); got != tc.want {
			t.Errorf("IsNumericToken(%q) = %v, want %v", tc.tok, got, tc.want)
		}
	}
}

func TestIsNumericLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"1e10 -2.5 .75", true},
		{"   396.90   4.98  24.00", true},
		{"12 foo 34", false},
		{"", false},
		{"   \t ", false},
		{"Variables in order:", false},
		{" CRIM     per capita crime rate by town", false},
	}
	for _, tc := range tests {
		if got := IsNumericLine(tc.line); got != tc.want {
			t.Errorf("IsNumericLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestExtract_ProseAndRows(t *testing.T) {
	text := "header prose\n1.0 2.0 3.0\nmore words here\n4.0 5.0 6.0\n"

	b, err := Extract("t", text, schemaOf("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]float64{{1, 2, 3}, {4, 5, 6}}
	if !reflect.DeepEqual(b.Table.Rows, want) {
		t.Errorf("rows = %v, want %v", b.Table.Rows, want)
	}
	if !reflect.DeepEqual(b.Table.Columns, []string{"a", "b", "c"}) {
		t.Errorf("columns = %v", b.Table.Columns)
	}
	if b.Metadata["b"] != "desc b" {
		t.Errorf("metadata[b] = %q", b.Metadata["b"])
	}
	if b.Name != "t" {
		t.Errorf("name = %q", b.Name)
	}
}

func TestExtract_RowsSpanLines(t *testing.T) {
	// Records wrap across physical lines the way the StatLib file does.
	text := "1 2 3 4\n5 6\n7 8 9\n10 11 12\n"

	b, err := Extract("t", text, schemaOf("a", "b", "c", "d", "e", "f"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]float64{{1, 2, 3, 4, 5, 6}, {7, 8, 9, 10, 11, 12}}
	if !reflect.DeepEqual(b.Table.Rows, want) {
		t.Errorf("rows = %v, want %v", b.Table.Rows, want)
	}
}

func TestExtract_IntegrityError(t *testing.T) {
	text := "1 2 3\n4 5\n"

	b, err := Extract("t", text, schemaOf("a", "b", "c"))
	if err == nil {
		t.Fatal("expected integrity error")
	}
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	var ie *domain.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *IntegrityError, got %T", err)
	}
	if ie.Length != 5 || ie.RowWidth != 3 {
		t.Errorf("got length=%d width=%d, want 5 and 3", ie.Length, ie.RowWidth)
	}
	if b.Table.Rows != nil {
		t.Errorf("expected no table, got %v", b.Table.Rows)
	}
}

func TestExtract_NonNumericLinesContributeNothing(t *testing.T) {
	text := "12 foo 34\n1 2\nB 1000(Bk - 0.63)^2\n3 4\n"

	b, err := Extract("t", text, schemaOf("x", "y"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]float64{{1, 2}, {3, 4}}
	if !reflect.DeepEqual(b.Table.Rows, want) {
		t.Errorf("rows = %v, want %v", b.Table.Rows, want)
	}
}

func TestExtract_ScientificAndFractions(t *testing.T) {
	b, err := Extract("t", "1e10 -2.5 .75", schemaOf("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1e10, -2.5, 0.75}
	if !reflect.DeepEqual(b.Table.Rows[0], want) {
		t.Errorf("row = %v, want %v", b.Table.Rows[0], want)
	}
}

func TestExtract_CRLFAndLoneCR(t *testing.T) {
	text := "title\r\n1 2\r\nnote\r3 4\r"

	b, err := Extract("t", text, schemaOf("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]float64{{1, 2}, {3, 4}}
	if !reflect.DeepEqual(b.Table.Rows, want) {
		t.Errorf("rows = %v, want %v", b.Table.Rows, want)
	}
}

func TestExtract_NoNumericLines(t *testing.T) {
	b, err := Extract("t", "only prose here\n\n", schemaOf("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Table.Len() != 0 {
		t.Errorf("expected empty table, got %d rows", b.Table.Len())
	}
}

func TestExtract_EmptySchema(t *testing.T) {
	_, err := Extract("t", "1 2 3", domain.Schema{})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	text := "prose\n0.1 0.2 0.3 0.4\n-1e-3 2 3 4\n"
	s := schemaOf("a", "b", "c", "d")

	first, err := Extract("t", text, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Extract("t", text, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.Table.Rows {
		for j := range first.Table.Rows[i] {
			a := math.Float64bits(first.Table.Rows[i][j])
			b := math.Float64bits(second.Table.Rows[i][j])
			if a != b {
				t.Errorf("cell [%d][%d] differs: %x vs %x", i, j, a, b)
			}
		}
	}
}

func TestExtract_OverflowSaturates(t *testing.T) {
	b, err := Extract("t", "1e999 -1e999", schemaOf("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsInf(b.Table.Rows[0][0], 1) || !math.IsInf(b.Table.Rows[0][1], -1) {
		t.Errorf("expected +Inf and -Inf, got %v", b.Table.Rows[0])
	}
}

func TestReshape_ContiguousSlices(t *testing.T) {
	for width := 1; width <= 5; width++ {
		values := make([]float64, width*7)
		for i := range values {
			values[i] = float64(i)
		}

		rows, err := Reshape(values, width)
		if err != nil {
			t.Fatalf("width %d: unexpected error: %v", width, err)
		}
		if len(rows) != 7 {
			t.Fatalf("width %d: expected 7 rows, got %d", width, len(rows))
		}
		for r, row := range rows {
			if len(row) != width {
				t.Fatalf("width %d: row %d has %d fields", width, r, len(row))
			}
			if !reflect.DeepEqual(row, values[r*width:(r+1)*width]) {
				t.Errorf("width %d: row %d = %v", width, r, row)
			}
		}
	}
}

func TestReshape_RowsDoNotAlias(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	rows, err := Reshape(values, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values[0] = 99
	if rows[0][0] != 1 {
		t.Errorf("row aliases input slice: %v", rows[0])
	}
}

func TestReshape_InvalidWidth(t *testing.T) {
	if _, err := Reshape([]float64{1}, 0); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestFlatten_Order(t *testing.T) {
	got, err := Flatten([]string{"3 1", " 2\t5 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{3, 1, 2, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
