// Package extract pulls a fixed-width numeric table out of semi-structured text.
//
// A document mixes prose with whitespace-separated numeric rows. Lines whose
// tokens are all numbers are kept, their values are flattened in document
// order and the flat stream is cut into rows of the schema width.
package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/labkit/internal/domain"
)

// Extract builds a bundle from raw text. The row width is the schema width.
// A stream that does not fill whole rows fails with *domain.IntegrityError.
func Extract(name, text string, schema domain.Schema) (domain.Bundle, error) {
	width := schema.Width()
	if width == 0 {
		return domain.Bundle{}, fmt.Errorf("schema has no columns: %w", domain.ErrInvalidSchema)
	}

	values, err := Flatten(NumericLines(text))
	if err != nil {
		return domain.Bundle{}, err
	}

	rows, err := Reshape(values, width)
	if err != nil {
		return domain.Bundle{}, err
	}

	return domain.Bundle{
		Name: name,
		Table: domain.Table{
			Columns: schema.Names(),
			Rows:    rows,
		},
		Metadata: schema.Metadata(),
	}, nil
}

// NumericLines returns the lines of text whose tokens are all numeric, in order.
// Blank lines, prose and mixed lines are dropped.
func NumericLines(text string) []string {
	var out []string
	for _, line := range splitLines(text) {
		if IsNumericLine(line) {
			out = append(out, line)
		}
	}
	return out
}

// IsNumericLine reports whether line has at least one token and every token is numeric.
func IsNumericLine(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !IsNumericToken(tok) {
			return false
		}
	}
	return true
}

// Flatten parses every token of every line into one ordered stream.
func Flatten(lines []string) ([]float64, error) {
	var values []float64
	for i, line := range lines {
		for _, tok := range strings.Fields(line) {
			v, err := parseToken(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			values = append(values, v)
		}
	}
	return values, nil
}

// Reshape cuts values into consecutive rows of width elements.
func Reshape(values []float64, width int) ([][]float64, error) {
	if width <= 0 {
		return nil, fmt.Errorf("row width %d: %w", width, domain.ErrInvalidSchema)
	}
	if len(values)%width != 0 {
		return nil, domain.NewIntegrityError(len(values), width)
	}

	rows := make([][]float64, 0, len(values)/width)
	for i := 0; i < len(values); i += width {
		row := make([]float64, width)
		copy(row, values[i:i+width])
		rows = append(rows, row)
	}
	return rows, nil
}

// parseToken converts a token accepted by IsNumericToken. Out-of-range values
// saturate to ±Inf or 0 instead of failing.
func parseToken(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return v, nil
		}
		return 0, fmt.Errorf("parse %q: %w", tok, err)
	}
	return v, nil
}

// splitLines splits on \n, \r\n and lone \r.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
