package bundle

import (
	"context"
	"sync"

	"github.com/kailas-cloud/labkit/internal/db"
	"github.com/kailas-cloud/labkit/internal/domain"
)

// testBundle uses a column order that differs from alphabetical order.
func testBundle() domain.Bundle {
	return domain.Bundle{
		Name: "sample",
		Table: domain.Table{
			Columns: []string{"ZN", "CRIM", "AGE"},
			Rows: [][]float64{
				{18, 0.00632, 65.2},
				{0, 0.02731, 78.9},
				{12.5, -1e-7, 100},
			},
		},
		Metadata: map[string]string{
			"ZN":   "proportion of residential land zoned for lots over 25,000 sq.ft.",
			"CRIM": "per capita crime rate by town",
			"AGE":  "proportion of owner-occupied units built prior to 1940",
		},
	}
}

// memKV implements kvClient in memory.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
