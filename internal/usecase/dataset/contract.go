package dataset

import (
	"context"

	"github.com/kailas-cloud/labkit/internal/domain"
)

// Fetcher downloads the raw text of a dataset.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Repository defines the storage contract for bundles.
type Repository interface {
	Driver() string
	Save(ctx context.Context, b domain.Bundle) error
	Load(ctx context.Context, name string) (domain.Bundle, error)
}
