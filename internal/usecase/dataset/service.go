// Package dataset runs the one-off load: fetch the raw text, extract the
// fixed-width table and persist it with its column metadata.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	srcdataset "github.com/kailas-cloud/labkit/internal/dataset"
	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/extract"
	"github.com/kailas-cloud/labkit/internal/logger"
	"github.com/kailas-cloud/labkit/internal/metrics"
)

// Service builds and reads dataset bundles.
type Service struct {
	fetcher Fetcher
	repo    Repository
}

// New creates a dataset service.
func New(fetcher Fetcher, repo Repository) *Service {
	return &Service{fetcher: fetcher, repo: repo}
}

// Build fetches src, extracts its table and saves the bundle.
// url overrides src.URL when non-empty. Nothing is saved unless every stage succeeds.
func (s *Service) Build(ctx context.Context, src srcdataset.Source, url string) (domain.Bundle, error) {
	log := logger.FromContext(ctx).With(zap.String("dataset", src.Name))
	start := time.Now()

	if url == "" {
		url = src.URL
	}

	log.Info("dataset_fetch_started", zap.String("url", url))
	text, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("fetch %s: %w", src.Name, err)
	}

	b, err := extract.Extract(src.Name, text, src.Schema)
	if err != nil {
		metrics.ExtractErrorsTotal.WithLabelValues(src.Name, errorType(err)).Inc()
		return domain.Bundle{}, fmt.Errorf("extract %s: %w", src.Name, err)
	}
	metrics.ExtractRowsTotal.WithLabelValues(src.Name).Add(float64(b.Table.Len()))
	log.Info("dataset_extracted",
		zap.Int("rows", b.Table.Len()),
		zap.Int("columns", len(b.Table.Columns)),
	)

	driver := s.repo.Driver()
	if err := s.repo.Save(ctx, b); err != nil {
		metrics.BundleSavesTotal.WithLabelValues(driver, "error").Inc()
		return domain.Bundle{}, fmt.Errorf("save %s: %w", src.Name, err)
	}
	metrics.BundleSavesTotal.WithLabelValues(driver, "success").Inc()

	log.Info("dataset_saved",
		zap.String("driver", driver),
		zap.Duration("latency", time.Since(start)),
	)
	return b, nil
}

// Get loads a stored bundle by name.
func (s *Service) Get(ctx context.Context, name string) (domain.Bundle, error) {
	if name == "" {
		return domain.Bundle{}, fmt.Errorf("dataset name is required: %w", domain.ErrInvalidInput)
	}
	b, err := s.repo.Load(ctx, name)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("load %s: %w", name, err)
	}
	return b, nil
}

// Metadata returns the column descriptions of a stored bundle.
func (s *Service) Metadata(ctx context.Context, name string) (map[string]string, error) {
	b, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return b.Metadata, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrIntegrity):
		return "integrity"
	case errors.Is(err, domain.ErrInvalidSchema):
		return "schema"
	default:
		return "other"
	}
}
