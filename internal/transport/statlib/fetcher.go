// Package statlib downloads raw dataset text over HTTP.
package statlib

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/metrics"
	"github.com/kailas-cloud/labkit/internal/version"
)

// maxBodyBytes caps the download; StatLib text files are a few hundred KB.
const maxBodyBytes = 32 << 20

// Fetcher downloads a document in one request. It never retries.
type Fetcher struct {
	client  *http.Client
	dataset string
	logger  *zap.Logger
}

// Config holds fetcher settings.
type Config struct {
	Timeout time.Duration
	Dataset string // metrics label
	Logger  *zap.Logger
}

// NewFetcher creates a Fetcher. Timeout defaults to 30s.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		dataset: cfg.Dataset,
		logger:  cfg.Logger,
	}
}

// Fetch GETs url and returns the body as text.
// Any transport failure or non-2xx status returns *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues(f.dataset, "error").Inc()
		return "", &domain.FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.FetchRequestsTotal.WithLabelValues(f.dataset, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		f.logger.Warn("fetch_bad_status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(body))),
		)
		return "", &domain.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	var sb strings.Builder
	n, err := io.Copy(&sb, &countingReader{
		reader:  io.LimitReader(resp.Body, maxBodyBytes),
		counter: metrics.FetchBytesTotal.WithLabelValues(f.dataset),
	})
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues(f.dataset, "error").Inc()
		return "", &domain.FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	metrics.FetchRequestsTotal.WithLabelValues(f.dataset, "success").Inc()
	f.logger.Info("fetch_done",
		zap.String("url", url),
		zap.Int64("bytes", n),
		zap.Duration("latency", time.Since(start)),
	)
	return sb.String(), nil
}

type byteCounter interface {
	Add(float64)
}

// countingReader feeds the download byte counter.
type countingReader struct {
	reader  io.Reader
	counter byteCounter
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.counter.Add(float64(n))
	return n, err //nolint:wrapcheck // io.EOF must pass through unwrapped
}
