package labkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/config"
	srcdataset "github.com/kailas-cloud/labkit/internal/dataset"
	"github.com/kailas-cloud/labkit/internal/db"
	dbValkey "github.com/kailas-cloud/labkit/internal/db/valkey"
	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/repository/bundle"
	"github.com/kailas-cloud/labkit/internal/secret"
	"github.com/kailas-cloud/labkit/internal/transport/openai"
	"github.com/kailas-cloud/labkit/internal/transport/statlib"
	chatuc "github.com/kailas-cloud/labkit/internal/usecase/chat"
	datasetuc "github.com/kailas-cloud/labkit/internal/usecase/dataset"
	healthuc "github.com/kailas-cloud/labkit/internal/usecase/health"
)

const defaultReadinessTimeout = 10 * time.Second

// Внутренние интерфейсы для подмены в тестах.
type datasetUseCase interface {
	Build(ctx context.Context, src srcdataset.Source, url string) (domain.Bundle, error)
	Get(ctx context.Context, name string) (domain.Bundle, error)
	Metadata(ctx context.Context, name string) (map[string]string, error)
}

type chatUseCase interface {
	Complete(ctx context.Context, modelID, prompt string, maxRetries int) (domain.Completion, error)
}

// Client is the labkit entry point.
type Client struct {
	store      db.Store
	driver     string
	sourceURL  string
	maxRetries int
	datasets   datasetUseCase
	chat       chatUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New loads the .env file, opens the configured sink and returns a Client.
// For Valkey/Redis sinks ctx bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:     bundle.DriverParquet,
		dataDir:    config.DefaultDataDir,
		keyPrefix:  "labkit:",
		maxRetries: -1,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if !cfg.skipEnv {
		if _, err := config.LoadEnvFile(config.ResolveEnvPath(cfg.envFile)); err != nil {
			return nil, fmt.Errorf("labkit: %w", err)
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	repo, store, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return wireClient(cfg, repo, store, obs), nil
}

func openRepository(ctx context.Context, cfg *clientConfig) (datasetuc.Repository, db.Store, error) {
	switch cfg.driver {
	case bundle.DriverParquet:
		return bundle.NewParquetStore(cfg.dataDir), nil, nil
	case bundle.DriverXLSX:
		return bundle.NewXLSXStore(cfg.dataDir), nil, nil
	case bundle.DriverValkey, bundle.DriverRedis:
		if len(cfg.addrs) == 0 {
			return nil, nil, errors.New("labkit: database address required (use WithValkey or WithRedis)")
		}
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("labkit: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("labkit: %s not ready: %w", cfg.driver, err)
		}
		return bundle.NewKVStore(s, cfg.keyPrefix, cfg.driver), s, nil
	default:
		return nil, nil, fmt.Errorf("labkit: unknown driver %q", cfg.driver)
	}
}

func wireClient(cfg *clientConfig, repo datasetuc.Repository, store db.Store, obs *observer) *Client {
	fetcher := statlib.NewFetcher(statlib.Config{
		Timeout: cfg.fetchTimeout,
		Dataset: srcdataset.BostonHousingName,
	})

	gatewayOpts := []openai.Option{
		openai.WithBaseURL(cfg.baseURL),
		openai.WithAPIKey(secret.New(cfg.apiKey)),
		openai.WithRetryWait(cfg.retryWaitMin, cfg.retryWaitMax),
		openai.WithLogger(zap.NewNop()),
	}
	pool := openai.NewClientPool(gatewayOpts...)
	factory := func(modelID string, maxRetries int) (chatuc.Model, error) {
		m, err := pool.MakeTextGenerationModel(modelID, maxRetries)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	var pinger healthuc.StorePinger
	if store != nil {
		pinger = store
	}
	var gateway healthuc.GatewayChecker
	if cfg.defaultModel != "" {
		// one attempt: health probes should fail fast
		if m, err := openai.MakeTextGenerationModel(cfg.defaultModel, 0, gatewayOpts...); err == nil {
			gateway = m
		}
	}

	return &Client{
		store:      store,
		driver:     repo.Driver(),
		sourceURL:  cfg.sourceURL,
		maxRetries: cfg.maxRetries,
		datasets:   datasetuc.New(fetcher, repo),
		chat:       chatuc.New(factory, cfg.defaultModel),
		healthSvc:  healthuc.New(pinger, gateway),
		obs:        obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Driver returns the name of the sink bundles are persisted to.
func (c *Client) Driver() string { return c.driver }

// Ping checks key-value store connectivity. File sinks always succeed.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// LoadBostonHousing downloads the Boston housing data, extracts the 14-column
// table, persists it and returns it.
func (c *Client) LoadBostonHousing(ctx context.Context) (Bundle, error) {
	return c.Fetch(ctx, srcdataset.BostonHousingName)
}

// Fetch downloads, extracts and persists a known dataset by name.
func (c *Client) Fetch(ctx context.Context, name string) (b Bundle, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("dataset.fetch", start, err,
			slog.String("dataset", name), slog.Int("rows", b.Table.Len()))
	}()

	src, err := srcdataset.Lookup(name)
	if err != nil {
		return Bundle{}, err
	}
	b, err = c.datasets.Build(ctx, src, c.sourceURL)
	if err != nil {
		return Bundle{}, err
	}
	c.obs.rowsLoaded(name, b.Table.Len())
	return b, nil
}

// Dataset reads a previously persisted bundle. Returns ErrNotFound when
// nothing was saved under name.
func (c *Client) Dataset(ctx context.Context, name string) (b Bundle, err error) {
	start := time.Now()
	defer func() { c.obs.observe("dataset.get", start, err, slog.String("dataset", name)) }()

	b, err = c.datasets.Get(ctx, name)
	if err != nil {
		return Bundle{}, err
	}
	c.obs.rowsLoaded(name, b.Table.Len())
	return b, nil
}

// Metadata returns the column descriptions of a persisted bundle.
func (c *Client) Metadata(ctx context.Context, name string) (m map[string]string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("dataset.metadata", start, err, slog.String("dataset", name)) }()

	return c.datasets.Metadata(ctx, name)
}

// Generate sends prompt as a single user message to modelID. An empty modelID
// selects the default model.
func (c *Client) Generate(ctx context.Context, modelID, prompt string) (out Completion, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chat.generate", start, err, slog.String("model", modelID)) }()

	return c.chat.Complete(ctx, modelID, prompt, c.maxRetries)
}
