package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/config"
	"github.com/kailas-cloud/labkit/internal/db"
	dbValkey "github.com/kailas-cloud/labkit/internal/db/valkey"
	"github.com/kailas-cloud/labkit/internal/repository/bundle"
	"github.com/kailas-cloud/labkit/internal/secret"
	"github.com/kailas-cloud/labkit/internal/transport/openai"
	chatuc "github.com/kailas-cloud/labkit/internal/usecase/chat"
	datasetuc "github.com/kailas-cloud/labkit/internal/usecase/dataset"
)

// openRepository builds the bundle sink for storage.driver. The returned store
// is non-nil only for key-value drivers and must be closed by the caller.
func openRepository(
	ctx context.Context, cfg config.StorageConfig, dataDir string, logger *zap.Logger,
) (datasetuc.Repository, db.Store, error) {
	if cfg.UsesKV() && len(cfg.Addrs) == 0 {
		return nil, nil, fmt.Errorf("storage.addrs is required for driver %q", cfg.Driver)
	}
	switch cfg.Driver {
	case bundle.DriverParquet:
		return bundle.NewParquetStore(dataDir), nil, nil
	case bundle.DriverXLSX:
		return bundle.NewXLSXStore(dataDir), nil, nil
	case bundle.DriverValkey, bundle.DriverRedis:
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		logger.Info("storage_connected",
			zap.String("driver", cfg.Driver),
			zap.Strings("addrs", cfg.Addrs),
		)
		return bundle.NewKVStore(store, cfg.KeyPrefix, cfg.Driver), store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// gatewayOptions maps gateway config onto adapter options.
func gatewayOptions(cfg config.GatewayConfig, logger *zap.Logger) []openai.Option {
	return []openai.Option{
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithAPIKey(secret.New(cfg.APIKey)),
		openai.WithAPIKeyEnv(cfg.APIKeyEnv),
		openai.WithTimeout(time.Duration(cfg.TimeoutSec) * time.Second),
		openai.WithRetryWait(
			time.Duration(cfg.RetryWaitMinMs)*time.Millisecond,
			time.Duration(cfg.RetryWaitMaxMs)*time.Millisecond,
		),
		openai.WithLogger(logger),
	}
}

// chatFactory builds gateway models. maxRetries < 0 falls back to gateway.max_retries.
// Models with the same retry budget share one HTTP client.
func chatFactory(cfg config.GatewayConfig, logger *zap.Logger) chatuc.ModelFactory {
	pool := openai.NewClientPool(gatewayOptions(cfg, logger)...)
	return func(modelID string, maxRetries int) (chatuc.Model, error) {
		if maxRetries < 0 {
			maxRetries = cfg.MaxRetries
		}
		m, err := pool.MakeTextGenerationModel(modelID, maxRetries)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// newChatService caps request retry budgets at gateway.max_retries.
func newChatService(cfg config.GatewayConfig, logger *zap.Logger) *chatuc.Service {
	return chatuc.New(chatFactory(cfg, logger), cfg.DefaultModel,
		chatuc.WithRetryLimit(cfg.MaxRetries),
	)
}
