package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/dataset"
	logpkg "github.com/kailas-cloud/labkit/internal/logger"
	"github.com/kailas-cloud/labkit/internal/transport/statlib"
	datasetuc "github.com/kailas-cloud/labkit/internal/usecase/dataset"
)

func runFetch(ctx context.Context, args []string) error {
	var envFile, name, url, driver, dataDir string
	fs := newFlagSet("fetch", &envFile)
	fs.StringVar(&name, "dataset", "", "dataset to fetch (default dataset.name)")
	fs.StringVar(&url, "url", "", "download from this URL instead of the canonical source (default dataset.url)")
	fs.StringVar(&driver, "driver", "", "storage driver: parquet, xlsx, valkey, redis (default storage.driver)")
	fs.StringVar(&dataDir, "data-dir", "", "output directory for file drivers (default dataset.data_dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := bootstrap(envFile)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()
	defer a.serveMetrics()()

	if name == "" {
		name = a.cfg.Dataset.Name
	}
	if url == "" {
		url = a.cfg.Dataset.URL
	}
	if dataDir == "" {
		dataDir = a.cfg.Dataset.DataDir
	}
	storage := a.cfg.Storage
	if driver != "" {
		storage.Driver = driver
	}

	src, err := dataset.Lookup(name)
	if err != nil {
		return err
	}

	repo, store, err := openRepository(ctx, storage, dataDir, a.logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fetcher := statlib.NewFetcher(statlib.Config{
		Timeout: time.Duration(a.cfg.Dataset.FetchTimeoutSec) * time.Second,
		Dataset: src.Name,
		Logger:  logpkg.Component(a.logger, "fetcher"),
	})
	svc := datasetuc.New(fetcher, repo)

	b, err := svc.Build(logpkg.ContextWithLogger(ctx, a.logger), src, url)
	if err != nil {
		a.logger.Error("fetch_failed", zap.String("dataset", src.Name), zap.Error(err))
		return err
	}

	fmt.Printf("%s: %d rows x %d columns saved with %s\n",
		b.Name, b.Table.Len(), len(b.Table.Columns), repo.Driver())
	return nil
}
