package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/config"
	logpkg "github.com/kailas-cloud/labkit/internal/logger"
	chiTransport "github.com/kailas-cloud/labkit/internal/transport/chi"
	"github.com/kailas-cloud/labkit/internal/transport/openai"
	"github.com/kailas-cloud/labkit/internal/transport/statlib"
	datasetuc "github.com/kailas-cloud/labkit/internal/usecase/dataset"
	healthuc "github.com/kailas-cloud/labkit/internal/usecase/health"
)

func runServe(ctx context.Context, args []string) error {
	var envFile string
	var port int
	fs := newFlagSet("serve", &envFile)
	fs.IntVar(&port, "port", 0, "listen port (default http.port)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := bootstrap(envFile)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	if port == 0 {
		port = a.cfg.HTTP.Port
	}

	a.logger.Info("Starting labkit API server",
		zap.String("env", a.env),
		zap.Int("http_port", port),
		zap.String("storage_driver", a.cfg.Storage.Driver),
	)

	repo, store, err := openRepository(ctx, a.cfg.Storage, a.cfg.Dataset.DataDir, a.logger)
	if err != nil {
		return err
	}

	// Pass nil interfaces (not typed nil pointers) for absent checks.
	var storePinger healthuc.StorePinger
	if store != nil {
		defer store.Close()
		storePinger = store
	}
	var gateway healthuc.GatewayChecker
	if m := gatewayHealthModel(a.cfg.Gateway, a.logger); m != nil {
		gateway = m
	}

	fetcher := statlib.NewFetcher(statlib.Config{
		Timeout: time.Duration(a.cfg.Dataset.FetchTimeoutSec) * time.Second,
		Dataset: a.cfg.Dataset.Name,
		Logger:  logpkg.Component(a.logger, "fetcher"),
	})
	datasetSvc := datasetuc.New(fetcher, repo)
	chatSvc := newChatService(a.cfg.Gateway, logpkg.Component(a.logger, "chat"))
	healthSvc := healthuc.New(storePinger, gateway)

	server := chiTransport.NewServer(datasetSvc, chatSvc, healthSvc, a.logger)

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, a.cfg.Auth.APIKeys, a.logger),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// gatewayHealthModel returns a model for gateway health checks, or nil when
// no default model or API key is configured.
func gatewayHealthModel(cfg config.GatewayConfig, logger *zap.Logger) *openai.ChatModel {
	if cfg.DefaultModel == "" {
		logger.Info("gateway health check disabled: gateway.default_model is empty")
		return nil
	}
	// one attempt: health probes should fail fast
	m, err := openai.MakeTextGenerationModel(cfg.DefaultModel, 0, gatewayOptions(cfg, logger)...)
	if err != nil {
		logger.Warn("gateway health check disabled", zap.Error(err))
		return nil
	}
	return m
}
