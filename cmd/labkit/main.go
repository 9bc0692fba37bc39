// labkit is the notebook support CLI.
//
// Usage:
//
//	labkit fetch   [-env-file .env] [-dataset boston_housing] [-url URL] [-driver parquet] [-data-dir data]
//	labkit chat    [-env-file .env] -model openai/gpt-4o-mini [-max-retries 12] prompt...
//	labkit serve   [-env-file .env] [-port 8080]
//	labkit version
//
// Configuration comes from config/$ENV.yaml (ENV defaults to local) after the
// .env file has been exported into the process environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/config"
	logpkg "github.com/kailas-cloud/labkit/internal/logger"
	"github.com/kailas-cloud/labkit/internal/metrics"
	"github.com/kailas-cloud/labkit/internal/version"
)

const usage = `usage: labkit <command> [flags]

commands:
  fetch     download the dataset, extract its table and persist it
  chat      send a prompt to the gateway and print the answer
  serve     serve stored datasets and chat over HTTP
  version   print build information

run "labkit <command> -h" for command flags`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		cancel()
		fmt.Fprintln(os.Stderr, "labkit:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "fetch":
		return runFetch(ctx, args)
	case "chat":
		return runChat(ctx, args)
	case "serve":
		return runServe(ctx, args)
	case "version", "-version", "--version":
		fmt.Println(version.String())
		return nil
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

// app is the state every command starts from.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

// newFlagSet returns a FlagSet carrying the flags shared by every command.
func newFlagSet(name string, envFile *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(envFile, "env-file", "", "path to the .env file (default $"+config.EnvFileVar+", ./.env, <project>/.env)")
	return fs
}

// bootstrap loads the .env file once, then config, logger and metrics.
func bootstrap(envFlag string) (*app, error) {
	envFile := config.ResolveEnvPath(envFlag)
	loaded, err := config.LoadEnvFile(envFile)
	if err != nil {
		return nil, err
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Debug("bootstrap",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("env_file", envFile.Path),
		zap.Bool("env_file_loaded", loaded),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	metrics.Register()

	return &app{env: env, cfg: cfg, logger: logger}, nil
}

// serveMetrics exposes /metrics for one-shot commands when metrics.port is set.
// The returned func stops the endpoint.
func (a *app) serveMetrics() func() {
	if a.cfg.Metrics.Port == 0 {
		return func() {}
	}

	addr := fmt.Sprintf(":%d", a.cfg.Metrics.Port)
	srv := metrics.Serve(addr, func(err error) {
		a.logger.Warn("metrics_server_failed", zap.Error(err))
	})
	a.logger.Info("metrics_server_started", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
