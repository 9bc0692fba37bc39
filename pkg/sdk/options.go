package labkit

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	envFile string
	skipEnv bool

	driver    string // "parquet", "xlsx", "valkey" or "redis"
	dataDir   string
	addrs     []string
	password  string
	keyPrefix string

	sourceURL    string
	fetchTimeout time.Duration

	baseURL      string
	apiKey       string
	defaultModel string
	maxRetries   int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithEnvFile loads the given .env file instead of the default lookup
// ($LABKIT_ENV_FILE, ./.env, then the project root). The file must exist.
func WithEnvFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.envFile = path
	})
}

// WithoutEnvFile skips .env loading entirely.
func WithoutEnvFile() Option {
	return optionFunc(func(c *clientConfig) {
		c.skipEnv = true
	})
}

// WithDataDir sets the directory file sinks write to. Default: "data".
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataDir = dir
	})
}

// WithParquet persists bundles as parquet files (default).
func WithParquet() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "parquet"
	})
}

// WithXLSX persists bundles as Excel workbooks.
func WithXLSX() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "xlsx"
	})
}

// WithValkey persists bundles in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis persists bundles in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key prefix for Valkey/Redis sinks. Default: "labkit:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithSourceURL overrides the dataset download URL.
func WithSourceURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.sourceURL = url
	})
}

// WithFetchTimeout bounds a dataset download. Default: 30s.
func WithFetchTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.fetchTimeout = d
	})
}

// WithGateway points chat models at an OpenAI-compatible base URL
// instead of OpenRouter.
func WithGateway(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
	})
}

// WithAPIKey sets the gateway key. Without it the key is read from
// $OPENROUTER_API_KEY when a model is first used.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithDefaultModel sets the model used when Generate gets an empty model id.
// It also enables the gateway health check.
func WithDefaultModel(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultModel = id
	})
}

// WithMaxRetries sets how many times a failed gateway call is retried.
// 0 disables retries. Default: 12.
func WithMaxRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetries = n
	})
}

// WithRetryWait sets the backoff bounds between gateway retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryWaitMin = minWait
		c.retryWaitMax = maxWait
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
