package openai

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/metrics"
	"github.com/kailas-cloud/labkit/internal/secret"
	"github.com/kailas-cloud/labkit/internal/version"
)

// Config holds the chat model settings.
type Config struct {
	APIKey       secret.String // explicit key; wins over APIKeyEnv
	APIKeyEnv    string        // default OPENROUTER_API_KEY
	BaseURL      string        // default GatewayBaseURL
	Model        string
	MaxRetries   int           // negative selects DefaultMaxRetries, 0 disables retries
	Timeout      time.Duration // per attempt, default 60s
	RetryWaitMin time.Duration // default 1s
	RetryWaitMax time.Duration // default 30s
	HTTPClient   *http.Client  // shared retrying client; built from the fields above when nil
	Logger       *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = APIKeyEnv
	}
	if c.BaseURL == "" {
		c.BaseURL = GatewayBaseURL
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = time.Second
	}
	if c.RetryWaitMax <= 0 {
		c.RetryWaitMax = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Option customizes MakeTextGenerationModel.
type Option func(*Config)

// WithAPIKey sets an explicit API key.
func WithAPIKey(key secret.String) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithAPIKeyEnv changes the environment variable consulted for the key.
func WithAPIKeyEnv(name string) Option {
	return func(c *Config) { c.APIKeyEnv = name }
}

// WithBaseURL points the model at another OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Config) {
		c.RetryWaitMin = minWait
		c.RetryWaitMax = maxWait
	}
}

// WithHTTPClient hands the model a prebuilt HTTP client, usually from a ClientPool.
// Retry and timeout settings then come from that client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *Config) { cfg.HTTPClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// newRetryingHTTPClient builds the HTTP client handed to go-openai.
// Retries (429, 5xx, connection errors) and backoff are owned by go-retryablehttp.
func newRetryingHTTPClient(cfg Config) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = leveledLogger{cfg.Logger.Sugar()}
	// hand the last response back so go-openai can decode the gateway error body
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	fallback := cfg.Model
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		req.Header.Set("User-Agent", version.UserAgent())
		if attempt > 0 {
			model := modelFromContext(req.Context())
			if model == "" {
				model = fallback
			}
			metrics.ChatRetriesTotal.WithLabelValues(model).Inc()
		}
	}

	return rc.StandardClient()
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *zap.SugaredLogger
}

func (z leveledLogger) Error(msg string, kv ...interface{}) { z.l.Errorw(msg, kv...) }
func (z leveledLogger) Warn(msg string, kv ...interface{})  { z.l.Warnw(msg, kv...) }
func (z leveledLogger) Info(msg string, kv ...interface{})  { z.l.Debugw(msg, kv...) }
func (z leveledLogger) Debug(msg string, kv ...interface{}) { z.l.Debugw(msg, kv...) }
