package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default gateway and dataset settings.
const (
	DefaultGatewayURL  = "https://openrouter.ai/api/v1"
	DefaultAPIKeyEnv   = "OPENROUTER_API_KEY"
	DefaultMaxRetries  = 12
	DefaultDataset     = "boston_housing"
	DefaultDataDir     = "data"
	DefaultStoreDriver = "parquet"
)

// Config holds the labkit configuration.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Dataset DatasetConfig `yaml:"dataset"`
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for `labkit serve`.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// MetricsConfig holds the scrape endpoint for one-shot commands. Port 0 disables it.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// GatewayConfig holds the OpenAI-compatible chat gateway settings.
type GatewayConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`     // usually ${OPENROUTER_API_KEY}
	APIKeyEnv      string `yaml:"api_key_env"` // consulted when api_key is empty
	DefaultModel   string `yaml:"default_model"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	RetryWaitMinMs int    `yaml:"retry_wait_min_ms"`
	RetryWaitMaxMs int    `yaml:"retry_wait_max_ms"`
}

// DatasetConfig holds dataset download and output settings.
type DatasetConfig struct {
	Name            string `yaml:"name"`
	URL             string `yaml:"url"` // empty means the source's canonical URL
	DataDir         string `yaml:"data_dir"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
}

// StorageConfig holds bundle persistence settings.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // parquet, xlsx, valkey, redis (default: parquet)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// UsesKV reports whether bundles go to a Valkey/Redis server.
func (s StorageConfig) UsesKV() bool {
	return s.Driver == "valkey" || s.Driver == "redis"
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A missing file is not an error: defaults apply.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = DefaultGatewayURL
	}
	if c.Gateway.APIKeyEnv == "" {
		c.Gateway.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Gateway.MaxRetries <= 0 {
		c.Gateway.MaxRetries = DefaultMaxRetries
	}
	if c.Gateway.TimeoutSec <= 0 {
		c.Gateway.TimeoutSec = 60
	}
	if c.Gateway.RetryWaitMinMs <= 0 {
		c.Gateway.RetryWaitMinMs = 1000
	}
	if c.Gateway.RetryWaitMaxMs <= 0 {
		c.Gateway.RetryWaitMaxMs = 30000
	}
	if c.Dataset.Name == "" {
		c.Dataset.Name = DefaultDataset
	}
	if c.Dataset.DataDir == "" {
		c.Dataset.DataDir = DefaultDataDir
	}
	if c.Dataset.FetchTimeoutSec <= 0 {
		c.Dataset.FetchTimeoutSec = 30
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStoreDriver
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "labkit:"
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// chat calls may sit through several retries
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}
	if c.Gateway.RetryWaitMinMs > c.Gateway.RetryWaitMaxMs {
		return fmt.Errorf("gateway.retry_wait_min_ms (%d) exceeds retry_wait_max_ms (%d)",
			c.Gateway.RetryWaitMinMs, c.Gateway.RetryWaitMaxMs)
	}
	switch c.Storage.Driver {
	case "parquet", "xlsx":
		// ok
	case "valkey", "redis":
		if len(c.Storage.Addrs) == 0 {
			return fmt.Errorf("storage.addrs is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf(
			"storage.driver must be one of parquet, xlsx, valkey, redis, got %q",
			c.Storage.Driver,
		)
	}
	return nil
}

// ProjectRoot returns the repository root this binary was built from.
func ProjectRoot() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	if path := filepath.Join(ProjectRoot(), "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
