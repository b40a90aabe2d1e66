package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Cache   CacheConfig
	Imagga  ImaggaConfig
	Observe ObserveConfig
	Server  ServerConfig
}

type ServerConfig struct {
	Port                   int   `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int   `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`
	MaxUploadBytes         int64 `env:"SERVER_MAX_UPLOAD_BYTES, default=52428800"`

	OutgoingHTTPMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
	OutgoingHTTPTimeoutSeconds  int `env:"SERVER_OUTGOING_TIMEOUT_SECS, default=120"`
}

// CacheConfig specifies cache configuration.
type CacheConfig struct {
	// Type selects the cache implementation: "memory" (default), "redis" or
	// "none". With "none" every request performs the full upload and tagging
	// round trip.
	Type string `env:"CACHE_TYPE, default=memory"`

	// MaxSize bounds the number of entries held by each in-memory cache.
	MaxSize int `env:"CACHE_MAX_SIZE, default=10000"`

	// Coalesce shares a single upstream request between concurrent callers
	// that miss the cache for the same key.
	Coalesce bool `env:"CACHE_COALESCE, default=false"`

	// Redis holds distributed cache settings.
	Redis RedisConfig
}

// RedisConfig specifies distributed cache configuration.
type RedisConfig struct {
	// Address is the Redis server address (host:port).
	Address string `env:"REDIS_ADDRESS"`

	// TLS enables TLS connection to Redis. Defaults to true so the secure option
	// is the default.
	TLS bool `env:"REDIS_TLS, default=true"`

	Username string `env:"REDIS_USERNAME"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`

	// KeyPrefix namespaces all keys written by this service.
	KeyPrefix string `env:"REDIS_KEY_PREFIX, default=imagga-bridge"`
}

// ImaggaConfig locates the adapter settings. Values set in the environment
// take precedence over values read from SettingsFile; anything left unset is
// defaulted when the adapter is created.
type ImaggaConfig struct {
	SettingsFile string `env:"IMAGGA_SETTINGS_FILE"`

	Settings ImaggaSettings
}

type ObserveConfig struct {
	SDKLogLevel                string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled             bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_SERVICE_NAME, default=imagga-bridge"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds  int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	if cfg.Imagga.SettingsFile != "" {
		fileSettings, err := ReadSettingsFile(cfg.Imagga.SettingsFile)
		if err != nil {
			return cfg, fmt.Errorf("imagga settings could not be read: %w", err)
		}
		cfg.Imagga.Settings = fileSettings.Merge(cfg.Imagga.Settings)
	}

	err = cfg.Cache.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid cache configuration: %w", err)
	}

	err = cfg.Imagga.Settings.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid imagga configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "memory", "none":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("REDIS_ADDRESS required when CACHE_TYPE=redis")
		}
	default:
		return fmt.Errorf("invalid cache type %q: must be one of \"memory\", \"redis\" or \"none\"", c.Type)
	}

	if c.MaxSize <= 0 {
		return fmt.Errorf("CACHE_MAX_SIZE must be positive, got %d", c.MaxSize)
	}

	return nil
}
