package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/chinmina/imagga-bridge/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Factory creates the caches for a process from configuration. All
// distributed caches created by one factory share a single Redis client.
type Factory struct {
	cfg    config.CacheConfig
	client redis.UniversalClient
}

// NewFactory validates the cache configuration and, for the "redis" type,
// connects to the server. Connection failures are reported here rather than
// on first use.
func NewFactory(ctx context.Context, cfg config.CacheConfig) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Factory{cfg: cfg}

	switch cfg.Type {
	case "redis":
		log.Info().
			Str("cache_type", "redis").
			Str("address", cfg.Redis.Address).
			Bool("tls", cfg.Redis.TLS).
			Msg("initializing distributed cache")

		opts := &redis.Options{
			Addr:     cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}

		// Configure TLS if enabled
		if cfg.Redis.TLS {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Address, err)
		}
		f.client = client

	case "memory":
		log.Info().
			Str("cache_type", "memory").
			Int("max_size", cfg.MaxSize).
			Msg("initializing in-memory cache")

	case "none":
		log.Info().
			Str("cache_type", "none").
			Msg("caching disabled")
	}

	return f, nil
}

// New creates a cache named name for values of type V. It returns nil when
// caching is disabled, so callers can distinguish "no cache" from an empty
// one.
func New[V any](f *Factory, name string, defaultTTL time.Duration) (Cache[V], error) {
	switch f.cfg.Type {
	case "redis":
		distributed, err := NewDistributed[V](f.client, f.cfg.Redis.KeyPrefix+":"+name, defaultTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create distributed cache %s: %w", name, err)
		}
		return NewInstrumented[V](distributed, "redis", name), nil

	case "memory":
		memory, err := NewMemory[V](defaultTTL, f.cfg.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache %s: %w", name, err)
		}
		return NewInstrumented[V](memory, "memory", name), nil

	default:
		return nil, nil
	}
}

// Close releases the shared Redis client, if any.
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
