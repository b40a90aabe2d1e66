package imagga

import (
	"context"
	"fmt"

	"github.com/chinmina/imagga-bridge/internal/cache"
	"github.com/chinmina/imagga-bridge/internal/config"
)

// AdapterID identifies the Imagga adapter to a host.
const AdapterID = "imagga"

const (
	DefaultURL         = "https://api.imagga.com/v2"
	DefaultMinAccuracy = 30
	// DefaultLimit requests all keywords above the threshold.
	DefaultLimit = -1
)

// Factory creates adapters from host settings. Every adapter created by a
// factory shares the factory's caches.
type Factory struct {
	caches Caches
	opts   []Option
}

// NewFactory creates a factory whose adapters use caches and opts.
func NewFactory(caches Caches, opts ...Option) *Factory {
	return &Factory{caches: caches, opts: opts}
}

// Setup creates the upload and tags caches described by cfg and a factory
// whose adapters share them. The cache factory is returned so the caller can
// close it on shutdown.
func Setup(ctx context.Context, cfg config.CacheConfig, opts ...Option) (*Factory, *cache.Factory, error) {
	caches, err := cache.NewFactory(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("cache configuration failed: %w", err)
	}

	uploads, err := cache.New[string](caches, "uploads", uploadTTL)
	if err != nil {
		_ = caches.Close()
		return nil, nil, err
	}

	tags, err := cache.New[[]Keyword](caches, "tags", tagsTTL)
	if err != nil {
		_ = caches.Close()
		return nil, nil, err
	}

	opts = append([]Option{WithCoalescing(cfg.Coalesce)}, opts...)

	return NewFactory(Caches{Uploads: uploads, Tags: tags}, opts...), caches, nil
}

// ID returns AdapterID.
func (f *Factory) ID() string {
	return AdapterID
}

// Create resolves defaults for any unset setting and creates an adapter.
func (f *Factory) Create(settings config.ImaggaSettings) (*Adapter, error) {
	return New(Resolve(settings), f.caches, f.opts...)
}

// Resolve fills in defaults for the unset fields of settings.
func Resolve(settings config.ImaggaSettings) Config {
	cfg := Config{
		URL:         DefaultURL,
		MinAccuracy: DefaultMinAccuracy,
		Limit:       DefaultLimit,
	}

	if settings.URL != nil && *settings.URL != "" {
		cfg.URL = *settings.URL
	}
	if settings.BasicAuthKey != nil {
		cfg.BasicAuthKey = *settings.BasicAuthKey
	}
	if settings.MinAccuracy != nil {
		cfg.MinAccuracy = *settings.MinAccuracy
	}
	if settings.Limit != nil {
		cfg.Limit = *settings.Limit
	}

	return cfg
}
