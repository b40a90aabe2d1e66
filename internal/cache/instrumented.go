package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce     sync.Once
	cacheOperations metric.Int64Counter
	cacheDuration   metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/chinmina/imagga-bridge/internal/cache")

		var err error
		cacheOperations, err = meter.Int64Counter(
			"cache.operations",
			metric.WithDescription("Total cache operations"),
		)
		if err != nil {
			otel.Handle(err)
		}

		cacheDuration, err = meter.Float64Histogram(
			"cache.operation.duration",
			metric.WithDescription("Cache operation duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

// Instrumented wraps a Cache with metrics instrumentation. Operations are
// attributed to the cache type ("memory", "redis") and the cache name
// ("uploads", "tags").
type Instrumented[V any] struct {
	wrapped   Cache[V]
	cacheType string
	name      string
}

// NewInstrumented creates an instrumented cache wrapper.
func NewInstrumented[V any](cache Cache[V], cacheType, name string) *Instrumented[V] {
	initMetrics()
	return &Instrumented[V]{
		wrapped:   cache,
		cacheType: cacheType,
		name:      name,
	}
}

func (i *Instrumented[V]) Peek(ctx context.Context, key string) (V, bool, error) {
	start := time.Now()

	value, found, err := i.wrapped.Peek(ctx, key)

	status := "miss"
	if err != nil {
		status = "error"
	} else if found {
		status = "hit"
	}
	i.record(ctx, "peek", status, time.Since(start))

	return value, found, err
}

func (i *Instrumented[V]) Inject(ctx context.Context, key string, value V, deps ...Dependency) error {
	start := time.Now()

	err := i.wrapped.Inject(ctx, key, value, deps...)

	i.record(ctx, "inject", outcome(err), time.Since(start))

	return err
}

func (i *Instrumented[V]) Invalidate(ctx context.Context, token string) error {
	start := time.Now()

	err := i.wrapped.Invalidate(ctx, token)

	i.record(ctx, "invalidate", outcome(err), time.Since(start))

	return err
}

func (i *Instrumented[V]) Close() error {
	return i.wrapped.Close()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (i *Instrumented[V]) record(ctx context.Context, operation, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.type", i.cacheType),
		attribute.String("cache.name", i.name),
		attribute.String("cache.operation", operation),
	}

	if cacheOperations != nil {
		cacheOperations.Add(ctx, 1,
			metric.WithAttributes(append(attrs, attribute.String("cache.status", status))...),
		)
	}

	if cacheDuration != nil {
		cacheDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("cache."+i.name+"."+operation+".status", status),
		attribute.Float64("cache."+i.name+"."+operation+".duration", duration.Seconds()),
	)
}
