package cache

import "context"

// Nop is a cache that never holds anything: every Peek misses and every
// write is discarded. It allows callers to run unchanged when caching is
// disabled.
type Nop[V any] struct{}

func (Nop[V]) Peek(context.Context, string) (V, bool, error) {
	var zero V
	return zero, false, nil
}

func (Nop[V]) Inject(context.Context, string, V, ...Dependency) error {
	return nil
}

func (Nop[V]) Invalidate(context.Context, string) error {
	return nil
}

func (Nop[V]) Close() error {
	return nil
}
