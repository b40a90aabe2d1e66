package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

type envelope[V any] struct {
	value  V
	ttl    time.Duration
	tokens []string
}

// Memory is an in-memory cache implementation using otter. Each entry carries
// its own TTL; invalidation tokens are tracked in a reverse index so that
// Invalidate can find every entry injected with a given token.
type Memory[V any] struct {
	cache      *otter.Cache[string, envelope[V]]
	defaultTTL time.Duration

	mu    sync.Mutex
	index map[string]map[string]struct{}
}

// NewMemory creates a new in-memory cache with the specified default TTL and
// max size. The default TTL applies to entries injected without an
// ExpiresAfter dependency.
func NewMemory[V any](defaultTTL time.Duration, maxSize int) (*Memory[V], error) {
	m := &Memory[V]{
		defaultTTL: defaultTTL,
		index:      make(map[string]map[string]struct{}),
	}

	m.cache = otter.Must(&otter.Options[string, envelope[V]]{
		MaximumSize: maxSize,
		ExpiryCalculator: otter.ExpiryWritingFunc(func(e otter.Entry[string, envelope[V]]) time.Duration {
			return e.Value.ttl
		}),
		OnDeletion: m.unindex,
	})

	return m, nil
}

// Peek retrieves a value from the cache.
// Returns the value, whether it was found, and any error.
func (m *Memory[V]) Peek(ctx context.Context, key string) (V, bool, error) {
	entry, ok := m.cache.GetIfPresent(key)
	if !ok {
		var zero V
		return zero, false, nil
	}

	return entry.value, true, nil
}

// Inject stores a value in the cache, replacing any previous entry for key.
func (m *Memory[V]) Inject(ctx context.Context, key string, value V, deps ...Dependency) error {
	ttl, tokens := resolve(deps, m.defaultTTL)

	m.cache.Set(key, envelope[V]{value: value, ttl: ttl, tokens: tokens})

	if len(tokens) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, token := range tokens {
		keys, ok := m.index[token]
		if !ok {
			keys = make(map[string]struct{})
			m.index[token] = keys
		}
		keys[key] = struct{}{}
	}

	return nil
}

// Invalidate removes every entry injected with the given token.
func (m *Memory[V]) Invalidate(ctx context.Context, token string) error {
	m.mu.Lock()
	keys := m.index[token]
	delete(m.index, token)
	m.mu.Unlock()

	for key := range keys {
		m.cache.Invalidate(key)
	}

	return nil
}

// Close releases any resources held by the cache.
func (m *Memory[V]) Close() error {
	m.cache.InvalidateAll()
	return nil
}

// unindex drops a deleted entry from the reverse index. Deletion events are
// delivered asynchronously, so the key may have been injected again with the
// same token in the meantime: such keys are left in place.
func (m *Memory[V]) unindex(e otter.DeletionEvent[string, envelope[V]]) {
	if e.Cause == otter.CauseReplacement || len(e.Value.tokens) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, present := m.cache.GetIfPresent(e.Key)

	for _, token := range e.Value.tokens {
		if present && slices.Contains(current.tokens, token) {
			continue
		}

		keys, ok := m.index[token]
		if !ok {
			continue
		}
		delete(keys, e.Key)
		if len(keys) == 0 {
			delete(m.index, token)
		}
	}
}
