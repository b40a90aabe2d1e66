package cache

import (
	"context"
	"time"
)

// Cache is a memoization map for values computed elsewhere. Values are
// pushed in with Inject and read back with Peek; a cache never derives a
// value on its own. The generic type V represents the value being cached.
//
// Implementations must be safe for concurrent use.
type Cache[V any] interface {
	// Peek retrieves a value from the cache.
	// Returns the value, whether it was found, and any error.
	Peek(ctx context.Context, key string) (V, bool, error)

	// Inject stores a value under key. The dependencies control when the
	// entry goes away: see ExpiresAfter and Tag.
	Inject(ctx context.Context, key string, value V, deps ...Dependency) error

	// Invalidate removes every entry that was injected with Tag(token).
	Invalidate(ctx context.Context, token string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Dependency ties the lifetime of a cache entry to something outside of it:
// either the passing of time or an explicit invalidation token.
type Dependency struct {
	ttl   time.Duration
	token string
}

// ExpiresAfter creates a dependency that expires the entry once d has passed
// since it was injected.
func ExpiresAfter(d time.Duration) Dependency {
	return Dependency{ttl: d}
}

// Tag creates a dependency that removes the entry when Invalidate is called
// with the same token.
func Tag(token string) Dependency {
	return Dependency{token: token}
}

// resolve folds a dependency list into the entry's TTL and invalidation
// tokens. When several expiry dependencies are given, the shortest wins;
// when none is given, fallback is used.
func resolve(deps []Dependency, fallback time.Duration) (time.Duration, []string) {
	var ttl time.Duration
	var tokens []string

	for _, d := range deps {
		if d.ttl > 0 && (ttl == 0 || d.ttl < ttl) {
			ttl = d.ttl
		}
		if d.token != "" {
			tokens = append(tokens, d.token)
		}
	}

	if ttl == 0 {
		ttl = fallback
	}

	return ttl, tokens
}
