package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Distributed implements Cache using Redis, so that instances of the service
// share upload ids and tag results.
//
// Values are stored as JSON under "<namespace>:v:<key>". Each invalidation
// token is a Redis set at "<namespace>:t:<token>" holding the storage keys
// injected with that token.
type Distributed[V any] struct {
	client     redis.UniversalClient
	namespace  string
	defaultTTL time.Duration
}

// NewDistributed creates a new Redis-backed cache. The namespace separates
// the keys of caches sharing one Redis database. The client is owned by the
// caller: Close does not close it.
func NewDistributed[V any](client redis.UniversalClient, namespace string, defaultTTL time.Duration) (*Distributed[V], error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if namespace == "" {
		return nil, errors.New("namespace is required")
	}

	return &Distributed[V]{
		client:     client,
		namespace:  namespace,
		defaultTTL: defaultTTL,
	}, nil
}

// Peek retrieves a value from Redis.
// Returns the value, whether it was found, and any error.
func (d *Distributed[V]) Peek(ctx context.Context, key string) (V, bool, error) {
	var zero V

	data, err := d.client.Get(ctx, d.storageKey(key)).Bytes()
	if err != nil {
		// Key not found is not an error in our semantics
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to get cached value: %w", err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		// Best-effort removal of the unreadable entry.
		_ = d.client.Del(ctx, d.storageKey(key)).Err()

		return zero, false, fmt.Errorf("failed to unmarshal cached value for key %q: %w", key, err)
	}

	return value, true, nil
}

// Inject stores a value with its TTL and registers it with its invalidation
// tokens in a single transaction.
func (d *Distributed[V]) Inject(ctx context.Context, key string, value V, deps ...Dependency) error {
	ttl, tokens := resolve(deps, d.defaultTTL)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	storageKey := d.storageKey(key)

	_, err = d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, storageKey, data, ttl)

		for _, token := range tokens {
			tokenKey := d.tokenKey(token)
			pipe.SAdd(ctx, tokenKey, storageKey)
			// the token set must not outlive its newest member
			pipe.Expire(ctx, tokenKey, ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set cached value: %w", err)
	}

	return nil
}

// Invalidate removes every value registered with token, and the token set
// itself.
func (d *Distributed[V]) Invalidate(ctx context.Context, token string) error {
	tokenKey := d.tokenKey(token)

	members, err := d.client.SMembers(ctx, tokenKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read invalidation token: %w", err)
	}

	keys := append(members, tokenKey)
	if err := d.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached values: %w", err)
	}

	log.Debug().
		Str("namespace", d.namespace).
		Int("entries", len(members)).
		Msg("invalidated cache entries")

	return nil
}

// Close is a no-op: the Redis client is shared and closed by its owner.
func (d *Distributed[V]) Close() error {
	return nil
}

func (d *Distributed[V]) storageKey(key string) string {
	return d.namespace + ":v:" + key
}

func (d *Distributed[V]) tokenKey(token string) string {
	return d.namespace + ":t:" + token
}
