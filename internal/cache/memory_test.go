package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPeek_NotFound(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[CacheTestDummy](time.Minute, 100)
	require.NoError(t, err)

	value, found, err := cache.Peek(ctx, "nonexistent")

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, CacheTestDummy{}, value)
}

func TestMemoryInjectAndPeek_Success(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[CacheTestDummy](time.Minute, 100)
	require.NoError(t, err)

	expected := CacheTestDummy{Data: "testdata"}

	err = cache.Inject(ctx, "test-key", expected, ExpiresAfter(time.Hour))
	require.NoError(t, err)

	value, found, err := cache.Peek(ctx, "test-key")

	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, expected, value)
}

func TestMemoryInject_ReplacesValue(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[CacheTestDummy](time.Minute, 100)
	require.NoError(t, err)

	require.NoError(t, cache.Inject(ctx, "test-key", CacheTestDummy{Data: "first"}))
	require.NoError(t, cache.Inject(ctx, "test-key", CacheTestDummy{Data: "second"}))

	value, found, err := cache.Peek(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", value.Data)
}

func TestMemoryInvalidate_RemovesTaggedEntries(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[CacheTestDummy](time.Minute, 100)
	require.NoError(t, err)

	dummy := CacheTestDummy{Data: "testdata"}

	require.NoError(t, cache.Inject(ctx, "tagged-1", dummy, Tag("token")))
	require.NoError(t, cache.Inject(ctx, "tagged-2", dummy, Tag("token"), ExpiresAfter(time.Hour)))
	require.NoError(t, cache.Inject(ctx, "other", dummy, Tag("other-token")))
	require.NoError(t, cache.Inject(ctx, "untagged", dummy))

	err = cache.Invalidate(ctx, "token")
	require.NoError(t, err)

	for key, expected := range map[string]bool{
		"tagged-1": false,
		"tagged-2": false,
		"other":    true,
		"untagged": true,
	} {
		_, found, err := cache.Peek(ctx, key)
		assert.NoError(t, err)
		assert.Equal(t, expected, found, "key %s", key)
	}
}

func TestMemoryInvalidate_UnknownTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[CacheTestDummy](time.Minute, 100)
	require.NoError(t, err)

	require.NoError(t, cache.Inject(ctx, "test-key", CacheTestDummy{Data: "testdata"}, Tag("token")))

	err = cache.Invalidate(ctx, "unknown")
	require.NoError(t, err)

	_, found, err := cache.Peek(ctx, "test-key")
	assert.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryInvalidate_ReinjectedEntryIsInvalidatedAgain(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[CacheTestDummy](time.Minute, 100)
	require.NoError(t, err)

	dummy := CacheTestDummy{Data: "testdata"}

	require.NoError(t, cache.Inject(ctx, "test-key", dummy, Tag("token")))
	require.NoError(t, cache.Invalidate(ctx, "token"))
	require.NoError(t, cache.Inject(ctx, "test-key", dummy, Tag("token")))

	// allow asynchronous deletion events from the first invalidation to land
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, cache.Invalidate(ctx, "token"))

	_, found, err := cache.Peek(ctx, "test-key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[CacheTestDummy](time.Hour, 100)
	require.NoError(t, err)

	dummy := CacheTestDummy{Data: "testdata"}

	// Use very short TTL for testing
	err = cache.Inject(ctx, "short", dummy, ExpiresAfter(100*time.Millisecond))
	require.NoError(t, err)
	err = cache.Inject(ctx, "long", dummy)
	require.NoError(t, err)

	// Verify value is present immediately
	_, found, err := cache.Peek(ctx, "short")
	assert.NoError(t, err)
	assert.True(t, found)

	// Wait for TTL to expire
	time.Sleep(150 * time.Millisecond)

	_, found, err = cache.Peek(ctx, "short")
	assert.NoError(t, err)
	assert.False(t, found)

	// the default TTL still applies to the other entry
	_, found, err = cache.Peek(ctx, "long")
	assert.NoError(t, err)
	assert.True(t, found)
}

func TestResolve(t *testing.T) {
	cases := []struct {
		name           string
		deps           []Dependency
		expectedTTL    time.Duration
		expectedTokens []string
	}{
		{
			name:        "fallback",
			expectedTTL: time.Minute,
		},
		{
			name:           "shortest expiry wins",
			deps:           []Dependency{ExpiresAfter(time.Hour), Tag("a"), ExpiresAfter(2 * time.Hour), Tag("b")},
			expectedTTL:    time.Hour,
			expectedTokens: []string{"a", "b"},
		},
		{
			name:           "tag only",
			deps:           []Dependency{Tag("a")},
			expectedTTL:    time.Minute,
			expectedTokens: []string{"a"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ttl, tokens := resolve(tc.deps, time.Minute)
			assert.Equal(t, tc.expectedTTL, ttl)
			assert.Equal(t, tc.expectedTokens, tokens)
		})
	}
}

// CacheTestDummy is a simple struct used for testing the generic caches.
type CacheTestDummy struct {
	Data string
}
