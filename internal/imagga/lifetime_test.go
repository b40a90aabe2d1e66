package imagga

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chinmina/imagga-bridge/internal/cache"
	"github.com/chinmina/imagga-bridge/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type lifetimeResource struct{}

func (lifetimeResource) Fingerprint() string { return "etag" }

func (lifetimeResource) Extension() (string, bool) { return "png", true }

func (lifetimeResource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("png bytes")), nil
}

type injection struct {
	key  string
	deps []cache.Dependency
}

// recordingCache never hits and remembers what was injected and invalidated.
type recordingCache[V any] struct {
	mu          sync.Mutex
	injected    []injection
	invalidated []string
}

func (c *recordingCache[V]) Peek(ctx context.Context, key string) (V, bool, error) {
	var zero V
	return zero, false, nil
}

func (c *recordingCache[V]) Inject(ctx context.Context, key string, value V, deps ...cache.Dependency) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.injected = append(c.injected, injection{key: key, deps: deps})
	return nil
}

func (c *recordingCache[V]) Invalidate(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, token)
	return nil
}

func (c *recordingCache[V]) Close() error { return nil }

func setupRecordingAdapter(t *testing.T, mock *testhelpers.MockImaggaServer) (*Adapter, *recordingCache[string], *recordingCache[[]Keyword]) {
	t.Helper()

	uploads := &recordingCache[string]{}
	tags := &recordingCache[[]Keyword]{}

	a, err := New(Config{
		URL:          mock.URL(),
		BasicAuthKey: "YWNjOnNlY3JldA==",
		MinAccuracy:  30,
		Limit:        -1,
	}, Caches{Uploads: uploads, Tags: tags})
	require.NoError(t, err)

	return a, uploads, tags
}

func TestEntryLifetimes(t *testing.T) {
	assert.Equal(t, 23*time.Hour, uploadTTL)
	assert.Equal(t, 23*time.Hour+time.Minute, tagsTTL)
}

func TestKeywords_UploadIDExpiresAndIsTagged(t *testing.T) {
	testhelpers.SetupLogger(t)
	mock := testhelpers.SetupMockImaggaServer(t)
	a, uploads, _ := setupRecordingAdapter(t, mock)

	_, err := a.Keywords(context.Background(), lifetimeResource{}, language.German)
	require.NoError(t, err)

	key := uploadKey("etag", mock.URL(), "YWNjOnNlY3JldA==")
	require.Len(t, uploads.injected, 1)
	assert.Equal(t, key, uploads.injected[0].key)
	assert.ElementsMatch(t, []cache.Dependency{
		cache.ExpiresAfter(23 * time.Hour),
		cache.Tag("upload-id:" + key),
	}, uploads.injected[0].deps)
}

func TestKeywords_TagsExpireWithoutToken(t *testing.T) {
	testhelpers.SetupLogger(t)
	mock := testhelpers.SetupMockImaggaServer(t)
	a, _, tags := setupRecordingAdapter(t, mock)

	_, err := a.Keywords(context.Background(), lifetimeResource{}, language.German)
	require.NoError(t, err)

	require.Len(t, tags.injected, 1)
	assert.Equal(t, "tags:12345:de:-1:30", tags.injected[0].key)
	assert.Equal(t, []cache.Dependency{cache.ExpiresAfter(23*time.Hour + time.Minute)}, tags.injected[0].deps)
}

func TestKeywords_TagsFailureInvalidatesUploadToken(t *testing.T) {
	testhelpers.SetupLogger(t)
	mock := testhelpers.SetupMockImaggaServer(t)
	mock.TagsStatus = http.StatusBadRequest
	a, uploads, tags := setupRecordingAdapter(t, mock)

	_, err := a.Keywords(context.Background(), lifetimeResource{}, language.German)
	require.ErrorIs(t, err, ErrGetTagsFromUploadFailed)

	key := uploadKey("etag", mock.URL(), "YWNjOnNlY3JldA==")
	assert.Equal(t, []string{"upload-id:" + key}, uploads.invalidated)
	assert.Empty(t, tags.injected)
}
