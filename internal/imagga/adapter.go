package imagga

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/chinmina/imagga-bridge/internal/cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

const (
	// Imagga keeps an upload for 24 hours; the cached id must expire first.
	uploadTTL = 23 * time.Hour
	// Keywords outlive their upload id by a minute, so a cached keyword
	// list never needs an upload id that may just have expired.
	tagsTTL = uploadTTL + time.Minute
)

// Config is the resolved configuration of one adapter.
type Config struct {
	URL          string
	BasicAuthKey string
	// MinAccuracy is the confidence threshold in percent.
	MinAccuracy int
	// Limit is the maximum number of keywords, -1 for unlimited.
	Limit int
}

// Caches holds the caches used by an adapter. A nil cache disables caching
// for its stage.
type Caches struct {
	Uploads cache.Cache[string]
	Tags    cache.Cache[[]Keyword]
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the client used to talk to Imagga.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		if client != nil {
			a.client = client
		}
	}
}

// WithCoalescing makes concurrent requests that miss the cache for the same
// key share a single request to Imagga.
func WithCoalescing(enabled bool) Option {
	return func(a *Adapter) {
		a.coalesce = enabled
	}
}

// Adapter suggests keywords for a resource by uploading it to Imagga and
// requesting tags for the upload. Both results are cached. An Adapter is safe
// for concurrent use.
type Adapter struct {
	baseURL      string
	basicAuthKey string
	minAccuracy  int
	limit        int

	client  *http.Client
	uploads cache.Cache[string]
	tags    cache.Cache[[]Keyword]

	coalesce     bool
	uploadFlight singleflight.Group
	tagsFlight   singleflight.Group
}

// New creates an adapter. A missing credential fails with
// ErrBasicAuthKeyNotSet before any request is made.
func New(cfg Config, caches Caches, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(cfg.BasicAuthKey) == "" {
		return nil, &Error{Code: ErrBasicAuthKeyNotSetCode, Detail: "basicAuthKey is empty"}
	}

	a := &Adapter{
		baseURL:      strings.TrimSuffix(cfg.URL, "/"),
		basicAuthKey: cfg.BasicAuthKey,
		minAccuracy:  cfg.MinAccuracy,
		limit:        cfg.Limit,
		client:       http.DefaultClient,
		uploads:      caches.Uploads,
		tags:         caches.Tags,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.uploads == nil || a.tags == nil {
		log.Info().
			Bool("upload_cache", a.uploads != nil).
			Bool("tags_cache", a.tags != nil).
			Msg("No cache configured for the Imagga adapter. This works functionally, but is too slow for production use.")
	}
	if a.uploads == nil {
		a.uploads = cache.Nop[string]{}
	}
	if a.tags == nil {
		a.tags = cache.Nop[[]Keyword]{}
	}

	return a, nil
}

func (a *Adapter) String() string {
	return fmt.Sprintf("Adapter[minAccuracy=%d, limit=%d]", a.minAccuracy, a.limit)
}

// Keywords returns the keywords Imagga suggests for res, in the order Imagga
// ranks them. The keyword text is in the language of locale, or English when
// locale is language.Und.
//
// Only png and jpg resources are accepted when the resource declares an
// extension. Failures are reported as *Error, except for transport failures
// which are returned wrapped as they occurred.
func (a *Adapter) Keywords(ctx context.Context, res Resource, locale language.Tag) ([]Keyword, error) {
	if ext, ok := res.Extension(); ok && !supportedExtension(ext) {
		return nil, &Error{
			Code:   ErrNotSupportedFileTypeCode,
			Args:   []string{ext},
			Detail: fmt.Sprintf("file type %q is not supported", ext),
		}
	}

	uploadID, key, err := a.uploadID(ctx, res)
	if err != nil {
		return nil, err
	}

	return a.keywords(ctx, uploadID, key, locale)
}

// supportedExtension is case-insensitive: "JPG" and "PNG" are accepted.
func supportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case "png", "jpg":
		return true
	default:
		return false
	}
}

// uploadID returns the upload id for res, uploading it when there is none
// cached. The cache key is returned alongside so the tags stage can drop the
// id on failure.
func (a *Adapter) uploadID(ctx context.Context, res Resource) (string, string, error) {
	key := uploadKey(res.Fingerprint(), a.baseURL, a.basicAuthKey)

	id, found, err := a.uploads.Peek(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("fingerprint", res.Fingerprint()).Msg("upload cache lookup failed, uploading")
	} else if found {
		log.Debug().Str("fingerprint", res.Fingerprint()).Str("upload_id", id).Msg("upload cache hit")
		return id, key, nil
	}

	id, err = coalesced(ctx, a.coalesce, &a.uploadFlight, key, func(ctx context.Context) (string, error) {
		return a.upload(ctx, res, key)
	})

	return id, key, err
}

func (a *Adapter) upload(ctx context.Context, res Resource, key string) (string, error) {
	body, err := uploadBody(res)
	if err != nil {
		return "", fmt.Errorf("failed to open resource %s: %w", res.Fingerprint(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/uploads", body)
	if err != nil {
		_ = body.Close()
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+a.basicAuthKey)
	req.Header.Set("Content-Type", uploadContentType)

	status, payload, err := a.do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}

	if status != http.StatusOK {
		log.Info().Str("fingerprint", res.Fingerprint()).Int("status", status).Msg("upload rejected by Imagga")
		return "", a.failure(ctx, stageUpload, status, payload, key)
	}

	id, err := parseUploadID(payload)
	if err != nil {
		return "", processingError(payload, err)
	}

	log.Debug().Str("fingerprint", res.Fingerprint()).Str("upload_id", id).Msg("resource uploaded")

	if err := a.uploads.Inject(ctx, key, id, cache.ExpiresAfter(uploadTTL), cache.Tag(uploadToken(key))); err != nil {
		log.Warn().Err(err).Str("upload_id", id).Msg("failed to cache upload id")
	}

	return id, nil
}

// keywords returns the tags for an upload, requesting them when there are
// none cached.
func (a *Adapter) keywords(ctx context.Context, uploadID, uploadKey string, locale language.Tag) ([]Keyword, error) {
	key := tagsKey(uploadID, locale, a.limit, a.minAccuracy)

	keywords, found, err := a.tags.Peek(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("upload_id", uploadID).Msg("tags cache lookup failed, requesting tags")
	} else if found {
		log.Debug().Str("upload_id", uploadID).Msg("tags cache hit")
		return slices.Clone(keywords), nil
	}

	keywords, err = coalesced(ctx, a.coalesce, &a.tagsFlight, key, func(ctx context.Context) ([]Keyword, error) {
		return a.requestTags(ctx, uploadID, uploadKey, key, locale)
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(keywords), nil
}

func (a *Adapter) requestTags(ctx context.Context, uploadID, uploadKey, key string, locale language.Tag) ([]Keyword, error) {
	query := url.Values{}
	query.Set("image_upload_id", uploadID)

	lang := defaultLanguage
	if code, ok := languageCode(locale); ok {
		lang = code
		query.Set("language", code)
	}

	query.Set("limit", strconv.Itoa(a.limit))
	query.Set("threshold", strconv.Itoa(a.minAccuracy)+".0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/tags?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tags request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+a.basicAuthKey)

	status, payload, err := a.do(req)
	if err != nil {
		return nil, fmt.Errorf("tags request failed: %w", err)
	}

	if status != http.StatusOK {
		log.Info().Str("upload_id", uploadID).Int("status", status).Msg("tags request rejected by Imagga")
		return nil, a.failure(ctx, stageTags, status, payload, uploadKey)
	}

	keywords, err := parseKeywords(payload, lang)
	if err != nil {
		return nil, processingError(payload, err)
	}

	log.Debug().
		Str("upload_id", uploadID).
		Str("language", lang).
		Int("keywords", len(keywords)).
		Msg("tags received")

	if err := a.tags.Inject(ctx, key, keywords, cache.ExpiresAfter(tagsTTL)); err != nil {
		log.Warn().Err(err).Str("upload_id", uploadID).Msg("failed to cache tags")
	}

	return keywords, nil
}

// do sends req and reads the complete response.
func (a *Adapter) do(req *http.Request) (int, []byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, payload, nil
}

// failure applies the failure policy to a rejected request.
func (a *Adapter) failure(ctx context.Context, s stage, status int, payload []byte, uploadKey string) *Error {
	o := classify(s, status)

	err := &Error{
		Code:   o.code,
		Detail: fmt.Sprintf("%s request answered with status %d", s, status),
		Body:   string(payload),
	}
	if o.withText {
		err.Args = []string{errorText(payload)}
	}

	if o.invalidateUpload {
		if ierr := a.uploads.Invalidate(ctx, uploadToken(uploadKey)); ierr != nil {
			log.Warn().Err(ierr).Msg("failed to invalidate cached upload id")
		}
	}

	return err
}

// coalesced runs fn once for all concurrent callers with the same key when
// enabled. The shared call is detached from the cancellation of the caller
// that started it; each caller stops waiting when its own ctx is done.
func coalesced[T any](ctx context.Context, enabled bool, g *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	if !enabled {
		return fn(ctx)
	}

	shared := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (any, error) {
		return fn(shared)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}
