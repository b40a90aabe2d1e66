// Package audit records one structured entry per keyword request, written at
// a dedicated log level so it can be routed separately from operational logs.
package audit

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
)

// Level is the level audit entries are written at. It is above every
// standard level so that audit entries are never filtered out.
const Level = zerolog.Level(20)

// Keyword is a keyword as it appears in the audit log.
type Keyword struct {
	Text       string
	Confidence float64
}

func (k Keyword) MarshalZerologObject(e *zerolog.Event) {
	e.Str("text", k.Text).Float64("confidence", k.Confidence)
}

// Entry is the audit record of a single request. Handlers fill in the
// resource and result fields as they learn them; the middleware fills in
// the request fields and writes the entry when the request completes.
type Entry struct {
	Method    string
	Path      string
	Status    int
	SourceIP  string
	UserAgent string

	Fingerprint  string
	Extension    string
	Locale       string
	ContentBytes int64

	// Keywords is nil when no keywords were produced, and empty when Imagga
	// found none.
	Keywords  []Keyword
	ErrorCode string

	Error string
}

func (e *Entry) MarshalZerologObject(event *zerolog.Event) {
	event.Dict("request", zerolog.Dict().
		Str("method", e.Method).
		Str("path", e.Path).
		Int("status", e.Status).
		Str("sourceIP", e.SourceIP).
		Str("userAgent", e.UserAgent),
	)

	NewOptionalEvent(nil).
		Str("fingerprint", e.Fingerprint).
		Str("extension", e.Extension).
		Str("locale", e.Locale).
		Int64("bytes", e.ContentBytes).
		Set(event, "resource")

	NewOptionalEvent(nil).
		Arr("keywords", arr(e.Keywords)).
		Str("code", e.ErrorCode).
		Set(event, "result")

	if e.Error != "" {
		event.Str("error", e.Error)
	}
}

// Begin captures the request fields of r.
func (e *Entry) Begin(r *http.Request) {
	e.Method = r.Method
	e.Path = r.URL.Path
	e.UserAgent = r.UserAgent()

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	e.SourceIP = host
}

// End returns the function that completes the entry and writes it. It must
// be deferred directly, so that it can observe a panic: the panic is
// recorded and then re-raised.
func (e *Entry) End(ctx context.Context) func() {
	return func() {
		r := recover()
		if r != nil {
			if e.Error != "" {
				e.Error += "; "
			}
			e.Error += fmt.Sprintf("panic: %v", r)

			if e.Status == 0 {
				e.Status = http.StatusInternalServerError
			}
		}

		if e.Status == 0 {
			e.Status = http.StatusOK
		}

		zerolog.Ctx(ctx).WithLevel(Level).EmbedObject(e).Msg("audit_event")

		if r != nil {
			panic(r)
		}
	}
}

type key struct{}

// Context returns the entry carried by ctx, attaching a new one if there is
// none.
func Context(ctx context.Context) (context.Context, *Entry) {
	if e, ok := ctx.Value(key{}).(*Entry); ok {
		return ctx, e
	}

	e := &Entry{}
	return context.WithValue(ctx, key{}, e), e
}

// Log returns the entry carried by ctx. Without one, a detached entry is
// returned so callers can always write to it.
func Log(ctx context.Context) *Entry {
	_, e := Context(ctx)
	return e
}

// Middleware audits every request passing through it.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, entry := Context(r.Context())
			entry.Begin(r)
			defer entry.End(ctx)()

			next.ServeHTTP(&statusRecorder{ResponseWriter: w, entry: entry}, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	entry *Entry
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.entry.Status == 0 {
		s.entry.Status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.entry.Status == 0 {
		s.entry.Status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
