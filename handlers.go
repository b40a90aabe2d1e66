package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/chinmina/imagga-bridge/internal/audit"
	"github.com/chinmina/imagga-bridge/internal/imagga"
	"github.com/chinmina/imagga-bridge/internal/resource"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

// HTTPStatuser provides HTTP status information for errors
type HTTPStatuser interface {
	Status() (int, string)
}

// KeywordSuggester suggests keywords for a resource.
type KeywordSuggester interface {
	Keywords(ctx context.Context, res imagga.Resource, locale language.Tag) ([]imagga.Keyword, error)
}

// KeywordsResponse is the body of a successful keyword request.
type KeywordsResponse struct {
	Keywords []imagga.Keyword `json:"keywords"`
}

// extensions maps the media types a client may send to the extension the
// resource is given. Types not listed leave the resource without one.
var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/tiff": "tif",
	"video/mp4":  "mp4",
}

// handlePostKeywords answers with the keywords suggested for the request
// body. The body is spooled to spoolDir while it is hashed, so its size is
// bounded by the request limit rather than by memory.
func handlePostKeywords(suggester KeywordSuggester, spoolDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		entry := audit.Log(r.Context())

		locale, err := requestLocale(r)
		if err != nil {
			log.Info().Err(err).Msg("invalid locale parameter")
			entry.Error = err.Error()
			writeJSONError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid locale"})
			return
		}

		res, err := resource.Spool(r.Body, spoolDir, requestExtension(r))
		if err != nil {
			entry.Error = err.Error()

			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				requestError(w, http.StatusRequestEntityTooLarge)
				return
			}

			log.Info().Err(err).Msg("reading resource from client failed")
			requestError(w, http.StatusBadRequest)
			return
		}
		defer func() {
			if err := res.Remove(); err != nil {
				log.Warn().Err(err).Msg("failed to remove spooled resource")
			}
		}()

		if etag := r.Header.Get("ETag"); etag != "" {
			res = res.WithFingerprint(etag)
		}

		entry.Fingerprint = res.Fingerprint()
		entry.Extension, _ = res.Extension()
		entry.Locale = locale.String()
		entry.ContentBytes = res.Size()

		keywords, err := suggester.Keywords(r.Context(), res, locale)
		if err != nil {
			entry.Error = err.Error()
			if code, ok := imagga.CodeOf(err); ok {
				entry.ErrorCode = string(code)
			}

			log.Info().Err(err).Str("fingerprint", res.Fingerprint()).Msg("keyword request failed")
			status, response := errorResponse(err)
			writeJSONError(w, status, response)
			return
		}

		if keywords == nil {
			keywords = []imagga.Keyword{}
		}

		entry.Keywords = make([]audit.Keyword, 0, len(keywords))
		for _, k := range keywords {
			entry.Keywords = append(entry.Keywords, audit.Keyword{Text: k.Text, Confidence: k.Confidence})
		}

		marshalledResponse, err := json.Marshal(KeywordsResponse{Keywords: keywords})
		if err != nil {
			requestError(w, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, err = w.Write(marshalledResponse)
		if err != nil {
			// record failure to log: trying to respond to the client at this
			// point will likely fail
			log.Info().Err(err).Msg("failed to write response")
		}
	})
}

// requestLocale reads the optional "locale" query parameter as a BCP 47 tag.
func requestLocale(r *http.Request) (language.Tag, error) {
	value := r.URL.Query().Get("locale")
	if value == "" {
		return language.Und, nil
	}

	return language.Parse(value)
}

// requestExtension takes the extension from the "ext" query parameter, or
// derives it from the request content type.
func requestExtension(r *http.Request) string {
	if ext := r.URL.Query().Get("ext"); ext != "" {
		return ext
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	return extensions[mediaType]
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}

// ErrorResponse represents a JSON error response. Code and Arguments are
// present for keyword failures reported by Imagga.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
}

// writeJSONError writes a JSON error response with the given status code.
func writeJSONError(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// At this point the status code has been written, so we can only log
		log.Info().Err(err).Msg("failed to write JSON error response")
	}
}

// errorResponse builds the status and body for err. Errors that don't
// implement HTTPStatuser are reported as a bad gateway: they are failures to
// reach Imagga.
func errorResponse(err error) (int, ErrorResponse) {
	var ierr *imagga.Error
	if errors.As(err, &ierr) {
		status, message := ierr.Status()
		return status, ErrorResponse{Error: message, Code: string(ierr.Code), Arguments: ierr.Args}
	}

	var statuser HTTPStatuser
	if errors.As(err, &statuser) {
		status, message := statuser.Status()
		return status, ErrorResponse{Error: message}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorResponse{Error: http.StatusText(http.StatusGatewayTimeout)}
	}

	return http.StatusBadGateway, ErrorResponse{Error: http.StatusText(http.StatusBadGateway)}
}

func requestError(w http.ResponseWriter, statusCode int) {
	http.Error(w, http.StatusText(statusCode), statusCode)
}

// drainRequestBody drains the request body by reading and discarding the contents.
// This is useful to ensure the request body is fully consumed, which is important
// for connection reuse in HTTP/1 clients.
func drainRequestBody(r *http.Request) {
	if r.Body != nil {
		// 5MB max: after this we'll assume the client is broken or malicious
		// and close the connection
		_, _ = io.CopyN(io.Discard, r.Body, 5*1024*1024)
	}
}
