package testhelpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockTag is a keyword returned by MockImaggaServer.
type MockTag struct {
	Text       string
	Confidence float64
}

// MockImaggaServer provides a configurable mock Imagga API server for
// testing. Configure the fields before issuing requests; captured request
// details are read through the accessor methods.
type MockImaggaServer struct {
	Server *httptest.Server

	UploadID     string // upload id returned by POST /uploads
	UploadStatus int    // HTTP status code for uploads (200 if not set)
	UploadBody   string // raw response body for uploads, replacing the default

	Tags       []MockTag // tags returned by GET /tags, keyed by the requested language
	TagsStatus int       // HTTP status code for tags (200 if not set)
	TagsBody   string    // raw response body for tags, replacing the default

	// UploadGate, when set, holds every upload until it is closed.
	UploadGate chan struct{}

	mu              sync.Mutex
	uploadCount     int
	tagsCount       int
	lastAuthHeader  string
	lastContentType string
	lastUpload      []byte
	lastTagsQuery   string
}

// SetupMockImaggaServer creates a mock Imagga API server that handles
// uploads and tag requests below "/v2". The server is closed when the test
// ends.
func SetupMockImaggaServer(t *testing.T) *MockImaggaServer {
	t.Helper()

	mock := &MockImaggaServer{
		UploadID:     "12345",
		UploadStatus: http.StatusOK,
		Tags:         []MockTag{{Text: "keyword", Confidence: 10}},
		TagsStatus:   http.StatusOK,
	}

	router := http.NewServeMux()

	router.HandleFunc("POST /v2/uploads", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.uploadCount++
		mock.lastAuthHeader = r.Header.Get("Authorization")
		mock.lastContentType = r.Header.Get("Content-Type")
		mock.lastUpload = body
		gate := mock.UploadGate
		mock.mu.Unlock()

		if gate != nil {
			<-gate
		}

		switch {
		case mock.UploadStatus != http.StatusOK:
			writeRaw(w, mock.UploadStatus, mock.UploadBody)
		case mock.UploadBody != "":
			writeRaw(w, http.StatusOK, mock.UploadBody)
		default:
			WriteJSON(w, map[string]any{
				"result": map[string]any{"upload_id": mock.UploadID},
			})
		}
	})

	router.HandleFunc("GET /v2/tags", func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.tagsCount++
		mock.lastAuthHeader = r.Header.Get("Authorization")
		mock.lastTagsQuery = r.URL.RawQuery
		mock.mu.Unlock()

		switch {
		case mock.TagsStatus != http.StatusOK:
			writeRaw(w, mock.TagsStatus, mock.TagsBody)
		case mock.TagsBody != "":
			writeRaw(w, http.StatusOK, mock.TagsBody)
		default:
			lang := r.URL.Query().Get("language")
			if lang == "" {
				lang = "en"
			}

			tags := make([]map[string]any, 0, len(mock.Tags))
			for _, tag := range mock.Tags {
				tags = append(tags, map[string]any{
					"confidence": tag.Confidence,
					"tag":        map[string]string{lang: tag.Text},
				})
			}

			WriteJSON(w, map[string]any{
				"result": map[string]any{"tags": tags},
			})
		}
	})

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Server.Close)

	return mock
}

// URL is the service base URL to configure the adapter with.
func (m *MockImaggaServer) URL() string {
	return m.Server.URL + "/v2"
}

// UploadCount is the number of upload requests received.
func (m *MockImaggaServer) UploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploadCount
}

// TagsCount is the number of tag requests received.
func (m *MockImaggaServer) TagsCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tagsCount
}

// LastAuthHeader is the Authorization header of the last request.
func (m *MockImaggaServer) LastAuthHeader() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuthHeader
}

// LastContentType is the Content-Type header of the last upload.
func (m *MockImaggaServer) LastContentType() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastContentType
}

// LastUpload is the raw body of the last upload.
func (m *MockImaggaServer) LastUpload() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpload
}

// LastTagsQuery is the raw query string of the last tag request.
func (m *MockImaggaServer) LastTagsQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTagsQuery
}

// ImaggaError renders an Imagga error response body with the given text.
func ImaggaError(text string) string {
	data, _ := json.Marshal(map[string]any{
		"status": map[string]any{"text": text, "type": "error"},
	})
	return string(data)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// WriteJSON is a helper function that writes a JSON response.
// It sets the Content-Type header and marshals the payload to JSON.
func WriteJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		// In test context, this should never happen with valid test data
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}
