package observe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteName(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"POST /keywords", "/keywords"},
		{"GET /healthcheck", "/healthcheck"},
		{"DELETE  /cache/{key}", "/cache/{key}"},
		{"/keywords", "/keywords"},
		{"example.com/keywords", "example.com/keywords"},
		{"FETCH /keywords", "FETCH /keywords"},
		{"post /keywords", "post /keywords"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.expected, RouteName(tt.pattern))
		})
	}
}

func TestMux(t *testing.T) {
	mux := NewMux()
	mux.Handle("POST /keywords", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	mux.HandleUntraced("GET /healthcheck", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		method   string
		path     string
		expected int
	}{
		{http.MethodPost, "/keywords", http.StatusAccepted},
		{http.MethodGet, "/healthcheck", http.StatusNoContent},
		{http.MethodGet, "/keywords", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}
