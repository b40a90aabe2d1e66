package observe

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Mux registers handlers on a ServeMux, wrapping each one with HTTP server
// telemetry named after its route.
type Mux struct {
	wrapped *http.ServeMux
}

func NewMux() *Mux {
	return &Mux{wrapped: http.NewServeMux()}
}

// Handle registers handler for pattern with telemetry enabled. The span name
// is the route without its method, so "POST /keywords" reports as
// "/keywords".
func (mux *Mux) Handle(pattern string, handler http.Handler) {
	mux.wrapped.Handle(pattern, otelhttp.NewHandler(handler, RouteName(pattern)))
}

// HandleUntraced registers handler for pattern without telemetry, for
// routes such as health checks that would only add noise.
func (mux *Mux) HandleUntraced(pattern string, handler http.Handler) {
	mux.wrapped.Handle(pattern, handler)
}

func (mux *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux.wrapped.ServeHTTP(w, r)
}

var methods = map[string]bool{
	http.MethodConnect: true,
	http.MethodDelete:  true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPatch:   true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodTrace:   true,
}

// RouteName strips a leading method from a ServeMux pattern.
func RouteName(pattern string) string {
	method, route, found := strings.Cut(pattern, " ")
	if found && methods[method] {
		return strings.TrimLeft(route, " ")
	}
	return pattern
}
