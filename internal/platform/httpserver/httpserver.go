package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Write and idle timeouts sit just above the 30s
// per-request budget the handler middleware enforces, so the middleware
// deadline fires first and the client gets a response instead of a reset.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
