package testutil

import (
	"net/http"
	"time"

	"medtrace/pkg/requestcontext"
)

// WithRequestTime pins the request clock so handlers compute deadlines and
// elapsed hours against a fixed instant.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID attaches a request id, simulating the RequestID middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
