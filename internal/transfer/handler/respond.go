package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "medtrace/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// endpoint emits the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	var message string
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	} else {
		message = "internal error"
	}
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": message,
	})
}
