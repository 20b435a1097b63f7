package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output keeps custody
// log lines machine-parseable for the audit pipeline's log shipper.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
