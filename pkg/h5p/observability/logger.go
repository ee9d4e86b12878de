// Package observability provides structured logging, metrics, and tracing
// for the content runtime.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"strconv"
	"time"
)

// EnrichLogger adds content identity to a logger.
// Returns a new logger with content_id, sub_content_id, and library fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, 42, "9f1c...", "H5P.Column 1.16")
//	enriched.Info("attached") // includes content_id, sub_content_id, library
func EnrichLogger(logger *slog.Logger, contentID int64, subContentID, library string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.Int64("content_id", contentID),
		slog.String("sub_content_id", subContentID),
		slog.String("library", library),
	)
}

// LogInstanceCreated logs a successful content instantiation.
func LogInstanceCreated(logger *slog.Logger, library string, contentID int64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("content instance created",
		slog.String("library", library),
		slog.Int64("content_id", contentID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogConstructionError is the error sink for failed instantiations.
// Failures never panic; they are logged here and returned to the caller.
func LogConstructionError(logger *slog.Logger, library string, contentID int64, err error) {
	if logger == nil {
		return
	}
	logger.Error("content instantiation failed",
		slog.String("library", library),
		slog.Int64("content_id", contentID),
		slog.String("error", err.Error()),
	)
}

// LogCompletion logs a recorded content result.
func LogCompletion(logger *slog.Logger, contentID int64, score, maxScore float64) {
	if logger == nil {
		return
	}
	logger.Info("content finished",
		slog.Int64("content_id", contentID),
		slog.String("score", strconv.FormatFloat(score, 'f', -1, 64)+"/"+strconv.FormatFloat(maxScore, 'f', -1, 64)),
	)
}

// LogStateSaveError logs a user data failure (non-fatal).
func LogStateSaveError(logger *slog.Logger, contentID int64, subContentID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("user data failed",
		slog.Int64("content_id", contentID),
		slog.String("sub_content_id", subContentID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
