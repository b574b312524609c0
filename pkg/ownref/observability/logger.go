// Package observability provides structured logging, metrics, and
// tracing helpers for ownref.
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
	"time"
)

// LogAttach logs a reader registration.
func LogAttach(logger *slog.Logger, ownerID, readerID string, readers int) {
	if logger == nil {
		return
	}
	logger.Debug("reader attached",
		slog.String("owner_id", ownerID),
		slog.String("reader_id", readerID),
		slog.Int("readers", readers),
	)
}

// LogAttachRejected logs an attach attempt against a closed owner.
func LogAttachRejected(logger *slog.Logger, ownerID, readerID string) {
	if logger == nil {
		return
	}
	logger.Warn("attach to closed owner",
		slog.String("owner_id", ownerID),
		slog.String("reader_id", readerID),
	)
}

// LogDetach logs a reader deregistration.
func LogDetach(logger *slog.Logger, ownerID, readerID string, readers int) {
	if logger == nil {
		return
	}
	logger.Debug("reader detached",
		slog.String("owner_id", ownerID),
		slog.String("reader_id", readerID),
		slog.Int("readers", readers),
	)
}

// LogReset logs a value replacement, including how long the owner
// waited for readers to release the old value.
func LogReset(logger *slog.Logger, ownerID string, readers int, wait time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("value reset",
		slog.String("owner_id", ownerID),
		slog.Int("readers", readers),
		slog.Float64("wait_ms", float64(wait.Microseconds())/1000.0),
	)
}

// LogTeardown logs owner teardown.
func LogTeardown(logger *slog.Logger, ownerID string, readers int, wait time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("owner closed",
		slog.String("owner_id", ownerID),
		slog.Int("readers", readers),
		slog.Float64("wait_ms", float64(wait.Microseconds())/1000.0),
	)
}
