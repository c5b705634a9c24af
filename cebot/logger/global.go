package logger

import (
	"log/slog"
	"time"
)

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}

// LogPass logs the outcome of one reconciliation pass
func LogPass(id string, start time.Time, events, errs int, err error) {
	attrs := []any{
		slog.String("type", "pass"),
		slog.String("pass_id", id),
		slog.Int("events", events),
		slog.Int("errors", errs),
		since(start),
	}
	if err != nil {
		slog.Error("Pass aborted", append(attrs, slog.Any("error", err))...)
		return
	}
	if errs > 0 {
		slog.Warn("Pass finished with errors", attrs...)
		return
	}
	slog.Info("Pass finished", attrs...)
}
