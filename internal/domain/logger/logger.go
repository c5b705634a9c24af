package logger

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

// OpLogger times one snapshot store operation.
type OpLogger struct {
	Store     string
	Operation string
	Key       string
	StartTime time.Time
}

func NewOpLogger(store, operation, key string) *OpLogger {
	return &OpLogger{
		Store:     store,
		Operation: operation,
		Key:       key,
		StartTime: time.Now(),
	}
}

func (l *OpLogger) Log(err error, affected int64) {
	duration := time.Since(l.StartTime)

	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		slog.Error("Store operation failed",
			slog.String("type", "db"),
			slog.String("store", l.Store),
			slog.String("operation", l.Operation),
			slog.String("key", l.Key),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return
	}

	slog.Debug("Store operation",
		slog.String("type", "db"),
		slog.String("store", l.Store),
		slog.String("operation", l.Operation),
		slog.String("key", l.Key),
		slog.Duration("took", duration),
		slog.Int64("affected", affected),
		slog.Bool("missing", err != nil),
	)
}
