package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandlerWithWriter(&buf, slog.LevelInfo)).With(slog.String("pass_id", "p1"))

	l.Info("Games reconciled", slog.String("type", "pass"), slog.Int("new", 2))
	out := buf.String()
	assert.Contains(t, out, "[CEBot]")
	assert.Contains(t, out, "[PASS]")
	assert.Contains(t, out, "Games reconciled")
	assert.Contains(t, out, "pass_id=p1")
	assert.Contains(t, out, "new=2")
	assert.NotContains(t, out, "type=")
}

func TestCustomHandler_LevelAndSkip(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandlerWithWriter(&buf, slog.LevelInfo))

	l.Debug("hidden")
	l.Info("new request sent to rest bucket")
	assert.Empty(t, buf.String())

	l.Error("Store operation failed", slog.String("type", "db"), slog.Any("error", errors.New("boom")))
	assert.Contains(t, buf.String(), "[DB]")
	assert.Contains(t, buf.String(), ": boom")
}
