package logger

import (
	"context"
	"testing"

	"cantiere/pkg/trace"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	l := NewLogger("debug")
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l = NewLogger("not-a-level")
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestWithTrace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithTrace(trace.WithContext(context.Background(), "abc123"), base).Info("traced")
	WithTrace(context.Background(), base).Info("untraced")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "abc123", entries[0].ContextMap()["trace_id"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}
