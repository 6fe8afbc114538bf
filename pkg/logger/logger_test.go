package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, toZapLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, toZapLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, toZapLevel("verbose"))
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("tile loaded", "key", "osm/3/5/3")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "tile loaded", entries[0].Message)
		assert.Equal(t, "osm/3/5/3", entries[0].ContextMap()["key"])
	}

	assert.NotPanics(t, func() { FromContext(context.Background()).Error("dropped") })
}
