package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Debug("dial", "endpoint", "ws://127.0.0.1:8545")
	l.Warn("retrying request", "attempt", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "ws://127.0.0.1:8545", entries[0].ContextMap()["endpoint"])
	assert.Equal(t, "retrying request", entries[1].Message)
	assert.EqualValues(t, 2, entries[1].ContextMap()["attempt"])
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, NopLogger{}, OrNop(nil))
	assert.IsType(t, NopLogger{}, NewZapLogger(nil))

	l := NewZapLogger(zap.NewNop())
	assert.Equal(t, l, OrNop(l))
}
