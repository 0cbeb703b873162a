package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestRedaction(t *testing.T) {
	l, logs := observed()

	l.Info("calling provider", "api_key", "sk-live", "authorization", "Bearer abc", "tokens_used", 42, "provider", "openai")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["authorization"])
	assert.EqualValues(t, 42, fields["tokens_used"], "token counts are not credentials")
	assert.Equal(t, "openai", fields["provider"])
}

func TestWith_CarriesFields(t *testing.T) {
	l, logs := observed()

	l.With("component", "audit", "jwt_secret", "s3cr3t").Warn("write failed")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "audit", fields["component"])
	assert.Equal(t, "[REDACTED]", fields["jwt_secret"])
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	assert.Equal(t, []interface{}{"a", 1, "dangling"}, out)
}
