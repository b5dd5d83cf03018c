package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l := New(tt.in, "json")
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l := New("info", "json", path)
	l.Info("hello")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNew_BadOutputFallsBack(t *testing.T) {
	l := New("info", "json", filepath.Join(t.TempDir(), "missing", "dir", "app.log"))
	assert.NotNil(t, l)
}

func TestWrapper_Fields(t *testing.T) {
	log, logs := NewObservedLogger(zapcore.DebugLevel)

	log.WithFields(map[string]interface{}{"operation": "sync-application"}).
		Warn("propagation failed", map[string]interface{}{
			"claimId": 7,
			"error":   errors.New("connection refused"),
		})

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "sync-application", ctx["operation"])
	assert.Equal(t, int64(7), ctx["claimId"])
	assert.Equal(t, "connection refused", ctx["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestWrapper_WithError(t *testing.T) {
	log, logs := NewObservedLogger(zapcore.InfoLevel)

	log.WithError(errors.New("boom")).Error("failed", nil)
	log.Debug("hidden", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "boom", logs.All()[0].ContextMap()["error"])
}
