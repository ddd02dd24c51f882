package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewZapLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment.log")

	logger, err := NewZapLogger(Config{Level: "warn", Output: "file", FilePath: path}, zap.String("service", "payment"))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("attempt_id", "a-1"))
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"message":"kept"`)
	assert.Contains(t, out, `"service":"payment"`)
	assert.Contains(t, out, `"attempt_id":"a-1"`)
}

func TestNewZapLogger_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"level", Config{Level: "loud"}},
		{"format", Config{Format: "xml"}},
		{"output", Config{Output: "syslog"}},
		{"missing file path", Config{Output: "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewZapLogger(tt.config)
			assert.Error(t, err)
		})
	}
}
