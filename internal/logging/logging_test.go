package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zap.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zap.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zap.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zap.InfoLevel, ParseLevel(""))
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		logger, err := NewLogger(format, "debug")
		require.NoError(t, err, format)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}

	logger, err := NewLogger("json", "error")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.WarnLevel))
}
