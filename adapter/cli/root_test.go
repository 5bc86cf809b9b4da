package cli

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/pkg/observability"
)

func TestCommandLogger_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	base := observability.NewLogger(observability.LogConfig{
		Level:  observability.LogLevelInfo,
		Format: observability.LogFormatText,
		Output: &buf,
	})
	require.False(t, base.Enabled(context.Background(), slog.LevelDebug))

	got := commandLogger(base, true)
	assert.True(t, got.Enabled(context.Background(), slog.LevelDebug))
}

func TestCommandLogger_KeepsConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	base := observability.NewLogger(observability.LogConfig{
		Level:  observability.LogLevelInfo,
		Format: observability.LogFormatText,
		Output: &buf,
	})

	got := commandLogger(base, false)
	assert.Same(t, base, got)
	assert.False(t, got.Enabled(context.Background(), slog.LevelDebug))
}

func TestCommandLogger_NilFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, commandLogger(nil, false))
}
