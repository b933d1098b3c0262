package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapfeed/internal/platform/config"
	"snapfeed/internal/platform/logger"
)

func TestNew_LevelByEnvironment(t *testing.T) {
	ctx := context.Background()

	prod := logger.New(config.EnvProduction)
	require.NotNil(t, prod)
	assert.False(t, prod.Enabled(ctx, slog.LevelDebug))
	assert.True(t, prod.Enabled(ctx, slog.LevelInfo))

	test := logger.New(config.EnvTest)
	require.NotNil(t, test)
	assert.True(t, test.Enabled(ctx, slog.LevelDebug))
}
