package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Empty(t, logger.GetMessages())

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_DerivedLoggersShareRecord(t *testing.T) {
	root := testutil.NewMockLogger()
	child := root.Named("cache").Named("redis").With(logging.String("key", "policies:all"))

	child.Warn("cache read failed", logging.Int("attempt", 2))

	messages := root.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "cache.redis", messages[0].Logger)

	v, ok := root.Field("cache read failed", "key")
	require.True(t, ok)
	assert.Equal(t, "policies:all", v)
	v, ok = root.Field("cache read failed", "attempt")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = root.Field("cache read failed", "missing")
	assert.False(t, ok)
}
