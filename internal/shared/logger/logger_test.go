package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	l, err := New("settlement-service", "local", "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = New("settlement-service", "prod", "")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))

	l, err = New("settlement-worker", "prod", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	_, err = New("settlement-worker", "prod", "loud")
	assert.Error(t, err)
}
