package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerReplacesDefault(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	custom := zap.New(core)

	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(custom)
	require.Same(t, custom, Logger())

	LogInfo(ComponentEngine, "hello")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, "engine", entry.ContextMap()["component"])
}

func TestLogHelpersTagComponent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	custom := zap.New(core)

	prev := Logger()
	SetLogger(custom)
	t.Cleanup(func() { SetLogger(prev) })

	LogDebug(ComponentCodec, "d")
	LogWarn(ComponentAudio, "w")
	LogError(ComponentMIDI, "e")

	require.Equal(t, 3, logs.Len())
	assert.Equal(t, "codec", logs.All()[0].ContextMap()["component"])
	assert.Equal(t, "audio", logs.All()[1].ContextMap()["component"])
	assert.Equal(t, "midi", logs.All()[2].ContextMap()["component"])
}
