package pkg

import (
	"sync"

	"go.uber.org/zap"
)

// Component identifies a subsystem for log filtering.
type Component string

// Engine component identifiers.
const (
	ComponentEngine    Component = "engine"
	ComponentTransport Component = "transport"
	ComponentCodec     Component = "codec"
	ComponentAudio     Component = "audio"
	ComponentMIDI      Component = "midi"
	ComponentResample  Component = "resample"
)

var (
	// DefaultLogger is the default logger used by the engine.
	DefaultLogger *zap.Logger

	logMutex sync.RWMutex
)

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	DefaultLogger = logger
}

// SetLogger replaces the default logger with a custom one.
func SetLogger(logger *zap.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// Logger returns the currently configured logger.
func Logger() *zap.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// LogDebug logs a debug message tagged with the given component.
func LogDebug(component Component, msg string, fields ...zap.Field) {
	Logger().Debug(msg, append([]zap.Field{zap.String("component", string(component))}, fields...)...)
}

// LogInfo logs an info message tagged with the given component.
func LogInfo(component Component, msg string, fields ...zap.Field) {
	Logger().Info(msg, append([]zap.Field{zap.String("component", string(component))}, fields...)...)
}

// LogWarn logs a warning message tagged with the given component.
func LogWarn(component Component, msg string, fields ...zap.Field) {
	Logger().Warn(msg, append([]zap.Field{zap.String("component", string(component))}, fields...)...)
}

// LogError logs an error message tagged with the given component.
func LogError(component Component, msg string, fields ...zap.Field) {
	Logger().Error(msg, append([]zap.Field{zap.String("component", string(component))}, fields...)...)
}

// ZapErr is a shorthand for zap.Error, kept here so callers outside this
// package don't need a direct zap import just to log an error field.
func ZapErr(err error) zap.Field {
	return zap.Error(err)
}
