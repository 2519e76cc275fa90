package logging

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/muurk/retools/internal/can"
)

// logger is read on every frame from source and engine goroutines
var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "RETOOLS_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks RETOOLS_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger.Store(zap.NewNop())
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Store(built)

	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		return zapcore.InfoLevel
	}
}

// SetLogger replaces the global logger. Tests use this with zaptest/observer.
// A nil logger restores the silent default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// GetLogger returns the global logger instance. It is silent until
// Initialize or SetLogger is called so CLI output stays clean.
func GetLogger() *zap.Logger {
	return logger.Load()
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogLifecycle logs an engine state change
func LogLifecycle(event string, fields ...zap.Field) {
	Info("Engine lifecycle", append([]zap.Field{zap.String("event", event)}, fields...)...)
}

// LogSource logs a frame source event
func LogSource(source string, event string, fields ...zap.Field) {
	Info("Frame source",
		append([]zap.Field{
			zap.String("source", source),
			zap.String("event", event),
		}, fields...)...,
	)
}

// LogFrame logs a single frame at debug level. The frame is only formatted
// when debug output is enabled.
func LogFrame(event string, f can.Frame) {
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		return
	}
	Debug("Frame",
		zap.String("event", event),
		zap.String("origin", f.Origin),
		zap.String("id", f.IDString()),
		zap.Bool("extended", f.Extended),
		zap.Uint8("dlc", f.DLC),
		zap.String("data", f.HexPayload()),
	)
}

// LogCommand logs a control command and its outcome
func LogCommand(surface string, command string, err error) {
	if err != nil {
		Info("Control command rejected",
			zap.String("surface", surface),
			zap.String("command", command),
			zap.Error(err),
		)
		return
	}
	Info("Control command",
		zap.String("surface", surface),
		zap.String("command", command),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
