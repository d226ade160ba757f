package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.Logger

// InitLogger builds a development-config Zap logger at the given level.
// An unrecognized level string falls back to info.
func InitLogger(logLevelStr string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()

	level, err := zapcore.ParseLevel(logLevelStr)
	if err != nil {
		level = zap.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	// Store for cleanup purposes
	globalLogger = logger

	return logger, nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if globalLogger != nil {
		globalLogger.Sync()
	}
}
