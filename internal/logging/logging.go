// Package logging builds the zap loggers used across exposure-control.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel is the environment variable that selects the log level.
const EnvLevel = "EXPOSURE_LOG_LEVEL"

// DefaultLevel is used when neither a flag nor EnvLevel sets a level.
const DefaultLevel = "info"

// New returns a console logger writing to stderr at the given level.
// Stdout is left alone: it carries EV output or the tool protocol.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level. The empty string means
// DefaultLevel.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// LevelFromEnv returns the level named by EnvLevel, or fallback if unset.
func LevelFromEnv(fallback string) string {
	if lvl := os.Getenv(EnvLevel); lvl != "" {
		return lvl
	}
	return fallback
}
