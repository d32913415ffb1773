// Package logging builds the zap loggers used by the exporter and the CLI.
package logging

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger output styles.
const (
	StyleTerminal = "terminal"
	StyleJSON     = "json"
	StyleNoop     = "noop"
)

// ErrInvalidStyle indicates an unknown logger style name.
var ErrInvalidStyle = errors.New("invalid logging style")

// New creates a zap logger for the given style and level. Empty style
// defaults to terminal; empty or unparsable level defaults to info.
func New(style, level string) (*zap.Logger, error) {
	if style == "" {
		style = StyleTerminal
	}

	logLevel := zapcore.InfoLevel
	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			logLevel = lvl
		}
	}

	switch style {
	case StyleNoop:
		return zap.NewNop(), nil
	case StyleJSON:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(logLevel)
		logger, err := cfg.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
		)
		if err != nil {
			return nil, fmt.Errorf("building json logger: %w", err)
		}
		return logger, nil
	case StyleTerminal:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(logLevel)
		logger, err := cfg.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
		)
		if err != nil {
			return nil, fmt.Errorf("building terminal logger: %w", err)
		}
		return logger, nil
	default:
		return nil, fmt.Errorf("%w: %q (must be one of: terminal, json, noop)", ErrInvalidStyle, style)
	}
}
