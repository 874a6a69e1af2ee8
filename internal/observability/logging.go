// Package observability provides structured logging utilities for the game server.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ravenfell/gametable/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// SessionLogger returns a child logger carrying the session identifier field.
// Per-session components use it so every line from one encounter is correlated.
//
// Precondition: logger must be non-nil; sessionID must be non-empty.
func SessionLogger(logger *zap.Logger, sessionID string) *zap.Logger {
	return logger.With(zap.String("session_id", sessionID))
}

// PlayerLogger returns a child logger carrying session and player identifier fields.
//
// Precondition: logger must be non-nil.
func PlayerLogger(logger *zap.Logger, sessionID, playerID string) *zap.Logger {
	return logger.With(
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
	)
}
