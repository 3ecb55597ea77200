// Package logger provides structured logging with context support.
package logger

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger with context-aware helpers.
type Logger struct {
	*zap.SugaredLogger
}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoder with colors
	OutputPaths []string
}

// New creates a new Logger from configuration.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		config.OutputPaths = cfg.OutputPaths
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// WithComponent adds component name to logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{l.SugaredLogger.With("component", name)}
}

// WithContext adds the request id chi assigned to this request, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return &Logger{l.SugaredLogger.With("request_id", reqID)}
	}
	return l
}
