package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const loggerKey = contextKey("logger")

var defaultLogger *zap.SugaredLogger

func init() {
	defaultLogger = NewLogger(false)
}

// NewLogger builds a sugared production logger, or a development one
// when debug is set.
func NewLogger(debug bool) *zap.SugaredLogger {
	config := zap.NewProductionConfig()
	if debug {
		config = zap.NewDevelopmentConfig()
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in the context, falling back
// to the default one.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok {
		return logger
	}
	return defaultLogger
}
