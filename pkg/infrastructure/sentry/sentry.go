// Package sentry wires error tracking for the dashboard server.
package sentry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type Config struct {
	DSN         string
	Environment string
	ServerName  string
}

// Init initializes Sentry. With no DSN configured, error tracking is simply
// disabled and every capture becomes a no-op.
func Init(cfg Config, logger *slog.Logger) error {
	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured - error tracking disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		ServerName:  cfg.ServerName,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	logger.Info("Sentry initialized", "environment", cfg.Environment)
	return nil
}

// CaptureException reports err with optional key-value context.
func CaptureException(err error, context map[string]any) {
	if err == nil {
		return
	}
	if context != nil {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			for key, value := range context {
				scope.SetContext(key, sentry.Context(map[string]any{"value": value}))
			}
		})
	}
	sentry.CaptureException(err)
}

// Flush waits for buffered events to be sent; call on shutdown.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
