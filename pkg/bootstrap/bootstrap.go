// Package bootstrap loads configuration and builds the shared logger.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration. Everything comes from environment
// variables; a single operator runs this, so there is no config file layer.
type Config struct {
	Addr    string `env:"ADDR" envDefault:":5000"`
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	GarminEmail    string `env:"GARMIN_EMAIL"`
	GarminPassword string `env:"GARMIN_PASSWORD"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// InsightsCacheTTL bounds how long aggregate endpoint bodies (AI
	// insights, heatmap, contribution map) are served from cache.
	InsightsCacheTTL time.Duration `env:"INSIGHTS_CACHE_TTL" envDefault:"1h"`

	SessionGapHours   float64 `env:"SESSION_GAP_HOURS" envDefault:"2"`
	EnrichmentWorkers int     `env:"ENRICHMENT_WORKERS" envDefault:"2"`
	FetchParallelism  int     `env:"FETCH_PARALLELISM" envDefault:"4"`

	MonthlyRunningGoal float64 `env:"MONTHLY_RUNNING_GOAL" envDefault:"20"`
	MonthlyCyclingGoal float64 `env:"MONTHLY_CYCLING_GOAL" envDefault:"200"`
	YearlyRunningGoal  float64 `env:"YEARLY_RUNNING_GOAL" envDefault:"365"`
	YearlyCyclingGoal  float64 `env:"YEARLY_CYCLING_GOAL" envDefault:"5000"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if cfg.GarminEmail == "" || cfg.GarminPassword == "" {
		return nil, fmt.Errorf("GARMIN_EMAIL and GARMIN_PASSWORD must be set")
	}
	return cfg, nil
}

// ParseLevel maps a LOG_LEVEL string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ComponentHandler decorates a slog.Handler so records carrying a
// "component" attribute render as "[component] message". The attribute
// itself still reaches the structured payload, where it stays filterable.
type ComponentHandler struct {
	slog.Handler
	component string
}

func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{Handler: h.Handler.WithGroup(name), component: h.component}
}

func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	comp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			comp = a.Value.String()
		}
	}
	return &ComponentHandler{Handler: h.Handler.WithAttrs(attrs), component: comp}
}

func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	if comp := h.componentFor(r); comp != "" {
		r.Message = "[" + comp + "] " + r.Message
	}
	return h.Handler.Handle(ctx, r)
}

// componentFor resolves the component tag for one record; an attribute on
// the record itself wins over one set earlier via With.
func (h *ComponentHandler) componentFor(r slog.Record) string {
	comp := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false
		}
		return true
	})
	return comp
}

// NewLogger creates the process-wide structured logger.
func NewLogger(serviceName, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}
