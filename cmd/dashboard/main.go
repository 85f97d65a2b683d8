// Command dashboard runs the personal fitness dashboard server.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ripixel/fitpulse/pkg/bootstrap"
	"github.com/ripixel/fitpulse/pkg/enrichment"
	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/infrastructure/sentry"
	"github.com/ripixel/fitpulse/pkg/insights"
	"github.com/ripixel/fitpulse/pkg/metrics"
	"github.com/ripixel/fitpulse/pkg/nutrition"
	"github.com/ripixel/fitpulse/pkg/polyline"
	"github.com/ripixel/fitpulse/pkg/respcache"
	"github.com/ripixel/fitpulse/pkg/server"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger("fitpulse", cfg.LogLevel)
	slog.SetDefault(logger)

	if err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		ServerName:  "fitpulse-dashboard",
	}, logger); err != nil {
		logger.Warn("sentry init failed, continuing without error tracking", "error", err)
	}
	defer sentry.Flush(2 * time.Second)

	facade := garmin.NewFacade(func(ctx context.Context) (garmin.Client, error) {
		return garmin.Dial(ctx, cfg.GarminEmail, cfg.GarminPassword)
	}, logger)

	routes := polyline.Open(filepath.Join(cfg.DataDir, "polylines.json"), logger)
	scheduler := enrichment.NewScheduler(facade, routes, cfg.EnrichmentWorkers, logger)

	var completer insights.Completer
	if cfg.GeminiAPIKey != "" {
		completer = insights.NewGeminiCompleter(cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, coach narrative will use the local fallback")
	}

	memoizer := insights.NewMemoizer(filepath.Join(cfg.DataDir, "narratives.json"), completer, logger)
	food := nutrition.OpenLog(filepath.Join(cfg.DataDir, "food_log.json"), completer, logger)
	cache := respcache.New(cfg.InsightsCacheTTL)

	app := server.New(cfg, logger, facade, routes, scheduler, memoizer, cache, food)

	// Warm the provider session off the startup path so the first dashboard
	// request does not pay the login cost.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := facade.DailyStats(ctx, time.Now().Format(metrics.DateLayout)); err != nil {
			logger.Warn("warmup fetch failed", "error", err)
		}
	}()

	if err := app.Run(cfg.Addr); err != nil {
		logger.Error("server exited with error", "error", err)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}
