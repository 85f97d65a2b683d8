// Package server exposes the dashboard HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ripixel/fitpulse/pkg/bootstrap"
	"github.com/ripixel/fitpulse/pkg/enrichment"
	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/insights"
	"github.com/ripixel/fitpulse/pkg/nutrition"
	"github.com/ripixel/fitpulse/pkg/polyline"
	"github.com/ripixel/fitpulse/pkg/respcache"
)

// App bundles the handler dependencies. Everything is injected; there are no
// package-level globals, so tests construct Apps around fakes.
type App struct {
	cfg       *bootstrap.Config
	log       *slog.Logger
	provider  garmin.Client
	routes    *polyline.Cache
	scheduler *enrichment.Scheduler
	memoizer  *insights.Memoizer
	cache     *respcache.Cache
	food      *nutrition.Log

	now func() time.Time // test hook
}

// New wires an App from its dependencies.
func New(cfg *bootstrap.Config, logger *slog.Logger, provider garmin.Client, routes *polyline.Cache, scheduler *enrichment.Scheduler, memoizer *insights.Memoizer, cache *respcache.Cache, food *nutrition.Log) *App {
	return &App{
		cfg:       cfg,
		log:       logger.With("component", "server"),
		provider:  provider,
		routes:    routes,
		scheduler: scheduler,
		memoizer:  memoizer,
		cache:     cache,
		food:      food,
		now:       time.Now,
	}
}

// Router builds the chi route tree.
func (a *App) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(a.recoverPanics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/heatmap_data", a.handleHeatmapData)
		r.Get("/ai_insights", a.handleAIInsights)
		r.Get("/contribution_map", a.handleContributionMap)
		r.Get("/ytd_mileage_comparison", a.handleYTDMileageComparison)

		r.Get("/stats", a.handleStats)
		r.Get("/goals", a.handleGoals)
		r.Get("/goals_config", a.handleGoalsConfig)
		r.Get("/longterm_stats", a.handleLongtermStats)
		r.Get("/weight_history", a.handleWeightHistory)
		r.Get("/activity/{id}", a.handleActivityDetail)

		r.Get("/steps_history", a.handleStepsHistory)
		r.Get("/sleep_history", a.handleSleepHistory)
		r.Get("/stress_history", a.handleStressHistory)
		r.Get("/hydration_history", a.handleHydrationHistory)
		r.Get("/hrv_history", a.handleHRVHistory)
		r.Get("/heart_rate_history", a.handleHeartRateHistory)
		r.Get("/intensity_history", a.handleIntensityHistory)

		r.Post("/nutrition/log", a.handleNutritionAdd)
		r.Get("/nutrition/log", a.handleNutritionList)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (a *App) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("dashboard listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		a.log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	// Best-effort final persist of the background-enriched routes.
	_ = a.routes.Save()
	return nil
}
