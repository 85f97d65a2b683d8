package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ripixel/fitpulse/pkg/metrics"
)

// historyDays parses the days query parameter, defaulting to 7 and capping
// at 90 to bound the per-request provider fan-out.
func historyDays(r *http.Request) int {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		return 7
	}
	if days > 90 {
		return 90
	}
	return days
}

// The history endpoints are deliberately near-identical: fetch N days of one
// metric with bounded parallelism, omit failed days, reshape for charts.

func (a *App) handleStepsHistory(w http.ResponseWriter, r *http.Request) {
	dates := metrics.DaysBack(a.now(), historyDays(r))
	days := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (map[string]any, error) {
			stats, err := a.provider.DailyStats(ctx, date)
			if err != nil {
				return nil, err
			}
			return map[string]any{"steps": stats.TotalSteps, "goal": stats.TotalStepsGoal}, nil
		})
	respondJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (a *App) handleSleepHistory(w http.ResponseWriter, r *http.Request) {
	dates := metrics.DaysBack(a.now(), historyDays(r))
	days := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (map[string]any, error) {
			sleep, err := a.provider.SleepData(ctx, date)
			if err != nil {
				return nil, err
			}
			dto := sleep.DailySleepDTO
			return map[string]any{
				"sleep_seconds": dto.SleepTimeSeconds,
				"deep_seconds":  dto.DeepSleepSeconds,
				"light_seconds": dto.LightSleepSeconds,
				"rem_seconds":   dto.RemSleepSeconds,
				"awake_seconds": dto.AwakeSleepSeconds,
				"score":         sleep.Score(),
			}, nil
		})

	var totalSec, scored, scoreSum int
	for _, d := range days {
		if v, ok := d.Value["sleep_seconds"].(int); ok {
			totalSec += v
		}
		if v, ok := d.Value["score"].(int); ok && v > 0 {
			scored++
			scoreSum += v
		}
	}
	resp := map[string]any{"days": days}
	if len(days) > 0 {
		resp["avg_sleep_seconds"] = totalSec / len(days)
	}
	if scored > 0 {
		resp["avg_score"] = scoreSum / scored
	}
	respondJSON(w, http.StatusOK, resp)
}

func (a *App) handleStressHistory(w http.ResponseWriter, r *http.Request) {
	dates := metrics.DaysBack(a.now(), historyDays(r))
	days := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (map[string]any, error) {
			stress, err := a.provider.StressDay(ctx, date)
			if err != nil {
				return nil, err
			}
			return map[string]any{"avg": stress.AvgStressLevel, "max": stress.MaxStressLevel}, nil
		})
	respondJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (a *App) handleHydrationHistory(w http.ResponseWriter, r *http.Request) {
	dates := metrics.DaysBack(a.now(), historyDays(r))
	days := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (map[string]any, error) {
			h, err := a.provider.Hydration(ctx, date)
			if err != nil {
				return nil, err
			}
			return map[string]any{"value_ml": h.ValueInML, "goal_ml": h.GoalInML}, nil
		})
	respondJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (a *App) handleHRVHistory(w http.ResponseWriter, r *http.Request) {
	dates := metrics.DaysBack(a.now(), historyDays(r))
	days := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (map[string]any, error) {
			hrv, err := a.provider.HRVSummary(ctx, date)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"last_night_avg": hrv.LastNightAvg,
				"weekly_avg":     hrv.WeeklyAvg,
				"status":         hrv.Status,
			}, nil
		})
	respondJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (a *App) handleHeartRateHistory(w http.ResponseWriter, r *http.Request) {
	dates := metrics.DaysBack(a.now(), historyDays(r))
	days := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (map[string]any, error) {
			hr, err := a.provider.HeartRateDay(ctx, date)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"resting": hr.RestingHeartRate,
				"max":     hr.MaxHeartRate,
				"min":     hr.MinHeartRate,
			}, nil
		})
	respondJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (a *App) handleIntensityHistory(w http.ResponseWriter, r *http.Request) {
	dates := metrics.DaysBack(a.now(), historyDays(r))
	days := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (map[string]any, error) {
			stats, err := a.provider.DailyStats(ctx, date)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"moderate": stats.IntensityMinutes,
				"vigorous": stats.VigorousMinutes,
			}, nil
		})
	respondJSON(w, http.StatusOK, map[string]any{"days": days})
}
