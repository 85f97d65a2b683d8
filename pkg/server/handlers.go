package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/insights"
	"github.com/ripixel/fitpulse/pkg/metrics"
	"github.com/ripixel/fitpulse/pkg/nutrition"
	"github.com/ripixel/fitpulse/pkg/sessions"
)

// sessionGap converts the configured gap hours to a duration.
func (a *App) sessionGap() time.Duration {
	return time.Duration(a.cfg.SessionGapHours * float64(time.Hour))
}

// heatmapEntry is one activity's route in the heatmap payload.
type heatmapEntry struct {
	ID   int64        `json:"id"`
	Type string       `json:"type"`
	Poly [][2]float64 `json:"poly"`
}

// handleHeatmapData returns all cached routes for the requested range and
// kicks off background enrichment for the rest. The synchronous response
// only ever contains what is already known; newly fetched routes appear on a
// later poll.
func (a *App) handleHeatmapData(w http.ResponseWriter, r *http.Request) {
	rangeKey := r.URL.Query().Get("range")
	if rangeKey == "" {
		rangeKey = "90d"
	}

	cacheKey := "heatmap:" + rangeKey
	if body, ok := a.cache.Get(cacheKey); ok {
		respondRaw(w, http.StatusOK, body)
		return
	}

	start, end := metrics.ParseRange(rangeKey, a.now())
	activities, err := a.provider.ActivitiesByDate(r.Context(), start.Format(metrics.DateLayout), end.Format(metrics.DateLayout))
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch activities", err)
		return
	}

	_, missing := a.scheduler.Candidates(activities)

	data := make([]heatmapEntry, 0, len(activities))
	for _, act := range activities {
		pts, ok := a.routes.Get(act.ActivityID)
		if !ok || len(pts) == 0 {
			continue
		}
		poly := make([][2]float64, len(pts))
		for i, p := range pts {
			poly[i] = p
		}
		data = append(data, heatmapEntry{
			ID:   act.ActivityID,
			Type: act.ActivityType.TypeKey,
			Poly: poly,
		})
	}

	resp := map[string]any{
		"count":            len(data),
		"total_activities": len(activities),
		"missing_count":    len(missing),
		"data":             data,
	}

	a.scheduler.Ensure(rangeKey, missing)

	body, err := json.Marshal(resp)
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to encode response", err)
		return
	}
	a.cache.Set(cacheKey, body)
	respondRaw(w, http.StatusOK, body)
}

// handleAIInsights builds the coach narrative: year-to-date activities for
// personal bests, the trailing 30 days grouped into sessions, one batched
// model call for anything new. A failed model call degrades to the local
// fallback but still returns 200 with is_ai=false.
func (a *App) handleAIInsights(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "ai_insights"
	if body, ok := a.cache.Get(cacheKey); ok {
		respondRaw(w, http.StatusOK, body)
		return
	}

	now := a.now()
	yearStart, _ := metrics.ParseRange("this_year", now)
	yearActivities, err := a.provider.ActivitiesByDate(r.Context(), yearStart.Format(metrics.DateLayout), now.Format(metrics.DateLayout))
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch activities", err)
		return
	}

	var recent []garmin.Activity
	cutoff := now.AddDate(0, 0, -30)
	for _, act := range yearActivities {
		if start, ok := act.StartTime(); ok && !start.Before(cutoff) {
			recent = append(recent, act)
		}
	}

	trends := a.collectTrends(r, 7)
	grouped := sessions.Group(recent, a.sessionGap())
	baselines := insights.ComputeBaselines(recent, now)
	bests := insights.ComputePersonalBests(yearActivities, now)

	report := a.memoizer.Annotate(r.Context(), grouped, trends, baselines, bests)

	body, err := json.Marshal(report)
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to encode response", err)
		return
	}
	a.cache.Set(cacheKey, body)
	respondRaw(w, http.StatusOK, body)
}

// collectTrends gathers the per-day trend history fed to the model. Days
// whose stats fetch fails are omitted; a missing sleep record only leaves
// that day's sleep fields zero.
func (a *App) collectTrends(r *http.Request, days int) []insights.TrendDay {
	dates := metrics.DaysBack(a.now(), days)
	collected := metrics.CollectDaily(r.Context(), dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (insights.TrendDay, error) {
			stats, err := a.provider.DailyStats(ctx, date)
			if err != nil {
				return insights.TrendDay{}, err
			}
			td := insights.TrendDay{
				Date:      date,
				Steps:     stats.TotalSteps,
				RestingHR: stats.RestingHeartRate,
				StressAvg: stats.AverageStressLevel,
			}
			if sleep, err := a.provider.SleepData(ctx, date); err == nil {
				td.SleepSeconds = sleep.DailySleepDTO.SleepTimeSeconds
				td.SleepScore = sleep.Score()
			}
			return td, nil
		})

	out := make([]insights.TrendDay, 0, len(collected))
	for _, dv := range collected {
		out = append(out, dv.Value)
	}
	return out
}

// handleContributionMap returns daily activity counts for the current year,
// chart-ready for a calendar grid.
func (a *App) handleContributionMap(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "contribution_map"
	if body, ok := a.cache.Get(cacheKey); ok {
		respondRaw(w, http.StatusOK, body)
		return
	}

	now := a.now()
	start, _ := metrics.ParseRange("this_year", now)
	activities, err := a.provider.ActivitiesByDate(r.Context(), start.Format(metrics.DateLayout), now.Format(metrics.DateLayout))
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch activities", err)
		return
	}

	counts := map[string]int{}
	for _, act := range activities {
		if t, ok := act.StartTime(); ok {
			counts[t.Format(metrics.DateLayout)]++
		}
	}

	body, err := json.Marshal(map[string]any{
		"total": len(activities),
		"days":  counts,
	})
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to encode response", err)
		return
	}
	a.cache.Set(cacheKey, body)
	respondRaw(w, http.StatusOK, body)
}

// handleStats is the landing-page summary: today's headline numbers plus the
// five most recent activities and the latest weigh-in within a week.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := a.now()
	today := now.Format(metrics.DateLayout)

	stats, err := a.provider.DailyStats(ctx, today)
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch data from provider", err)
		return
	}

	resp := map[string]any{
		"steps":      stats.TotalSteps,
		"steps_goal": stats.TotalStepsGoal,
		"resting_hr": stats.RestingHeartRate,
		"stress_avg": stats.AverageStressLevel,
	}

	// Degraded sub-fetches: a missing sleep record or weigh-in must not fail
	// the whole page.
	if sleep, err := a.provider.SleepData(ctx, today); err == nil {
		resp["sleep_seconds"] = sleep.DailySleepDTO.SleepTimeSeconds
		resp["sleep_score"] = sleep.Score()
		resp["sleep_feedback"] = sleep.DailySleepDTO.SleepScoreFeedback
	}

	if acts, err := a.provider.Activities(ctx, 0, 5); err == nil {
		resp["activities"] = acts
	}

	// Most recent weigh-in within the trailing week.
	for i := 0; i < 7; i++ {
		date := now.AddDate(0, 0, -i).Format(metrics.DateLayout)
		body, err := a.provider.BodyComposition(ctx, date)
		if err != nil || body.TotalAverage.Weight == 0 {
			continue
		}
		resp["weight_grams"] = body.TotalAverage.Weight
		resp["weight_lbs"] = metrics.Round1(metrics.GramsToLbs(body.TotalAverage.Weight))
		break
	}

	respondJSON(w, http.StatusOK, resp)
}

func (a *App) handleGoals(w http.ResponseWriter, r *http.Request) {
	active, err := a.provider.Goals(r.Context(), "active")
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch goals", err)
		return
	}
	future, err := a.provider.Goals(r.Context(), "future")
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch goals", err)
		return
	}
	respondJSON(w, http.StatusOK, append(active, future...))
}

func (a *App) handleGoalsConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"monthly": map[string]float64{
			"running": a.cfg.MonthlyRunningGoal,
			"cycling": a.cfg.MonthlyCyclingGoal,
		},
		"yearly": map[string]float64{
			"running": a.cfg.YearlyRunningGoal,
			"cycling": a.cfg.YearlyCyclingGoal,
		},
	})
}

// extractDistanceMiles sums a category's distance (provider centimeters)
// across a progress summary and converts to miles.
func extractDistanceMiles(summary []garmin.ProgressEntry, category string) float64 {
	var totalCm float64
	for _, item := range summary {
		if stats, ok := item.Stats[category]; ok {
			totalCm += stats.Distance.Sum
		}
	}
	return metrics.CmToMiles(totalCm)
}

func (a *App) handleLongtermStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := a.now()
	today := now.Format(metrics.DateLayout)
	monthStart, _ := metrics.ParseRange("this_month", now)
	yearStart, _ := metrics.ParseRange("this_year", now)

	monthSummary, err := a.provider.ProgressSummary(ctx, monthStart.Format(metrics.DateLayout), today)
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch progress summary", err)
		return
	}
	yearSummary, err := a.provider.ProgressSummary(ctx, yearStart.Format(metrics.DateLayout), today)
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch progress summary", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"month": map[string]float64{
			"running": extractDistanceMiles(monthSummary, "running"),
			"cycling": extractDistanceMiles(monthSummary, "cycling"),
		},
		"year": map[string]float64{
			"running": extractDistanceMiles(yearSummary, "running"),
			"cycling": extractDistanceMiles(yearSummary, "cycling"),
		},
	})
}

// weightRangeDays maps the weight_history range parameter to a lookback.
var weightRangeDays = map[string]int{
	"1m": 30,
	"6m": 180,
	"1y": 365,
	"2y": 730,
	"5y": 1825,
}

func (a *App) handleWeightHistory(w http.ResponseWriter, r *http.Request) {
	days, ok := weightRangeDays[r.URL.Query().Get("range")]
	if !ok {
		days = 30
	}
	now := a.now()
	start := now.AddDate(0, 0, -days)

	weighIns, err := a.provider.WeighIns(r.Context(), start.Format(metrics.DateLayout), now.Format(metrics.DateLayout))
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch weight history", err)
		return
	}

	// Chart order: earliest to latest.
	history := make([]map[string]any, 0, len(weighIns))
	for i := len(weighIns) - 1; i >= 0; i-- {
		day := weighIns[i]
		if day.LatestWeight.Weight == 0 {
			continue
		}
		history = append(history, map[string]any{
			"date":       day.SummaryDate,
			"weight_kg":  metrics.Round1(metrics.GramsToKg(day.LatestWeight.Weight)),
			"weight_lbs": metrics.Round1(metrics.GramsToLbs(day.LatestWeight.Weight)),
		})
	}
	respondJSON(w, http.StatusOK, history)
}

// handleActivityDetail reshapes the descriptor-indexed time series into
// aligned chart arrays.
func (a *App) handleActivityDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid activity id", err)
		return
	}

	detail, err := a.provider.ActivityDetail(r.Context(), id)
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to fetch activity details", err)
		return
	}

	keyMap := detail.KeyMap()
	charts := map[string][]float64{
		"timestamps": {},
		"heart_rate": {},
		"speed":      {},
		"elevation":  {},
	}

	colOf := func(row garmin.MetricRow, key string) (float64, bool) {
		idx, ok := keyMap[key]
		if !ok || idx >= len(row.Metrics) || row.Metrics[idx] == nil {
			return 0, false
		}
		return *row.Metrics[idx], true
	}

	for _, row := range detail.ActivityDetailMetrics {
		ts, ok := colOf(row, "directTimestamp")
		if !ok {
			continue
		}
		charts["timestamps"] = append(charts["timestamps"], ts)
		if v, ok := colOf(row, "directHeartRate"); ok {
			charts["heart_rate"] = append(charts["heart_rate"], v)
		}
		if v, ok := colOf(row, "directSpeed"); ok {
			charts["speed"] = append(charts["speed"], v)
		}
		if v, ok := colOf(row, "directElevation"); ok {
			charts["elevation"] = append(charts["elevation"], v)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"activityId": id,
		"charts":     charts,
		"summary":    detail.SummaryDTO,
	})
}

func (a *App) handleNutritionAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string `json:"date"`
		Name     string `json:"name"`
		Quantity string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	entry, err := a.food.Add(r.Context(), req.Date, req.Name, req.Quantity)
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (a *App) handleNutritionList(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = a.now().Format(metrics.DateLayout)
	}
	entries := a.food.ForDate(date)
	if entries == nil {
		entries = []nutrition.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"date": date, "entries": entries})
}
