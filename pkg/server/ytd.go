package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ripixel/fitpulse/pkg/metrics"
)

// ytdYears is how many years the cumulative mileage comparison charts, the
// current year included.
const ytdYears = 3

// handleYTDMileageComparison charts cumulative running and cycling miles per
// day-of-year for recent years against a linear goal line. It costs one
// provider call per charted day per year, so the body is always served
// through the response cache.
func (a *App) handleYTDMileageComparison(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "ytd_mileage_comparison"
	if body, ok := a.cache.Get(cacheKey); ok {
		respondRaw(w, http.StatusOK, body)
		return
	}

	now := a.now()
	days := now.YearDay()

	labels := make([]string, days)
	for i := range labels {
		labels[i] = fmt.Sprintf("Day %d", i+1)
	}

	runningYears := make(map[string][]float64, ytdYears)
	cyclingYears := make(map[string][]float64, ytdYears)
	for year := now.Year() - (ytdYears - 1); year <= now.Year(); year++ {
		run, cycle := a.cumulativeMiles(r.Context(), year, days)
		runningYears[strconv.Itoa(year)] = run
		cyclingYears[strconv.Itoa(year)] = cycle
	}

	resp := map[string]any{
		"labels": labels,
		"running": map[string]any{
			"years":       runningYears,
			"goal_line":   goalLine(a.cfg.YearlyRunningGoal, days),
			"yearly_goal": a.cfg.YearlyRunningGoal,
		},
		"cycling": map[string]any{
			"years":       cyclingYears,
			"goal_line":   goalLine(a.cfg.YearlyCyclingGoal, days),
			"yearly_goal": a.cfg.YearlyCyclingGoal,
		},
	}

	body, err := json.Marshal(resp)
	if err != nil {
		a.respondError(w, r, http.StatusInternalServerError, "failed to encode response", err)
		return
	}
	a.cache.Set(cacheKey, body)
	respondRaw(w, http.StatusOK, body)
}

// cumulativeMiles builds one cumulative series per category covering the
// first days of the given year. A failed day contributes nothing and the
// running total carries forward, so every series has exactly one point per
// day.
func (a *App) cumulativeMiles(ctx context.Context, year, days int) (run, cycle []float64) {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]string, days)
	for i := range dates {
		dates[i] = jan1.AddDate(0, 0, i).Format(metrics.DateLayout)
	}

	type increment struct{ runCm, cycleCm float64 }
	collected := metrics.CollectDaily(ctx, dates, a.cfg.FetchParallelism,
		func(ctx context.Context, date string) (increment, error) {
			summary, err := a.provider.ProgressSummary(ctx, date, date)
			if err != nil {
				a.log.Warn("progress summary fetch failed", "date", date, "error", err)
				return increment{}, nil
			}
			var inc increment
			for _, item := range summary {
				if stats, ok := item.Stats["running"]; ok {
					inc.runCm += stats.Distance.Sum
				}
				if stats, ok := item.Stats["cycling"]; ok {
					inc.cycleCm += stats.Distance.Sum
				}
			}
			return inc, nil
		})

	var runTotal, cycleTotal float64
	run = make([]float64, 0, days)
	cycle = make([]float64, 0, days)
	for _, day := range collected {
		runTotal += metrics.CmToMiles(day.Value.runCm)
		cycleTotal += metrics.CmToMiles(day.Value.cycleCm)
		run = append(run, metrics.Round1(runTotal))
		cycle = append(cycle, metrics.Round1(cycleTotal))
	}
	return run, cycle
}

// goalLine is the even day-by-day pace toward a yearly mileage goal.
func goalLine(goal float64, days int) []float64 {
	line := make([]float64, days)
	for i := range line {
		line[i] = metrics.Round1(goal / 365 * float64(i+1))
	}
	return line
}
