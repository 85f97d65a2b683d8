package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripixel/fitpulse/pkg/bootstrap"
	"github.com/ripixel/fitpulse/pkg/enrichment"
	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/garmin/garmintest"
	"github.com/ripixel/fitpulse/pkg/insights"
	"github.com/ripixel/fitpulse/pkg/nutrition"
	"github.com/ripixel/fitpulse/pkg/polyline"
	"github.com/ripixel/fitpulse/pkg/respcache"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingCompleter struct {
	resp  string
	err   error
	calls atomic.Int64
}

func (c *countingCompleter) Complete(context.Context, string) (string, error) {
	c.calls.Add(1)
	return c.resp, c.err
}

func (c *countingCompleter) ModelName() string { return "fake-model" }

// testApp bundles the app with the pieces individual tests poke at.
type testApp struct {
	*App
	provider *garmintest.Client
	routes   *polyline.Cache
}

func newTestApp(t *testing.T, provider *garmintest.Client, completer insights.Completer) *testApp {
	t.Helper()
	cfg := &bootstrap.Config{
		SessionGapHours:    2,
		EnrichmentWorkers:  1,
		FetchParallelism:   2,
		MonthlyRunningGoal: 20,
		MonthlyCyclingGoal: 200,
		YearlyRunningGoal:  365,
		YearlyCyclingGoal:  5000,
	}
	log := testLogger()
	dir := t.TempDir()
	routes := polyline.Open(filepath.Join(dir, "routes.json"), log)
	scheduler := enrichment.NewScheduler(provider, routes, 1, log)
	memoizer := insights.NewMemoizer(filepath.Join(dir, "memo.json"), completer, log)
	food := nutrition.OpenLog(filepath.Join(dir, "food.json"), completer, log)
	cache := respcache.New(time.Minute)

	app := New(cfg, log, provider, routes, scheduler, memoizer, cache, food)
	app.now = func() time.Time { return testNow }
	return &testApp{App: app, provider: provider, routes: routes}
}

func (a *testApp) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func latPtr(v float64) *float64 { return &v }

func TestHeatmapData_PartitionsCachedAndMissing(t *testing.T) {
	provider := &garmintest.Client{
		ActivitiesByDateFn: func(_ context.Context, _, _ string) ([]garmin.Activity, error) {
			return []garmin.Activity{
				{ActivityID: 101, StartLatitude: latPtr(51.5), ActivityType: garmin.ActivityType{TypeKey: "running"}},
				{ActivityID: 102, StartLatitude: latPtr(0), ActivityType: garmin.ActivityType{TypeKey: "indoor_cycling"}},
				{ActivityID: 103, ActivityType: garmin.ActivityType{TypeKey: "running"}},
			}, nil
		},
	}
	app := newTestApp(t, provider, nil)
	app.routes.Set(101, []polyline.Point{{51.5, -0.12}, {51.6, -0.13}})

	rec, body := app.get(t, "/api/heatmap_data?range=90d")
	require.Equal(t, http.StatusOK, rec.Code)

	// Only the cached route comes back synchronously; the known-zero indoor
	// ride is a background candidate, the GPS-less run is not.
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, float64(3), body["total_activities"])
	assert.Equal(t, float64(1), body["missing_count"])

	data := body["data"].([]any)
	require.Len(t, data, 1)
	entry := data[0].(map[string]any)
	assert.Equal(t, float64(101), entry["id"])
	assert.Len(t, entry["poly"].([]any), 2)

	// Let the spawned enrichment worker drain before the temp dir goes away.
	require.Eventually(t, func() bool { return !app.scheduler.Running() }, 2*time.Second, 10*time.Millisecond)
}

func TestHeatmapData_SecondRequestServedFromCache(t *testing.T) {
	var fetches atomic.Int64
	provider := &garmintest.Client{
		ActivitiesByDateFn: func(_ context.Context, _, _ string) ([]garmin.Activity, error) {
			fetches.Add(1)
			return nil, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec1, _ := app.get(t, "/api/heatmap_data?range=this_year")
	rec2, _ := app.get(t, "/api/heatmap_data?range=this_year")

	require.Equal(t, http.StatusOK, rec1.Code)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.Equal(t, int64(1), fetches.Load(), "the cached body skips the provider entirely")

	require.Eventually(t, func() bool { return !app.scheduler.Running() }, 2*time.Second, 10*time.Millisecond)
}

func TestHeatmapData_ProviderErrorBody(t *testing.T) {
	provider := &garmintest.Client{
		ActivitiesByDateFn: func(_ context.Context, _, _ string) ([]garmin.Activity, error) {
			return nil, errors.New("connect: connection refused to internal host 10.0.0.3")
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/heatmap_data")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to fetch activities", body["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.3", "internal detail stays out of the response")
}

func TestAIInsights_FallbackWhenNoModel(t *testing.T) {
	provider := &garmintest.Client{
		ActivitiesByDateFn: func(_ context.Context, _, _ string) ([]garmin.Activity, error) {
			return []garmin.Activity{
				{ActivityID: 1, ActivityName: "Morning Run", StartTimeLocal: "2026-08-20 07:00:00",
					ActivityType: garmin.ActivityType{TypeKey: "running"}, Distance: 8046, Duration: 2700},
				{ActivityID: 2, ActivityName: "Evening Ride", StartTimeLocal: "2026-08-21 18:00:00",
					ActivityType: garmin.ActivityType{TypeKey: "cycling"}, Distance: 32186, Duration: 3600},
			}, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/ai_insights")
	require.Equal(t, http.StatusOK, rec.Code, "a missing model never fails the endpoint")

	assert.Equal(t, false, body["is_ai"])
	assert.Equal(t, "fallback", body["model_name"])

	ais := body["activity_insights"].([]any)
	require.Len(t, ais, 2)
	for _, raw := range ais {
		ai := raw.(map[string]any)
		assert.NotEmpty(t, ai["highlight"])
	}
}

func TestAIInsights_ModelCalledOncePerCacheWindow(t *testing.T) {
	provider := &garmintest.Client{
		ActivitiesByDateFn: func(_ context.Context, _, _ string) ([]garmin.Activity, error) {
			return []garmin.Activity{
				{ActivityID: 1, ActivityName: "Run", StartTimeLocal: "2026-08-20 07:00:00",
					ActivityType: garmin.ActivityType{TypeKey: "running"}, Distance: 8046, Duration: 2700},
			}, nil
		},
	}
	completer := &countingCompleter{
		resp: `{"daily_summary":"good","sessions":{"1":{"highlight":"strong run","was":"w","worked_on":"speed","better_next":"b"}}}`,
	}
	app := newTestApp(t, provider, completer)

	rec, body := app.get(t, "/api/ai_insights")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["is_ai"])
	assert.Equal(t, "fake-model", body["model_name"])

	ais := body["activity_insights"].([]any)
	require.Len(t, ais, 1)
	assert.Equal(t, "strong run", ais[0].(map[string]any)["highlight"])

	app.get(t, "/api/ai_insights")
	assert.Equal(t, int64(1), completer.calls.Load(), "the TTL cache bounds model traffic")
}

func TestStats_DegradedSubFetches(t *testing.T) {
	provider := &garmintest.Client{
		DailyStatsFn: func(_ context.Context, date string) (*garmin.DailyStats, error) {
			return &garmin.DailyStats{TotalSteps: 9001, TotalStepsGoal: 10000, RestingHeartRate: 47}, nil
		},
		SleepDataFn: func(_ context.Context, _ string) (*garmin.SleepData, error) {
			return nil, errors.New("no sleep record")
		},
		BodyCompositionFn: func(_ context.Context, date string) (*garmin.BodyComposition, error) {
			var b garmin.BodyComposition
			if date == "2026-08-22" { // two days back
				b.TotalAverage.Weight = 80000
			}
			return &b, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code, "a missing sleep record must not fail the page")

	assert.Equal(t, float64(9001), body["steps"])
	assert.Equal(t, float64(47), body["resting_hr"])
	_, hasSleep := body["sleep_seconds"]
	assert.False(t, hasSleep)
	assert.Equal(t, float64(80000), body["weight_grams"])
	assert.Equal(t, 176.4, body["weight_lbs"])
}

func TestStats_PrimaryFetchFailureIsError(t *testing.T) {
	provider := &garmintest.Client{
		DailyStatsFn: func(_ context.Context, _ string) (*garmin.DailyStats, error) {
			return nil, errors.New("provider down")
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to fetch data from provider", body["error"])
}

func TestGoalsConfig(t *testing.T) {
	app := newTestApp(t, &garmintest.Client{}, nil)

	rec, body := app.get(t, "/api/goals_config")
	require.Equal(t, http.StatusOK, rec.Code)

	monthly := body["monthly"].(map[string]any)
	yearly := body["yearly"].(map[string]any)
	assert.Equal(t, float64(20), monthly["running"])
	assert.Equal(t, float64(200), monthly["cycling"])
	assert.Equal(t, float64(365), yearly["running"])
	assert.Equal(t, float64(5000), yearly["cycling"])
}

func TestWeightHistory_ReversesAndSkipsZeros(t *testing.T) {
	provider := &garmintest.Client{
		WeighInsFn: func(_ context.Context, _, _ string) (garmin.WeighIns, error) {
			// Provider order: newest first. One day has no recorded weight.
			w := make(garmin.WeighIns, 3)
			w[0].SummaryDate = "2026-08-23"
			w[0].LatestWeight.Weight = 80100
			w[1].SummaryDate = "2026-08-22"
			w[2].SummaryDate = "2026-08-21"
			w[2].LatestWeight.Weight = 80500
			return w, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weight_history?range=1m", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "2026-08-21", history[0]["date"], "chart order is earliest first")
	assert.Equal(t, "2026-08-23", history[1]["date"])
	assert.Equal(t, 80.5, history[0]["weight_kg"])
	assert.Equal(t, 177.5, history[0]["weight_lbs"])
}

func TestActivityDetail_InvalidID(t *testing.T) {
	app := newTestApp(t, &garmintest.Client{}, nil)

	rec, body := app.get(t, "/api/activity/not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid activity id", body["error"])
}

func TestActivityDetail_Charts(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	provider := &garmintest.Client{
		ActivityDetailFn: func(_ context.Context, id int64) (*garmin.ActivityDetail, error) {
			return &garmin.ActivityDetail{
				ActivityID: id,
				MetricDescriptors: []garmin.MetricDescriptor{
					{Key: "directTimestamp", MetricsIndex: 0},
					{Key: "directHeartRate", MetricsIndex: 1},
				},
				ActivityDetailMetrics: []garmin.MetricRow{
					{Metrics: []*float64{f(1000), f(140)}},
					{Metrics: []*float64{nil, f(150)}}, // no timestamp, row dropped
					{Metrics: []*float64{f(2000), f(145)}},
				},
				SummaryDTO: map[string]any{"distance": 8046.0},
			}, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/activity/12345")
	require.Equal(t, http.StatusOK, rec.Code)

	charts := body["charts"].(map[string]any)
	assert.Len(t, charts["timestamps"].([]any), 2)
	assert.Len(t, charts["heart_rate"].([]any), 2)
	assert.Equal(t, float64(12345), body["activityId"])
}

func TestStepsHistory_DefaultWeek(t *testing.T) {
	provider := &garmintest.Client{
		DailyStatsFn: func(_ context.Context, date string) (*garmin.DailyStats, error) {
			return &garmin.DailyStats{TotalSteps: 5000, TotalStepsGoal: 10000}, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/steps_history")
	require.Equal(t, http.StatusOK, rec.Code)

	days := body["days"].([]any)
	require.Len(t, days, 7)
	first := days[0].(map[string]any)
	assert.Equal(t, "2026-08-18", first["date"], "oldest first")
}

func TestStepsHistory_FailedDaysOmitted(t *testing.T) {
	provider := &garmintest.Client{
		DailyStatsFn: func(_ context.Context, date string) (*garmin.DailyStats, error) {
			if date == "2026-08-20" {
				return nil, errors.New("provider hiccup")
			}
			return &garmin.DailyStats{TotalSteps: 5000}, nil
		},
	}
	app := newTestApp(t, provider, nil)

	_, body := app.get(t, "/api/steps_history")
	days := body["days"].([]any)
	assert.Len(t, days, 6)
	for _, raw := range days {
		assert.NotEqual(t, "2026-08-20", raw.(map[string]any)["date"])
	}
}

func TestNutrition_AddAndList(t *testing.T) {
	app := newTestApp(t, &garmintest.Client{}, nil)

	payload := `{"date":"2026-08-24","name":"flat white","quantity":"1"}`
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/nutrition/log", strings.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry nutrition.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "flat white", entry.Name)
	assert.False(t, entry.Estimated, "no model configured")

	_, body := app.get(t, "/api/nutrition/log?date=2026-08-24")
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "flat white", entries[0].(map[string]any)["name"])
}

func TestNutrition_AddRequiresName(t *testing.T) {
	app := newTestApp(t, &garmintest.Client{}, nil)

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/nutrition/log", strings.NewReader(`{"date":"2026-08-24"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNutrition_ListEmptyIsArray(t *testing.T) {
	app := newTestApp(t, &garmintest.Client{}, nil)

	rec, body := app.get(t, "/api/nutrition/log?date=2026-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	entries, ok := body["entries"].([]any)
	require.True(t, ok, "entries must be a JSON array even when empty")
	assert.Empty(t, entries)
}

func TestContributionMap(t *testing.T) {
	provider := &garmintest.Client{
		ActivitiesByDateFn: func(_ context.Context, _, _ string) ([]garmin.Activity, error) {
			return []garmin.Activity{
				{ActivityID: 1, StartTimeLocal: "2026-08-20 07:00:00"},
				{ActivityID: 2, StartTimeLocal: "2026-08-20 18:00:00"},
				{ActivityID: 3, StartTimeLocal: "2026-08-21 07:00:00"},
				{ActivityID: 4, StartTimeLocal: "bogus"}, // uncountable
			}, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/contribution_map")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(4), body["total"])
	days := body["days"].(map[string]any)
	assert.Equal(t, float64(2), days["2026-08-20"])
	assert.Equal(t, float64(1), days["2026-08-21"])
}

func TestLongtermStats(t *testing.T) {
	provider := &garmintest.Client{
		ProgressSummaryFn: func(_ context.Context, _, _ string) ([]garmin.ProgressEntry, error) {
			// ~10 miles of running, in provider centimeters.
			var e garmin.ProgressEntry
			if err := json.Unmarshal([]byte(`{"stats":{"running":{"distance":{"sum":1609340}}}}`), &e); err != nil {
				return nil, err
			}
			return []garmin.ProgressEntry{e}, nil
		},
	}
	app := newTestApp(t, provider, nil)

	rec, body := app.get(t, "/api/longterm_stats")
	require.Equal(t, http.StatusOK, rec.Code)

	month := body["month"].(map[string]any)
	assert.InDelta(t, 10.0, month["running"].(float64), 0.01)
	assert.Zero(t, month["cycling"])
}

func TestYTDMileageComparison(t *testing.T) {
	var fetches atomic.Int64
	provider := &garmintest.Client{
		ProgressSummaryFn: func(_ context.Context, start, _ string) ([]garmin.ProgressEntry, error) {
			fetches.Add(1)
			if start == "2025-01-02" {
				return nil, errors.New("provider hiccup")
			}
			// One mile of running per day, in provider centimeters.
			var e garmin.ProgressEntry
			if err := json.Unmarshal([]byte(`{"stats":{"running":{"distance":{"sum":160934}}}}`), &e); err != nil {
				return nil, err
			}
			return []garmin.ProgressEntry{e}, nil
		},
	}
	app := newTestApp(t, provider, nil)
	// Three days into the year keeps the per-day fan-out small.
	app.now = func() time.Time { return time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC) }

	rec, body := app.get(t, "/api/ytd_mileage_comparison")
	require.Equal(t, http.StatusOK, rec.Code)

	labels := body["labels"].([]any)
	require.Len(t, labels, 3)
	assert.Equal(t, "Day 1", labels[0])

	toFloats := func(raw any) []float64 {
		vals := raw.([]any)
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = v.(float64)
		}
		return out
	}

	running := body["running"].(map[string]any)
	years := running["years"].(map[string]any)
	require.Len(t, years, 3, "current year plus the two before it")
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, toFloats(years["2026"]))
	// The failed day carries the running total forward instead of dropping
	// a point.
	assert.Equal(t, []float64{1.0, 1.0, 2.0}, toFloats(years["2025"]))

	assert.Equal(t, []float64{1.0, 2.0, 3.0}, toFloats(running["goal_line"]), "a 365-mile goal paces one mile a day")
	assert.Equal(t, float64(365), running["yearly_goal"])

	cycling := body["cycling"].(map[string]any)
	assert.Equal(t, []float64{0, 0, 0}, toFloats(cycling["years"].(map[string]any)["2026"]))
	assert.Equal(t, float64(5000), cycling["yearly_goal"])

	// Second request comes out of the response cache.
	calls := fetches.Load()
	assert.Equal(t, int64(9), calls, "three days across three years")
	app.get(t, "/api/ytd_mileage_comparison")
	assert.Equal(t, calls, fetches.Load())
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, &garmintest.Client{}, nil)
	rec, body := app.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
