package garmin

import (
	"encoding/json"
	"strings"
	"time"
)

// Activity is one exercise session as reported by the provider's activity
// list. It is a read-through projection: immutable once fetched and never
// persisted except inside the polyline and narrative caches, keyed by ID.
type Activity struct {
	ActivityID     int64        `json:"activityId"`
	ActivityName   string       `json:"activityName"`
	StartTimeLocal string       `json:"startTimeLocal"`
	Duration       float64      `json:"duration"` // seconds
	Distance       float64      `json:"distance"` // meters
	ActivityType   ActivityType `json:"activityType"`

	// StartLatitude distinguishes "known, possibly exactly 0" (indoor or
	// virtual sessions still carry a polyline) from "absent".
	StartLatitude  *float64 `json:"startLatitude"`
	StartLongitude *float64 `json:"startLongitude"`

	AverageHR             float64 `json:"averageHR"`
	AvgPower              float64 `json:"avgPower"`
	NormPower             float64 `json:"normPower"`
	AverageBikingCadence  float64 `json:"averageBikingCadenceInRevPerMinute"`
	AverageRunningCadence float64 `json:"averageRunningCadenceInStepsPerMinute"`
	ElevationGain         float64 `json:"elevationGain"` // meters
}

// ActivityType is the provider's free-text classification wrapper.
type ActivityType struct {
	TypeKey string `json:"typeKey"`
}

// startTimeLayouts are tried in order; the provider emits local civil time
// with no timezone tag.
var startTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// StartTime parses the local start timestamp. ok is false when the value is
// absent or unparseable; callers must treat such activities as unlinkable.
func (a Activity) StartTime() (time.Time, bool) {
	if a.StartTimeLocal == "" {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, a.StartTimeLocal); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Category is a best-effort activity classification.
type Category string

const (
	CategoryRunning Category = "running"
	CategoryCycling Category = "cycling"
	CategoryOther   Category = "other"
)

// Category classifies by substring match against the type tag and the
// free-text name. Inherently fuzzy: a misnamed activity misclassifies, and
// that is accepted.
func (a Activity) Category() Category {
	probe := strings.ToLower(a.ActivityType.TypeKey + " " + a.ActivityName)
	switch {
	case strings.Contains(probe, "run"):
		return CategoryRunning
	case strings.Contains(probe, "cycling") || strings.Contains(probe, "biking") || strings.Contains(probe, "ride"):
		return CategoryCycling
	default:
		return CategoryOther
	}
}

// IsVirtual reports whether the type tag indicates a virtual or indoor
// session. Such activities may still carry a polyline (virtual courses).
func (a Activity) IsVirtual() bool {
	key := strings.ToLower(a.ActivityType.TypeKey)
	return strings.Contains(key, "virtual") || strings.Contains(key, "indoor")
}

// DailyStats is the provider's daily summary document.
type DailyStats struct {
	TotalSteps          int     `json:"totalSteps"`
	TotalStepsGoal      int     `json:"totalStepsGoal"`
	RestingHeartRate    int     `json:"restingHeartRate"`
	AverageStressLevel  int     `json:"averageStressLevel"`
	TotalDistanceMeters float64 `json:"totalDistanceMeters"`
	ActiveKilocalories  float64 `json:"activeKilocalories"`
	FloorsAscended      float64 `json:"floorsAscended"`
	IntensityMinutes    int     `json:"moderateIntensityMinutes"`
	VigorousMinutes     int     `json:"vigorousIntensityMinutes"`
	BodyBatteryHigh     int     `json:"bodyBatteryHighestValue"`
	BodyBatteryLow      int     `json:"bodyBatteryLowestValue"`
}

// SleepData is the provider's sleep detail document. The score lives in
// differently shaped fields across API revisions; Score() applies the one
// documented precedence order.
type SleepData struct {
	DailySleepDTO struct {
		SleepTimeSeconds   int    `json:"sleepTimeSeconds"`
		DeepSleepSeconds   int    `json:"deepSleepSeconds"`
		LightSleepSeconds  int    `json:"lightSleepSeconds"`
		RemSleepSeconds    int    `json:"remSleepSeconds"`
		AwakeSleepSeconds  int    `json:"awakeSleepSeconds"`
		SleepScoreFeedback string `json:"sleepScoreFeedback"`
		SleepScores        struct {
			Overall struct {
				Value int `json:"value"`
			} `json:"overall"`
		} `json:"sleepScores"`
	} `json:"dailySleepDTO"`
	SleepScoreValue int `json:"sleepScoreValue"`
}

// Score returns the sleep score using precedence:
// dailySleepDTO.sleepScores.overall.value, then the top-level
// sleepScoreValue. Zero means no score recorded.
func (s SleepData) Score() int {
	if v := s.DailySleepDTO.SleepScores.Overall.Value; v > 0 {
		return v
	}
	return s.SleepScoreValue
}

// HeartRateDay carries intraday heart-rate samples for one date.
type HeartRateDay struct {
	RestingHeartRate int          `json:"restingHeartRate"`
	MaxHeartRate     int          `json:"maxHeartRate"`
	MinHeartRate     int          `json:"minHeartRate"`
	HeartRateValues  [][2]float64 `json:"heartRateValues"` // [timestamp ms, bpm]
}

// StressDay carries stress samples and the daily average for one date.
type StressDay struct {
	AvgStressLevel    int          `json:"avgStressLevel"`
	MaxStressLevel    int          `json:"maxStressLevel"`
	StressValuesArray [][2]float64 `json:"stressValuesArray"`
}

// Hydration is the provider's daily hydration log.
type Hydration struct {
	ValueInML float64 `json:"valueInML"`
	GoalInML  float64 `json:"goalInML"`
}

// HRVSummary is the provider's daily heart-rate-variability summary.
type HRVSummary struct {
	LastNightAvg    float64 `json:"lastNightAvg"`
	LastNight5MinHi float64 `json:"lastNight5MinHigh"`
	WeeklyAvg       float64 `json:"weeklyAvg"`
	Status          string  `json:"status"`
}

// BodyComposition is the provider's body composition document; weight is in
// grams.
type BodyComposition struct {
	TotalAverage struct {
		Weight float64 `json:"weight"`
	} `json:"totalAverage"`
}

// WeighIn is one daily weigh-in summary; weight is in grams.
type WeighIn struct {
	SummaryDate  string `json:"summaryDate"`
	LatestWeight struct {
		Weight float64 `json:"weight"`
	} `json:"latestWeight"`
}

// WeighIns decodes the provider's weigh-in response, which is either a bare
// list or a wrapper object with dailyWeightSummaries. The wrapper shape wins
// when both could apply.
type WeighIns []WeighIn

// UnmarshalJSON accepts both observed response shapes.
func (w *WeighIns) UnmarshalJSON(data []byte) error {
	var list []WeighIn
	if err := json.Unmarshal(data, &list); err == nil {
		*w = list
		return nil
	}
	var wrapper struct {
		DailyWeightSummaries []WeighIn `json:"dailyWeightSummaries"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}
	*w = wrapper.DailyWeightSummaries
	return nil
}

// Goal is one provider training goal.
type Goal struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	GoalType string  `json:"goalType"`
	Value    float64 `json:"value"`
	Start    string  `json:"startDate"`
	End      string  `json:"endDate"`
}

// MetricDescriptor maps a named time series to its column index inside
// ActivityDetail's metric rows.
type MetricDescriptor struct {
	Key          string `json:"key"`
	MetricsIndex int    `json:"metricsIndex"`
}

// MetricRow is one sample row of an activity's time series.
type MetricRow struct {
	Metrics []*float64 `json:"metrics"`
}

// PolylinePoint is one GPS coordinate of a recorded route.
type PolylinePoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ActivityDetail is the heavy per-activity document: descriptor-indexed time
// series plus an optional GPS polyline.
type ActivityDetail struct {
	ActivityID            int64              `json:"activityId"`
	MetricDescriptors     []MetricDescriptor `json:"metricDescriptors"`
	ActivityDetailMetrics []MetricRow        `json:"activityDetailMetrics"`
	GeoPolylineDTO        struct {
		Polyline []PolylinePoint `json:"polyline"`
	} `json:"geoPolylineDTO"`
	SummaryDTO map[string]any `json:"summaryDTO"`
}

// KeyMap returns the descriptor key → column index mapping.
func (d ActivityDetail) KeyMap() map[string]int {
	m := make(map[string]int, len(d.MetricDescriptors))
	for _, desc := range d.MetricDescriptors {
		m[desc.Key] = desc.MetricsIndex
	}
	return m
}

// Series extracts the named time series, skipping rows where the column is
// absent. Returns nil when the descriptor is unknown.
func (d ActivityDetail) Series(key string) []float64 {
	idx, ok := d.KeyMap()[key]
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(d.ActivityDetailMetrics))
	for _, row := range d.ActivityDetailMetrics {
		if idx < len(row.Metrics) && row.Metrics[idx] != nil {
			out = append(out, *row.Metrics[idx])
		}
	}
	return out
}

// ProgressEntry is one item of the weekly/progress summary keyed by
// activity-type. Distances are in centimeters.
type ProgressEntry struct {
	Stats map[string]struct {
		Distance struct {
			Sum float64 `json:"sum"`
		} `json:"distance"`
		Duration struct {
			Sum float64 `json:"sum"`
		} `json:"duration"`
		Count struct {
			Sum float64 `json:"count"`
		} `json:"count"`
	} `json:"stats"`
}
