package insights

import (
	"time"

	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/metrics"
)

// TrendDay is one day of recent health history fed to the prompt.
type TrendDay struct {
	Date         string `json:"date"`
	Steps        int    `json:"steps"`
	SleepSeconds int    `json:"sleep_seconds"`
	SleepScore   int    `json:"sleep_score"`
	RestingHR    int    `json:"resting_hr"`
	StressAvg    int    `json:"stress_avg"`
}

// Baselines are rolling 30-day performance references per activity category.
type Baselines struct {
	AvgRunPace    string  `json:"avg_run_pace"`
	AvgRidePowerW float64 `json:"avg_ride_power_w"`
	MaxRunMiles   float64 `json:"max_run_miles"`
	MaxRideMiles  float64 `json:"max_ride_miles"`
	RunCount      int     `json:"run_count"`
	RideCount     int     `json:"ride_count"`
}

// PersonalBests are year-to-date markers.
type PersonalBests struct {
	LongestRunMiles  float64 `json:"longest_run_miles"`
	LongestRideMiles float64 `json:"longest_ride_miles"`
	FastestRunPace   string  `json:"fastest_run_pace"`
	BestRidePowerW   float64 `json:"best_ride_power_w"`
}

// ComputeBaselines derives rolling 30-day references from the activity list.
// Averages are computed only over activities carrying the needed fields.
func ComputeBaselines(activities []garmin.Activity, now time.Time) Baselines {
	cutoff := now.AddDate(0, 0, -30)
	var b Baselines
	var runSec, runMeters float64
	var powerSum float64
	var powerN int

	for _, a := range activities {
		start, ok := a.StartTime()
		if !ok || start.Before(cutoff) {
			continue
		}
		miles := metrics.MetersToMiles(a.Distance)
		switch a.Category() {
		case garmin.CategoryRunning:
			b.RunCount++
			runSec += a.Duration
			runMeters += a.Distance
			if miles > b.MaxRunMiles {
				b.MaxRunMiles = metrics.Round1(miles)
			}
		case garmin.CategoryCycling:
			b.RideCount++
			if miles > b.MaxRideMiles {
				b.MaxRideMiles = metrics.Round1(miles)
			}
			if w, ok := metrics.PowerOf(0, a.AvgPower, a.NormPower); ok {
				powerSum += w
				powerN++
			}
		}
	}

	b.AvgRunPace = metrics.FormatPace(runSec, runMeters)
	if powerN > 0 {
		b.AvgRidePowerW = metrics.Round1(powerSum / float64(powerN))
	}
	return b
}

// ComputePersonalBests derives year-to-date markers from the activity list.
func ComputePersonalBests(activities []garmin.Activity, now time.Time) PersonalBests {
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	var pb PersonalBests
	bestPaceMin := 0.0

	for _, a := range activities {
		start, ok := a.StartTime()
		if !ok || start.Before(yearStart) {
			continue
		}
		miles := metrics.MetersToMiles(a.Distance)
		switch a.Category() {
		case garmin.CategoryRunning:
			if miles > pb.LongestRunMiles {
				pb.LongestRunMiles = metrics.Round1(miles)
			}
			// Fastest pace considered only for runs of at least a mile.
			if miles >= 1 && a.Duration > 0 {
				paceMin := a.Duration / 60 / miles
				if bestPaceMin == 0 || paceMin < bestPaceMin {
					bestPaceMin = paceMin
					pb.FastestRunPace = metrics.FormatPace(a.Duration, a.Distance)
				}
			}
		case garmin.CategoryCycling:
			if miles > pb.LongestRideMiles {
				pb.LongestRideMiles = metrics.Round1(miles)
			}
			if w, ok := metrics.PowerOf(0, a.AvgPower, a.NormPower); ok && w > pb.BestRidePowerW {
				pb.BestRidePowerW = metrics.Round1(w)
			}
		}
	}
	return pb
}
