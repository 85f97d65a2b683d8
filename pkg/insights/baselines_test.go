package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ripixel/fitpulse/pkg/garmin"
)

var baselineNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func run(id int64, start string, meters, seconds float64) garmin.Activity {
	return garmin.Activity{
		ActivityID:     id,
		StartTimeLocal: start,
		ActivityType:   garmin.ActivityType{TypeKey: "running"},
		Distance:       meters,
		Duration:       seconds,
	}
}

func ride(id int64, start string, meters, avgPower, normPower float64) garmin.Activity {
	return garmin.Activity{
		ActivityID:     id,
		StartTimeLocal: start,
		ActivityType:   garmin.ActivityType{TypeKey: "cycling"},
		Distance:       meters,
		Duration:       3600,
		AvgPower:       avgPower,
		NormPower:      normPower,
	}
}

func TestComputeBaselines_ThirtyDayWindow(t *testing.T) {
	activities := []garmin.Activity{
		run(1, "2026-08-20 07:00:00", 8046, 2700),  // in window
		run(2, "2026-08-01 07:00:00", 16093, 5400), // in window, longer
		run(3, "2026-06-01 07:00:00", 42195, 14400), // outside the window
		ride(4, "2026-08-15 07:00:00", 32186, 180, 0),
		ride(5, "2026-08-18 07:00:00", 48280, 0, 220), // norm power fallback
		ride(6, "2026-08-19 07:00:00", 16093, 0, 0),   // no power recorded
	}

	b := ComputeBaselines(activities, baselineNow)

	assert.Equal(t, 2, b.RunCount, "the marathon outside the window is excluded")
	assert.Equal(t, 3, b.RideCount)
	assert.Equal(t, 10.0, b.MaxRunMiles)
	assert.Equal(t, 30.0, b.MaxRideMiles)
	assert.Equal(t, "9:00", b.AvgRunPace)
	// Power averaged only over rides that recorded any: (180+220)/2.
	assert.Equal(t, 200.0, b.AvgRidePowerW)
}

func TestComputeBaselines_Empty(t *testing.T) {
	b := ComputeBaselines(nil, baselineNow)
	assert.Zero(t, b.RunCount)
	assert.Zero(t, b.AvgRidePowerW)
	assert.Empty(t, b.AvgRunPace)
}

func TestComputePersonalBests(t *testing.T) {
	activities := []garmin.Activity{
		run(1, "2026-03-10 07:00:00", 21097, 7200),  // half marathon, 9:09/mi
		run(2, "2026-05-02 07:00:00", 8046, 2250),   // 5mi at 7:30/mi
		run(3, "2026-07-01 07:00:00", 800, 180),     // sprint under a mile, ignored for pace
		run(4, "2025-11-05 07:00:00", 42195, 12600), // previous year, excluded
		ride(5, "2026-04-01 07:00:00", 96560, 210, 230),
		ride(6, "2026-06-15 07:00:00", 32186, 0, 260),
	}

	pb := ComputePersonalBests(activities, baselineNow)

	assert.Equal(t, 13.1, pb.LongestRunMiles)
	assert.Equal(t, 60.0, pb.LongestRideMiles)
	assert.Equal(t, "7:30", pb.FastestRunPace, "sub-mile efforts never set the pace best")
	assert.Equal(t, 260.0, pb.BestRidePowerW)
}

func TestComputePersonalBests_UnparseableStartExcluded(t *testing.T) {
	pb := ComputePersonalBests([]garmin.Activity{run(1, "", 21097, 7200)}, baselineNow)
	assert.Zero(t, pb.LongestRunMiles)
}
