// Package metrics holds date-range math, unit conversion, and bounded
// per-day collection helpers shared by the history endpoints and the
// insights pipeline.
package metrics

import (
	"fmt"
	"math"
)

// The provider reports progress distances in centimeters and weights in
// grams; the dashboard renders miles and pounds.
const (
	milesPerCm    = 0.00000621371
	milesPerMeter = 0.000621371
	lbsPerKg      = 2.20462
)

// CmToMiles converts provider centimeters to miles.
func CmToMiles(cm float64) float64 { return cm * milesPerCm }

// MetersToMiles converts meters to miles.
func MetersToMiles(m float64) float64 { return m * milesPerMeter }

// GramsToLbs converts provider grams to pounds.
func GramsToLbs(g float64) float64 { return g / 1000 * lbsPerKg }

// GramsToKg converts provider grams to kilograms.
func GramsToKg(g float64) float64 { return g / 1000 }

// FormatPace renders a running pace as minutes:seconds per mile. Returns ""
// when distance or duration is missing, which callers render as "n/a".
func FormatPace(durationSec, distanceMeters float64) string {
	miles := MetersToMiles(distanceMeters)
	if miles <= 0 || durationSec <= 0 {
		return ""
	}
	paceMin := durationSec / 60 / miles
	mins := int(paceMin)
	secs := int(math.Round((paceMin - float64(mins)) * 60))
	if secs == 60 {
		mins++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// SpeedMPH computes miles per hour from meters and seconds. Zero when either
// input is missing.
func SpeedMPH(distanceMeters, durationSec float64) float64 {
	if distanceMeters <= 0 || durationSec <= 0 {
		return 0
	}
	return MetersToMiles(distanceMeters) / (durationSec / 3600)
}

// PowerOf picks an activity's power figure with precedence: sampled (derived
// from raw per-sample detail), provider-reported average, provider-reported
// normalized. Missing or zero values mean "not available", never a true zero.
func PowerOf(sampled, avg, norm float64) (float64, bool) {
	switch {
	case sampled > 0:
		return sampled, true
	case avg > 0:
		return avg, true
	case norm > 0:
		return norm, true
	default:
		return 0, false
	}
}

// Round1 rounds to one decimal place, the chart-facing precision.
func Round1(v float64) float64 { return math.Round(v*10) / 10 }
