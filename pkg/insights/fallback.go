package insights

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/metrics"
	"github.com/ripixel/fitpulse/pkg/sessions"
)

// numPrinter formats counts with thousands separators in fallback text.
var numPrinter = message.NewPrinter(language.English)

// fallbackNarrative builds a deterministic, locally computed narrative for a
// session when the model is unavailable. No randomness: identical session
// contents always produce identical text.
func fallbackNarrative(s sessions.Session) Narrative {
	if len(s.Activities) == 0 {
		return placeholderNarrative()
	}

	var totalMiles, totalMin float64
	counts := map[garmin.Category]int{}
	for _, a := range s.Activities {
		totalMiles += metrics.MetersToMiles(a.Distance)
		totalMin += a.Duration / 60
		counts[a.Category()]++
	}

	lead := s.Activities[0]
	var highlight, workedOn string
	switch lead.Category() {
	case garmin.CategoryRunning:
		pace := metrics.FormatPace(lead.Duration, lead.Distance)
		if pace != "" {
			highlight = fmt.Sprintf("%.1f mile run at %s/mi", metrics.MetersToMiles(lead.Distance), pace)
		} else {
			highlight = fmt.Sprintf("%.0f minute run", lead.Duration/60)
		}
		workedOn = "aerobic base"
	case garmin.CategoryCycling:
		if mph := metrics.SpeedMPH(lead.Distance, lead.Duration); mph > 0 {
			highlight = fmt.Sprintf("%.1f mile ride at %.1f mph", metrics.MetersToMiles(lead.Distance), mph)
		} else {
			highlight = fmt.Sprintf("%.0f minute ride", lead.Duration/60)
		}
		workedOn = "cycling endurance"
	default:
		highlight = fmt.Sprintf("%.0f minute session", lead.Duration/60)
		workedOn = "general fitness"
	}

	var was string
	if len(s.Activities) == 1 {
		was = fmt.Sprintf("A %s covering %.1f miles in %.0f minutes.",
			strings.ToLower(string(lead.Category())), totalMiles, totalMin)
	} else {
		was = fmt.Sprintf("A block of %d activities covering %.1f miles in %.0f minutes total.",
			len(s.Activities), totalMiles, totalMin)
	}

	return Narrative{
		Highlight:  highlight,
		Was:        was,
		WorkedOn:   workedOn,
		BetterNext: "Keep the routine consistent and build gradually.",
	}
}

// placeholderNarrative covers a session the model response failed to include,
// so no session ever renders without text.
func placeholderNarrative() Narrative {
	return Narrative{
		Highlight:  "Session logged",
		Was:        "A training session was recorded for this block.",
		WorkedOn:   "consistency",
		BetterNext: "More detail will appear once this session is summarized.",
	}
}

// fallbackSummaries derives the top-level summary strings from trend data
// without a model call.
func fallbackSummaries(trends []TrendDay) (daily, yesterday string, suggestions []string) {
	daily = "No recent health data available."
	if len(trends) > 0 {
		today := trends[len(trends)-1]
		daily = numPrinter.Sprintf("Today: %d steps, resting HR %d, stress %d.",
			today.Steps, today.RestingHR, today.StressAvg)
	}
	if len(trends) > 1 {
		y := trends[len(trends)-2]
		yesterday = numPrinter.Sprintf("Yesterday: %d steps and %.1f hours of sleep.",
			y.Steps, float64(y.SleepSeconds)/3600)
	}
	suggestions = []string{
		"Review your recent sessions and plan the next one deliberately.",
		"Prioritize sleep on heavy training days.",
	}
	return daily, yesterday, suggestions
}
