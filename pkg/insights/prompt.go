package insights

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/metrics"
	"github.com/ripixel/fitpulse/pkg/sessions"
)

// promptHeader frames the batch for the model and pins the output contract.
const promptHeader = `You are a personal fitness coach reviewing a single athlete's recent training.
You are given recent daily health trends, 30-day performance baselines, year-to-date
personal bests, and a list of training sessions. Some sessions already have a
summary (listed by key only, for continuity); write entries ONLY for the new sessions.

Respond with ONLY a JSON object, no prose and no markdown fences, shaped as:
{
  "daily_summary": "...",
  "yesterday_summary": "...",
  "suggestions": ["...", "..."],
  "sessions": {
    "<session_key>": {
      "highlight": "one punchy headline",
      "was": "a short explanatory paragraph",
      "worked_on": "2-4 word tag",
      "better_next": "one forward-looking suggestion"
    }
  }
}

Guidelines:
- Reference specific numbers from the session details.
- Objective but positive tone; no coach cliches.
- Every new session key MUST appear in "sessions".`

// sessionDetail is the structured payload given to the model for a new
// session's member activities.
type sessionDetail struct {
	Key        string           `json:"key"`
	Activities []activityDetail `json:"activities"`
}

type activityDetail struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Start         string  `json:"start"`
	DistanceMiles float64 `json:"distance_miles"`
	DurationMin   float64 `json:"duration_min"`
	Pace          string  `json:"pace,omitempty"`
	SpeedMPH      float64 `json:"speed_mph,omitempty"`
	PowerW        float64 `json:"power_w,omitempty"`
	CadenceRPM    float64 `json:"cadence,omitempty"`
	ElevationGain float64 `json:"elevation_gain_m,omitempty"`
	AvgHR         float64 `json:"avg_hr,omitempty"`
}

func describeActivity(a garmin.Activity) activityDetail {
	d := activityDetail{
		ID:            a.ActivityID,
		Name:          a.ActivityName,
		Type:          a.ActivityType.TypeKey,
		Start:         a.StartTimeLocal,
		DistanceMiles: metrics.Round1(metrics.MetersToMiles(a.Distance)),
		DurationMin:   metrics.Round1(a.Duration / 60),
		ElevationGain: metrics.Round1(a.ElevationGain),
		AvgHR:         a.AverageHR,
	}
	switch a.Category() {
	case garmin.CategoryRunning:
		d.Pace = metrics.FormatPace(a.Duration, a.Distance)
		d.CadenceRPM = a.AverageRunningCadence
	case garmin.CategoryCycling:
		d.SpeedMPH = metrics.Round1(metrics.SpeedMPH(a.Distance, a.Duration))
		d.CadenceRPM = a.AverageBikingCadence
		if w, ok := metrics.PowerOf(0, a.AvgPower, a.NormPower); ok {
			d.PowerW = w
		}
	}
	return d
}

// buildPrompt assembles the single batched prompt: trends, baselines,
// personal bests, full detail for new sessions, and bare keys for sessions
// the memo already covers.
func buildPrompt(newSessions []sessions.Session, knownKeys []string, trends []TrendDay, baselines Baselines, bests PersonalBests) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")

	writeJSONSection := func(title string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", title, data)
	}

	writeJSONSection("Recent daily trends (oldest first)", trends)
	writeJSONSection("30-day baselines", baselines)
	writeJSONSection("Year-to-date personal bests", bests)

	details := make([]sessionDetail, 0, len(newSessions))
	for _, s := range newSessions {
		sd := sessionDetail{Key: s.Key()}
		for _, a := range s.Activities {
			sd.Activities = append(sd.Activities, describeActivity(a))
		}
		details = append(details, sd)
	}
	writeJSONSection("New sessions (write a summary for each)", details)

	if len(knownKeys) > 0 {
		writeJSONSection("Already-summarized session keys (context only, do not rewrite)", knownKeys)
	}

	return b.String()
}

// modelResponse is the expected completion shape. Every field is optional;
// the memoizer backfills whatever the model omits.
type modelResponse struct {
	DailySummary     string               `json:"daily_summary"`
	YesterdaySummary string               `json:"yesterday_summary"`
	Suggestions      []string             `json:"suggestions"`
	Sessions         map[string]Narrative `json:"sessions"`
}

// parseModelResponse decodes a completion, tolerating code fences. An error
// means the whole completion was unusable and the batch must fall back.
func parseModelResponse(raw string) (*modelResponse, error) {
	cleaned := StripCodeFences(raw)
	var resp modelResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	return &resp, nil
}
