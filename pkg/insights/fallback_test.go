package insights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/sessions"
)

func TestFallbackNarrative_Run(t *testing.T) {
	s := sessions.Session{Activities: []garmin.Activity{{
		ActivityID:   1,
		ActivityType: garmin.ActivityType{TypeKey: "running"},
		Distance:     8046, // ~5 miles
		Duration:     2700, // 45 min -> 9:00/mi
	}}}

	n := fallbackNarrative(s)
	assert.Contains(t, n.Highlight, "run")
	assert.Contains(t, n.Highlight, "9:00/mi")
	assert.Equal(t, "aerobic base", n.WorkedOn)
	assert.Contains(t, n.Was, "5.0 miles")
}

func TestFallbackNarrative_Ride(t *testing.T) {
	s := sessions.Session{Activities: []garmin.Activity{{
		ActivityID:   2,
		ActivityType: garmin.ActivityType{TypeKey: "cycling"},
		Distance:     32186, // ~20 miles
		Duration:     3600,
	}}}

	n := fallbackNarrative(s)
	assert.Contains(t, n.Highlight, "ride")
	assert.Contains(t, n.Highlight, "mph")
	assert.Equal(t, "cycling endurance", n.WorkedOn)
}

func TestFallbackNarrative_NoDistance(t *testing.T) {
	s := sessions.Session{Activities: []garmin.Activity{{
		ActivityID:   3,
		ActivityType: garmin.ActivityType{TypeKey: "strength_training"},
		Duration:     1800,
	}}}

	n := fallbackNarrative(s)
	assert.Contains(t, n.Highlight, "30 minute session")
	assert.Equal(t, "general fitness", n.WorkedOn)
}

func TestFallbackNarrative_MultiActivityBlock(t *testing.T) {
	s := sessions.Session{Activities: []garmin.Activity{
		{ActivityID: 1, ActivityType: garmin.ActivityType{TypeKey: "running"}, Distance: 1609, Duration: 600},
		{ActivityID: 2, ActivityType: garmin.ActivityType{TypeKey: "cycling"}, Distance: 16093, Duration: 1800},
	}}

	n := fallbackNarrative(s)
	assert.Contains(t, n.Was, "block of 2 activities")
}

func TestFallbackNarrative_Deterministic(t *testing.T) {
	s := sessions.Session{Activities: []garmin.Activity{{
		ActivityID:   1,
		ActivityType: garmin.ActivityType{TypeKey: "running"},
		Distance:     10000,
		Duration:     3000,
	}}}
	assert.Equal(t, fallbackNarrative(s), fallbackNarrative(s))
}

func TestFallbackSummaries(t *testing.T) {
	trends := []TrendDay{
		{Date: "2026-08-22", Steps: 8200, SleepSeconds: 27000},
		{Date: "2026-08-23", Steps: 12345, RestingHR: 48, StressAvg: 21},
	}

	daily, yesterday, suggestions := fallbackSummaries(trends)
	assert.Contains(t, daily, "12,345 steps")
	assert.Contains(t, daily, "resting HR 48")
	assert.Contains(t, yesterday, "8,200 steps")
	assert.Contains(t, yesterday, "7.5 hours")
	assert.NotEmpty(t, suggestions)

	daily, yesterday, _ = fallbackSummaries(nil)
	assert.Contains(t, daily, "No recent health data")
	assert.Empty(t, yesterday)
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  \n```json\n{\"a\":1}\n```\n  ", `{"a":1}`},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		if got := StripCodeFences(tc.in); got != tc.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	multiline := StripCodeFences("```json\n{\n  \"a\": 1\n}\n```")
	assert.True(t, strings.HasPrefix(multiline, "{"))
	assert.True(t, strings.HasSuffix(multiline, "}"))
}
