// Package sessions clusters a chronological activity list into contiguous
// training sessions using an inter-activity time-gap threshold. Sessions are
// the unit of work for the AI narrative: the identity key derived from member
// IDs doubles as the narrative memo key, so changed membership invalidates a
// stale narrative by construction.
package sessions

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ripixel/fitpulse/pkg/garmin"
)

// DefaultGap is the inter-activity threshold used when none is configured.
const DefaultGap = 2 * time.Hour

// Session is an ephemeral grouping of one or more activities. Never
// persisted; recomputed fresh from the current activity list on each request.
type Session struct {
	Activities []garmin.Activity
	Start      time.Time
	End        time.Time
}

// Key derives the session identity: pipe-joined member activity IDs in
// grouping order. Deterministic for identical membership and order.
func (s Session) Key() string {
	ids := make([]string, len(s.Activities))
	for i, a := range s.Activities {
		ids[i] = strconv.FormatInt(a.ActivityID, 10)
	}
	return strings.Join(ids, "|")
}

// Group clusters activities into sessions, most recent first. An activity
// joins the current session when its start time is less than gap after the
// running session end (previous start + duration); otherwise it opens a new
// one. Activities without a parseable start time become singleton sessions:
// the gap comparison can never link them to a neighbor.
func Group(activities []garmin.Activity, gap time.Duration) []Session {
	if gap <= 0 {
		gap = DefaultGap
	}
	if len(activities) == 0 {
		return nil
	}

	// Sort only entries with a parseable start time, ascending; entries
	// without one keep their original slot so they surface as singletons at
	// their original relative position.
	ordered := make([]garmin.Activity, len(activities))
	copy(ordered, activities)
	var timedIdx []int
	for i, a := range ordered {
		if _, ok := a.StartTime(); ok {
			timedIdx = append(timedIdx, i)
		}
	}
	timed := make([]garmin.Activity, len(timedIdx))
	for i, idx := range timedIdx {
		timed[i] = ordered[idx]
	}
	sort.SliceStable(timed, func(i, j int) bool {
		ti, _ := timed[i].StartTime()
		tj, _ := timed[j].StartTime()
		return ti.Before(tj)
	})
	for i, idx := range timedIdx {
		ordered[idx] = timed[i]
	}

	var out []Session
	var cur *Session
	// Singletons that appear while a session is open are held back until it
	// closes, so they never land ahead of the session they interrupted.
	var pending []Session

	for _, a := range ordered {
		start, ok := a.StartTime()
		if !ok {
			single := Session{Activities: []garmin.Activity{a}}
			if cur == nil {
				out = append(out, single)
			} else {
				pending = append(pending, single)
			}
			continue
		}

		end := start.Add(time.Duration(a.Duration * float64(time.Second)))
		if cur != nil && start.Sub(cur.End) < gap {
			cur.Activities = append(cur.Activities, a)
			cur.End = end
			continue
		}

		if cur != nil {
			out = append(out, *cur)
			out = append(out, pending...)
			pending = nil
		}
		cur = &Session{Activities: []garmin.Activity{a}, Start: start, End: end}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	out = append(out, pending...)

	// Newest first, purely for display ordering.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
