package insights

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/ripixel/fitpulse/pkg/sessions"
	"github.com/ripixel/fitpulse/pkg/storage"
)

// Narrative is one session's generated coaching entry.
type Narrative struct {
	Highlight  string `json:"highlight"`
	Was        string `json:"was"`
	WorkedOn   string `json:"worked_on"`
	BetterNext string `json:"better_next"`
}

// ActivityInsight is a session narrative unrolled onto one member activity,
// so the UI can look up per-activity even though generation is per-session.
type ActivityInsight struct {
	ActivityID int64  `json:"activity_id"`
	Name       string `json:"name"`
	Highlight  string `json:"highlight"`
	Was        string `json:"was"`
	WorkedOn   string `json:"worked_on"`
	BetterNext string `json:"better_next"`
}

// Report is the assembled insights payload.
type Report struct {
	DailySummary     string            `json:"daily_summary"`
	YesterdaySummary string            `json:"yesterday_summary"`
	Suggestions      []string          `json:"suggestions"`
	ActivityInsights []ActivityInsight `json:"activity_insights"`
	IsAI             bool              `json:"is_ai"`
	ModelName        string            `json:"model_name"`
}

// memoDoc is the persisted shape: narratives keyed by session identity plus
// the last seen health snapshot. Memo entries never expire on their own;
// invalidation happens only when session membership changes the key.
type memoDoc struct {
	ActivitySummaries map[string]Narrative `json:"activity_summaries"`
	LastHealthState   map[string]any       `json:"last_health_state"`
}

// Memoizer persists session narratives and minimizes model calls: known
// sessions never get re-described, and one batched call covers all new ones.
type Memoizer struct {
	path      string
	completer Completer
	log       *slog.Logger

	mu   sync.Mutex
	memo memoDoc
}

// NewMemoizer loads the persisted memo from path. Missing or corrupt state
// is a cold start. completer may be nil, in which case every batch uses the
// deterministic fallback.
func NewMemoizer(path string, completer Completer, logger *slog.Logger) *Memoizer {
	m := &Memoizer{
		path:      path,
		completer: completer,
		log:       logger.With("component", "insights"),
	}

	switch err := storage.LoadJSON(path, &m.memo); {
	case err == nil:
		m.log.Info("narrative memo loaded", "sessions", len(m.memo.ActivitySummaries))
	case errors.Is(err, os.ErrNotExist):
		m.log.Info("no narrative memo on disk, starting cold")
	default:
		m.log.Warn("narrative memo unreadable, starting cold", "error", err)
	}
	if m.memo.ActivitySummaries == nil {
		m.memo.ActivitySummaries = make(map[string]Narrative)
	}
	return m
}

// Known reports whether a session identity already has a narrative.
func (m *Memoizer) Known(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.memo.ActivitySummaries[key]
	return ok
}

// Annotate produces a narrative for every session, calling the model at most
// once for the whole batch. Known sessions reuse the memo; new sessions get
// model entries, with a local placeholder for any the response misses. A
// failed model call degrades the whole batch to the deterministic fallback;
// Annotate never returns an error for that, only for nothing at all.
func (m *Memoizer) Annotate(ctx context.Context, sess []sessions.Session, trends []TrendDay, baselines Baselines, bests PersonalBests) *Report {
	var newSessions []sessions.Session
	var knownKeys []string
	for _, s := range sess {
		if m.Known(s.Key()) {
			knownKeys = append(knownKeys, s.Key())
		} else {
			newSessions = append(newSessions, s)
		}
	}

	report := &Report{IsAI: false, ModelName: "fallback"}

	resp := m.generate(ctx, newSessions, knownKeys, trends, baselines, bests)
	if resp != nil {
		report.IsAI = true
		report.ModelName = m.completer.ModelName()
		report.DailySummary = resp.DailySummary
		report.YesterdaySummary = resp.YesterdaySummary
		report.Suggestions = resp.Suggestions

		// Merge model output for new sessions, placeholders for omissions.
		m.mu.Lock()
		missed := 0
		for _, s := range newSessions {
			key := s.Key()
			if n, ok := resp.Sessions[key]; ok && n.Highlight != "" {
				m.memo.ActivitySummaries[key] = n
			} else {
				m.memo.ActivitySummaries[key] = placeholderNarrative()
				missed++
			}
		}
		m.memo.LastHealthState = healthState(trends)
		m.mu.Unlock()
		if missed > 0 {
			m.log.Warn("model response missed sessions, placeholders synthesized", "missed", missed)
		}
		if err := m.save(); err != nil {
			m.log.Warn("narrative memo save failed", "error", err)
		}
	} else {
		report.DailySummary, report.YesterdaySummary, report.Suggestions = fallbackSummaries(trends)
	}

	report.ActivityInsights = m.unroll(sess, resp == nil)
	return report
}

// generate runs the single batched model call. nil means "use the fallback":
// no completer configured, or the call or its JSON failed.
func (m *Memoizer) generate(ctx context.Context, newSessions []sessions.Session, knownKeys []string, trends []TrendDay, baselines Baselines, bests PersonalBests) *modelResponse {
	if m.completer == nil {
		return nil
	}

	prompt := buildPrompt(newSessions, knownKeys, trends, baselines, bests)
	raw, err := m.completer.Complete(ctx, prompt)
	if err != nil {
		m.log.Warn("model call failed, using fallback narrative", "error", err)
		return nil
	}
	resp, err := parseModelResponse(raw)
	if err != nil {
		m.log.Warn("model response unparseable, using fallback narrative", "error", err)
		return nil
	}
	return resp
}

// unroll maps session-level narratives onto each member activity ID. With
// degraded=true the memo is bypassed and every session gets the
// deterministic fallback, so a failed model call cannot leave gaps.
func (m *Memoizer) unroll(sess []sessions.Session, degraded bool) []ActivityInsight {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ActivityInsight
	for _, s := range sess {
		var n Narrative
		if degraded {
			n = fallbackNarrative(s)
		} else if memoed, ok := m.memo.ActivitySummaries[s.Key()]; ok {
			n = memoed
		} else {
			n = fallbackNarrative(s)
		}
		for _, a := range s.Activities {
			out = append(out, ActivityInsight{
				ActivityID: a.ActivityID,
				Name:       a.ActivityName,
				Highlight:  n.Highlight,
				Was:        n.Was,
				WorkedOn:   n.WorkedOn,
				BetterNext: n.BetterNext,
			})
		}
	}
	return out
}

func (m *Memoizer) save() error {
	m.mu.Lock()
	snapshot := memoDoc{
		ActivitySummaries: make(map[string]Narrative, len(m.memo.ActivitySummaries)),
		LastHealthState:   m.memo.LastHealthState,
	}
	for k, v := range m.memo.ActivitySummaries {
		snapshot.ActivitySummaries[k] = v
	}
	m.mu.Unlock()
	return storage.SaveJSON(m.path, snapshot)
}

// healthState captures the latest trend day for the persisted document.
func healthState(trends []TrendDay) map[string]any {
	if len(trends) == 0 {
		return nil
	}
	latest := trends[len(trends)-1]
	return map[string]any{
		"date":          latest.Date,
		"steps":         latest.Steps,
		"sleep_seconds": latest.SleepSeconds,
		"resting_hr":    latest.RestingHR,
		"stress_avg":    latest.StressAvg,
	}
}
