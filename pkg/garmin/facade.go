package garmin

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DialFunc produces a freshly authenticated client.
type DialFunc func(ctx context.Context) (Client, error)

// authKeywords mark errors that look like an expired provider session. The
// provider has no documented error taxonomy, so this substring heuristic is
// the best available signal.
var authKeywords = []string{"session", "login", "auth", "expired"}

// isAuthError reports whether err text matches the session-failure heuristic.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range authKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// Facade wraps the shared authenticated client with a uniform retry policy:
// a fixed attempt budget, exponential backoff, and a forced re-dial when the
// error looks session-related. It implements Client so callers never talk to
// the raw handle.
type Facade struct {
	dial DialFunc
	log  *slog.Logger

	attempts int
	backoff  []time.Duration
	sleep    func(time.Duration) // test hook

	mu     sync.Mutex
	client Client
}

// NewFacade wraps dial with the standard 3-attempt, 2s/4s backoff policy.
func NewFacade(dial DialFunc, logger *slog.Logger) *Facade {
	return &Facade{
		dial:     dial,
		log:      logger.With("component", "garmin"),
		attempts: 3,
		backoff:  []time.Duration{2 * time.Second, 4 * time.Second},
		sleep:    time.Sleep,
	}
}

// handle returns the shared client, dialing if none is live.
func (f *Facade) handle(ctx context.Context) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	c, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	f.client = c
	return c, nil
}

// discard drops the shared handle so the next attempt re-authenticates.
func (f *Facade) discard() {
	f.mu.Lock()
	f.client = nil
	f.mu.Unlock()
}

// do runs op against the shared client with the retry policy. On exhausting
// the attempt budget the final error is returned; callers must treat it as
// terminal for that request.
func (f *Facade) do(ctx context.Context, name string, op func(Client) error) error {
	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			f.sleep(f.backoff[attempt-1])
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		c, err := f.handle(ctx)
		if err != nil {
			lastErr = err
			f.log.Warn("provider dial failed", "op", name, "attempt", attempt+1, "error", err)
			if isAuthError(err) {
				f.discard()
			}
			continue
		}

		if err := op(c); err != nil {
			lastErr = err
			f.log.Warn("provider call failed", "op", name, "attempt", attempt+1, "error", err)
			if isAuthError(err) {
				f.discard()
			}
			continue
		}
		return nil
	}
	return lastErr
}

// call adapts a single typed operation through the retry loop.
func call[T any](ctx context.Context, f *Facade, name string, op func(Client) (T, error)) (T, error) {
	var out T
	err := f.do(ctx, name, func(c Client) error {
		v, err := op(c)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (f *Facade) DailyStats(ctx context.Context, date string) (*DailyStats, error) {
	return call(ctx, f, "daily_stats", func(c Client) (*DailyStats, error) { return c.DailyStats(ctx, date) })
}

func (f *Facade) SleepData(ctx context.Context, date string) (*SleepData, error) {
	return call(ctx, f, "sleep_data", func(c Client) (*SleepData, error) { return c.SleepData(ctx, date) })
}

func (f *Facade) HeartRateDay(ctx context.Context, date string) (*HeartRateDay, error) {
	return call(ctx, f, "heart_rate_day", func(c Client) (*HeartRateDay, error) { return c.HeartRateDay(ctx, date) })
}

func (f *Facade) StressDay(ctx context.Context, date string) (*StressDay, error) {
	return call(ctx, f, "stress_day", func(c Client) (*StressDay, error) { return c.StressDay(ctx, date) })
}

func (f *Facade) Hydration(ctx context.Context, date string) (*Hydration, error) {
	return call(ctx, f, "hydration", func(c Client) (*Hydration, error) { return c.Hydration(ctx, date) })
}

func (f *Facade) HRVSummary(ctx context.Context, date string) (*HRVSummary, error) {
	return call(ctx, f, "hrv_summary", func(c Client) (*HRVSummary, error) { return c.HRVSummary(ctx, date) })
}

func (f *Facade) BodyComposition(ctx context.Context, date string) (*BodyComposition, error) {
	return call(ctx, f, "body_composition", func(c Client) (*BodyComposition, error) { return c.BodyComposition(ctx, date) })
}

func (f *Facade) WeighIns(ctx context.Context, start, end string) (WeighIns, error) {
	return call(ctx, f, "weigh_ins", func(c Client) (WeighIns, error) { return c.WeighIns(ctx, start, end) })
}

func (f *Facade) Goals(ctx context.Context, status string) ([]Goal, error) {
	return call(ctx, f, "goals", func(c Client) ([]Goal, error) { return c.Goals(ctx, status) })
}

func (f *Facade) Activities(ctx context.Context, start, limit int) ([]Activity, error) {
	return call(ctx, f, "activities", func(c Client) ([]Activity, error) { return c.Activities(ctx, start, limit) })
}

func (f *Facade) ActivitiesByDate(ctx context.Context, start, end string) ([]Activity, error) {
	return call(ctx, f, "activities_by_date", func(c Client) ([]Activity, error) { return c.ActivitiesByDate(ctx, start, end) })
}

func (f *Facade) ActivityDetail(ctx context.Context, activityID int64) (*ActivityDetail, error) {
	return call(ctx, f, "activity_detail", func(c Client) (*ActivityDetail, error) { return c.ActivityDetail(ctx, activityID) })
}

func (f *Facade) ProgressSummary(ctx context.Context, start, end string) ([]ProgressEntry, error) {
	return call(ctx, f, "progress_summary", func(c Client) ([]ProgressEntry, error) { return c.ProgressSummary(ctx, start, end) })
}

var _ Client = (*Facade)(nil)
