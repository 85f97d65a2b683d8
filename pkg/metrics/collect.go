package metrics

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DayValue pairs a date with its fetched value.
type DayValue[T any] struct {
	Date  string `json:"date"`
	Value T      `json:"value"`
}

// CollectDaily fetches one value per date with bounded request-scoped
// parallelism and joins before returning. Days whose fetch fails are omitted;
// aggregates are computed over available days only. Results come back in
// input date order.
func CollectDaily[T any](ctx context.Context, dates []string, limit int, fetch func(context.Context, string) (T, error)) []DayValue[T] {
	if limit <= 0 {
		limit = 4
	}

	results := make([]*DayValue[T], len(dates))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			v, err := fetch(gctx, date)
			if err != nil {
				// Missing day, omitted from the aggregate.
				return nil
			}
			mu.Lock()
			results[i] = &DayValue[T]{Date: date, Value: v}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]DayValue[T], 0, len(dates))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
