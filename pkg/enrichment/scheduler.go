// Package enrichment fills the polyline cache in the background. Each change
// of the requested display range bumps a generation counter; workers capture
// their generation at spawn and bail cooperatively the moment it goes stale,
// so a rapidly changing UI range never piles up redundant provider fetches.
package enrichment

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ripixel/fitpulse/pkg/garmin"
	"github.com/ripixel/fitpulse/pkg/polyline"
)

// saveEvery is how many successful polyline writes pass between incremental
// cache persists.
const saveEvery = 20

// DetailFetcher is the slice of the provider capability the worker needs.
type DetailFetcher interface {
	ActivityDetail(ctx context.Context, activityID int64) (*garmin.ActivityDetail, error)
}

// Scheduler owns the spawn decision and the cancellation generation.
type Scheduler struct {
	fetcher DetailFetcher
	cache   *polyline.Cache
	log     *slog.Logger
	workers int

	// gen is read lock-free on the worker hot path; mu guards the
	// three-field spawn transition (gen bump + activeRange + running) so two
	// concurrent requests cannot both win the right to spawn.
	gen         atomic.Int64
	mu          sync.Mutex
	activeRange string
	running     bool
}

// NewScheduler builds a scheduler over the shared polyline cache. workers
// bounds the parallel detail fetches (the provider rate-limits implicitly).
func NewScheduler(fetcher DetailFetcher, cache *polyline.Cache, workers int, logger *slog.Logger) *Scheduler {
	if workers <= 0 {
		workers = 2
	}
	return &Scheduler{
		fetcher: fetcher,
		cache:   cache,
		log:     logger.With("component", "enrichment"),
		workers: workers,
	}
}

// Candidates partitions activities into IDs whose polyline is already cached
// and IDs eligible for a background check. A candidate has a known start
// latitude (zero included, indoor and virtual sessions still carry routes)
// or a virtual/indoor type tag.
func (s *Scheduler) Candidates(activities []garmin.Activity) (cached, missing []int64) {
	for _, a := range activities {
		if a.StartLatitude == nil && !a.IsVirtual() {
			continue
		}
		if s.cache.Has(a.ActivityID) {
			cached = append(cached, a.ActivityID)
		} else {
			missing = append(missing, a.ActivityID)
		}
	}
	return cached, missing
}

// Ensure (re)starts background enrichment for the given display range.
// Changing the range cancels the previous worker implicitly: it observes the
// generation mismatch at its next checkpoint and stops. Same range with no
// live worker respawns under the current generation; same range with a live
// worker is a no-op.
func (s *Scheduler) Ensure(rangeKey string, missing []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case rangeKey != s.activeRange:
		gen := s.gen.Add(1)
		s.activeRange = rangeKey
		s.running = true
		s.log.Info("starting enrichment worker", "range", rangeKey, "generation", gen, "missing", len(missing))
		go s.runWorker(gen, missing)
	case !s.running:
		gen := s.gen.Load()
		s.running = true
		s.log.Info("restarting enrichment worker", "range", rangeKey, "generation", gen, "missing", len(missing))
		go s.runWorker(gen, missing)
	default:
		// Worker already live for this exact range.
	}
}

// Running reports whether a worker is live. Primarily for tests and the
// status endpoint.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runWorker fetches detail for each missing activity and writes the
// downsampled route into the cache. The captured generation is re-checked
// before each item and before acting on each fetched result; a mismatch
// aborts without saving and without touching the running flag, which now
// belongs to the successor worker.
func (s *Scheduler) runWorker(gen int64, ids []int64) {
	ctx := context.Background()

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	var successes atomic.Int64

	for _, id := range ids {
		id := id
		if s.gen.Load() != gen {
			break
		}
		if s.cache.Has(id) {
			continue
		}
		g.Go(func() error {
			detail, err := s.fetcher.ActivityDetail(ctx, id)
			if err != nil {
				// Stays missing; eligible for retry under a future generation.
				s.log.Warn("activity detail fetch failed", "activity_id", id, "error", err)
				return nil
			}
			if s.gen.Load() != gen {
				return nil
			}

			pts := extractRoute(detail)
			s.cache.Set(id, polyline.Downsample(pts, polyline.MaxPoints))

			if n := successes.Add(1); n%saveEvery == 0 {
				_ = s.cache.Save()
			}
			return nil
		})
	}
	_ = g.Wait()

	if s.gen.Load() != gen {
		s.log.Info("enrichment worker cancelled", "generation", gen)
		return
	}

	_ = s.cache.Save()

	s.mu.Lock()
	if s.gen.Load() == gen {
		s.running = false
	}
	s.mu.Unlock()
	s.log.Info("enrichment worker finished", "generation", gen, "fetched", successes.Load())
}

// extractRoute pulls (lat, lon) pairs from the detail document, preferring
// the dedicated polyline DTO and falling back to the latitude/longitude time
// series columns.
func extractRoute(detail *garmin.ActivityDetail) []polyline.Point {
	if pl := detail.GeoPolylineDTO.Polyline; len(pl) > 0 {
		pts := make([]polyline.Point, 0, len(pl))
		for _, p := range pl {
			pts = append(pts, polyline.Point{p.Lat, p.Lon})
		}
		return pts
	}

	keyMap := detail.KeyMap()
	latIdx, okLat := keyMap["directLatitude"]
	lonIdx, okLon := keyMap["directLongitude"]
	if !okLat || !okLon {
		return nil
	}
	var pts []polyline.Point
	for _, row := range detail.ActivityDetailMetrics {
		if latIdx >= len(row.Metrics) || lonIdx >= len(row.Metrics) {
			continue
		}
		lat, lon := row.Metrics[latIdx], row.Metrics[lonIdx]
		if lat == nil || lon == nil {
			continue
		}
		pts = append(pts, polyline.Point{*lat, *lon})
	}
	return pts
}
