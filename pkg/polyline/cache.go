// Package polyline holds the persistent activity → GPS route cache.
package polyline

import (
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/ripixel/fitpulse/pkg/storage"
)

// MaxPoints is the per-route downsampling bound.
const MaxPoints = 500

// Point is one (latitude, longitude) pair.
type Point [2]float64

// Cache is a persistent map of activity ID to a possibly-empty route.
// Presence of a key, even with an empty route, means "already checked, do
// not retry": re-fetching a confirmed-empty polyline wastes provider quota.
// Entries are never evicted.
type Cache struct {
	path string
	log  *slog.Logger

	mu     sync.Mutex
	routes map[int64][]Point
}

// Open loads the cache from path. A missing or corrupt file yields an empty
// cache; corruption is a cold start, never fatal.
func Open(path string, logger *slog.Logger) *Cache {
	c := &Cache{
		path:   path,
		log:    logger.With("component", "polyline"),
		routes: make(map[int64][]Point),
	}

	var loaded map[int64][]Point
	switch err := storage.LoadJSON(path, &loaded); {
	case err == nil:
		c.routes = loaded
		c.log.Info("polyline cache loaded", "entries", len(loaded))
	case errors.Is(err, os.ErrNotExist):
		c.log.Info("no polyline cache on disk, starting cold")
	default:
		c.log.Warn("polyline cache unreadable, starting cold", "error", err)
	}
	if c.routes == nil {
		c.routes = make(map[int64][]Point)
	}
	return c
}

// Has reports whether id has been checked before.
func (c *Cache) Has(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.routes[id]
	return ok
}

// Get returns the cached route for id, which may be empty.
func (c *Cache) Get(id int64) ([]Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pts, ok := c.routes[id]
	return pts, ok
}

// Set stores the (possibly empty) route for id.
func (c *Cache) Set(id int64, points []Point) {
	if points == nil {
		points = []Point{}
	}
	c.mu.Lock()
	c.routes[id] = points
	c.mu.Unlock()
}

// Len returns the number of checked activities.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.routes)
}

// Save serializes the whole map to disk, overwriting the previous snapshot.
func (c *Cache) Save() error {
	c.mu.Lock()
	snapshot := make(map[int64][]Point, len(c.routes))
	for id, pts := range c.routes {
		snapshot[id] = pts
	}
	c.mu.Unlock()

	if err := storage.SaveJSON(c.path, snapshot); err != nil {
		c.log.Warn("polyline cache save failed", "error", err)
		return err
	}
	return nil
}

// Downsample reduces pts to at most max points by fixed-stride subsampling.
func Downsample(pts []Point, max int) []Point {
	if max <= 0 || len(pts) <= max {
		return pts
	}
	stride := len(pts)/max + 1
	out := make([]Point, 0, max)
	for i := 0; i < len(pts); i += stride {
		out = append(out, pts[i])
	}
	return out
}
