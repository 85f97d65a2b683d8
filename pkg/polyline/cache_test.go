package polyline

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCache_ColdStartOnMissingFile(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "routes.json"), testLogger())
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has(42))
}

func TestCache_ColdStartOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := Open(path, testLogger())
	assert.Equal(t, 0, c.Len(), "corruption is a cold start, never fatal")
}

func TestCache_EmptyRouteCountsAsChecked(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "routes.json"), testLogger())

	c.Set(7, nil)
	assert.True(t, c.Has(7), "a confirmed-empty route must not be re-fetched")

	pts, ok := c.Get(7)
	require.True(t, ok)
	assert.Empty(t, pts)
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")

	c := Open(path, testLogger())
	c.Set(1, []Point{{51.5, -0.12}, {51.6, -0.13}})
	c.Set(2, []Point{})
	require.NoError(t, c.Save())

	reopened := Open(path, testLogger())
	assert.Equal(t, 2, reopened.Len())

	pts, ok := reopened.Get(1)
	require.True(t, ok)
	require.Len(t, pts, 2)
	assert.Equal(t, Point{51.5, -0.12}, pts[0])

	empty, ok := reopened.Get(2)
	require.True(t, ok)
	assert.Empty(t, empty)
}

func TestCache_GrowsMonotonically(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "routes.json"), testLogger())

	prev := 0
	for id := int64(1); id <= 50; id++ {
		c.Set(id, []Point{{float64(id), float64(id)}})
		require.GreaterOrEqual(t, c.Len(), prev, "entries are never evicted")
		prev = c.Len()
	}

	// Overwriting an existing entry must not shrink the cache either.
	c.Set(25, nil)
	assert.Equal(t, 50, c.Len())
}

func TestDownsample(t *testing.T) {
	long := make([]Point, 1203)
	for i := range long {
		long[i] = Point{float64(i), float64(i)}
	}

	out := Downsample(long, MaxPoints)
	assert.LessOrEqual(t, len(out), MaxPoints)
	assert.Equal(t, Point{0, 0}, out[0], "the first point is always kept")

	// Fixed stride: every kept point comes from the original at stride offsets.
	stride := len(long)/MaxPoints + 1
	for i, p := range out {
		assert.Equal(t, long[i*stride], p)
	}

	short := []Point{{1, 1}, {2, 2}}
	assert.Equal(t, short, Downsample(short, MaxPoints), "short routes pass through untouched")
	assert.Empty(t, Downsample(nil, MaxPoints))
}
