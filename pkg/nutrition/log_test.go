package nutrition

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCompleter struct {
	resp string
	err  error
}

func (f *fakeCompleter) Complete(context.Context, string) (string, error) {
	return f.resp, f.err
}

func (f *fakeCompleter) ModelName() string { return "fake-model" }

func TestAdd_WithEstimate(t *testing.T) {
	c := &fakeCompleter{resp: `{"calories":350,"protein_g":12,"carbs_g":45,"fat_g":14}`}
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), c, testLogger())

	entry, err := l.Add(context.Background(), "2026-08-24", "flat white and a croissant", "1 each")
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.True(t, entry.Estimated)
	assert.Equal(t, 350.0, entry.Calories)
	assert.Equal(t, 12.0, entry.ProteinG)
	assert.Equal(t, 45.0, entry.CarbsG)
	assert.Equal(t, 14.0, entry.FatG)
}

func TestAdd_FencedEstimateStillParses(t *testing.T) {
	c := &fakeCompleter{resp: "```json\n{\"calories\":200,\"protein_g\":30,\"carbs_g\":2,\"fat_g\":8}\n```"}
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), c, testLogger())

	entry, err := l.Add(context.Background(), "2026-08-24", "chicken breast", "200g")
	require.NoError(t, err)
	assert.True(t, entry.Estimated)
	assert.Equal(t, 200.0, entry.Calories)
}

func TestAdd_ModelFailureLogsUnannotated(t *testing.T) {
	c := &fakeCompleter{err: errors.New("quota exhausted")}
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), c, testLogger())

	entry, err := l.Add(context.Background(), "2026-08-24", "mystery meal", "")
	require.NoError(t, err, "a failed estimate must not block logging")
	assert.False(t, entry.Estimated)
	assert.Zero(t, entry.Calories)

	assert.Len(t, l.ForDate("2026-08-24"), 1)
}

func TestAdd_UnparseableEstimate(t *testing.T) {
	c := &fakeCompleter{resp: "roughly 400 calories, I'd say"}
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), c, testLogger())

	entry, err := l.Add(context.Background(), "2026-08-24", "pasta", "1 bowl")
	require.NoError(t, err)
	assert.False(t, entry.Estimated)
}

func TestAdd_NilCompleter(t *testing.T) {
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), nil, testLogger())

	entry, err := l.Add(context.Background(), "2026-08-24", "banana", "1")
	require.NoError(t, err)
	assert.False(t, entry.Estimated)
}

func TestAdd_RequiresName(t *testing.T) {
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), nil, testLogger())

	_, err := l.Add(context.Background(), "2026-08-24", "", "2 slices")
	assert.Error(t, err)
	assert.Empty(t, l.ForDate("2026-08-24"))
}

func TestAdd_DefaultsDateToToday(t *testing.T) {
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), nil, testLogger())

	entry, err := l.Add(context.Background(), "", "toast", "2 slices")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.Date)
	assert.Len(t, l.ForDate(entry.Date), 1)
}

func TestForDate_FiltersAndOrders(t *testing.T) {
	l := OpenLog(filepath.Join(t.TempDir(), "food.json"), nil, testLogger())

	for _, item := range []string{"porridge", "salad", "curry"} {
		_, err := l.Add(context.Background(), "2026-08-24", item, "")
		require.NoError(t, err)
	}
	_, err := l.Add(context.Background(), "2026-08-23", "leftovers", "")
	require.NoError(t, err)

	today := l.ForDate("2026-08-24")
	require.Len(t, today, 3)
	assert.Equal(t, "porridge", today[0].Name, "oldest first")
	assert.Equal(t, "curry", today[2].Name)

	assert.Empty(t, l.ForDate("2026-01-01"))
}

func TestOpenLog_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "food.json")

	l := OpenLog(path, nil, testLogger())
	_, err := l.Add(context.Background(), "2026-08-24", "banana", "1")
	require.NoError(t, err)

	reopened := OpenLog(path, nil, testLogger())
	entries := reopened.ForDate("2026-08-24")
	require.Len(t, entries, 1)
	assert.Equal(t, "banana", entries[0].Name)
}
