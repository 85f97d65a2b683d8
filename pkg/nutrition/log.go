// Package nutrition logs food items and asks the AI service to estimate
// macros and calories for each entry.
package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ripixel/fitpulse/pkg/insights"
	"github.com/ripixel/fitpulse/pkg/storage"
)

// Entry is one logged food item. Macros are AI estimates, not measurements;
// Estimated is false when the model was unavailable and the entry carries
// only what the operator typed.
type Entry struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity"`
	Calories  float64   `json:"calories"`
	ProteinG  float64   `json:"protein_g"`
	CarbsG    float64   `json:"carbs_g"`
	FatG      float64   `json:"fat_g"`
	Estimated bool      `json:"estimated"`
	LoggedAt  time.Time `json:"logged_at"`
}

// Log is the persisted food log.
type Log struct {
	path      string
	completer insights.Completer
	log       *slog.Logger

	mu      sync.Mutex
	entries []Entry
}

// OpenLog loads the food log from path; missing or corrupt files start cold.
func OpenLog(path string, completer insights.Completer, logger *slog.Logger) *Log {
	l := &Log{
		path:      path,
		completer: completer,
		log:       logger.With("component", "nutrition"),
	}
	switch err := storage.LoadJSON(path, &l.entries); {
	case err == nil:
		l.log.Info("food log loaded", "entries", len(l.entries))
	case errors.Is(err, os.ErrNotExist):
		l.log.Info("no food log on disk, starting cold")
	default:
		l.log.Warn("food log unreadable, starting cold", "error", err)
	}
	return l
}

const macroPrompt = `Estimate the nutrition of this food item.
Item: %s
Quantity: %s

Respond with ONLY a JSON object, no prose and no markdown fences:
{"calories": <number>, "protein_g": <number>, "carbs_g": <number>, "fat_g": <number>}`

type macroEstimate struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Add logs a food item for date, asking the model for a macro estimate. A
// failed or unparseable estimate still logs the entry, just unannotated.
func (l *Log) Add(ctx context.Context, date, name, quantity string) (Entry, error) {
	if name == "" {
		return Entry{}, fmt.Errorf("food name is required")
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	entry := Entry{
		ID:       uuid.NewString(),
		Date:     date,
		Name:     name,
		Quantity: quantity,
		LoggedAt: time.Now(),
	}

	if est, ok := l.estimate(ctx, name, quantity); ok {
		entry.Calories = est.Calories
		entry.ProteinG = est.ProteinG
		entry.CarbsG = est.CarbsG
		entry.FatG = est.FatG
		entry.Estimated = true
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	snapshot := make([]Entry, len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	if err := storage.SaveJSON(l.path, snapshot); err != nil {
		l.log.Warn("food log save failed", "error", err)
	}
	return entry, nil
}

// ForDate returns entries logged for the given date, oldest first.
func (l *Log) ForDate(date string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

func (l *Log) estimate(ctx context.Context, name, quantity string) (macroEstimate, bool) {
	if l.completer == nil {
		return macroEstimate{}, false
	}
	raw, err := l.completer.Complete(ctx, fmt.Sprintf(macroPrompt, name, quantity))
	if err != nil {
		l.log.Warn("macro estimation failed", "error", err)
		return macroEstimate{}, false
	}
	var est macroEstimate
	if err := json.Unmarshal([]byte(insights.StripCodeFences(raw)), &est); err != nil {
		l.log.Warn("macro estimate unparseable", "error", err)
		return macroEstimate{}, false
	}
	return est, true
}
