package metrics

import (
	"testing"
	"time"
)

var rangeNow = time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)

func TestParseRange(t *testing.T) {
	cases := []struct {
		name      string
		wantStart string
		wantEnd   string
	}{
		{"this_year", "2026-01-01", "2026-08-24"},
		{"this_month", "2026-08-01", "2026-08-24"},
		{"last_month", "2026-07-01", "2026-07-31"},
		{"last_year", "2025-01-01", "2025-12-31"},
		{"all", "2000-01-01", "2026-08-24"},
		{"90d", "2026-05-26", "2026-08-24"},
		{"anything_else", "2026-05-26", "2026-08-24"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := ParseRange(tc.name, rangeNow)
			if got := start.Format(DateLayout); got != tc.wantStart {
				t.Errorf("start = %s, want %s", got, tc.wantStart)
			}
			if got := end.Format(DateLayout); got != tc.wantEnd {
				t.Errorf("end = %s, want %s", got, tc.wantEnd)
			}
		})
	}
}

func TestParseRange_LastMonthAcrossYearBoundary(t *testing.T) {
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	start, end := ParseRange("last_month", jan)
	if start.Format(DateLayout) != "2025-12-01" || end.Format(DateLayout) != "2025-12-31" {
		t.Errorf("got %s .. %s", start.Format(DateLayout), end.Format(DateLayout))
	}
}

func TestDaysBack(t *testing.T) {
	got := DaysBack(rangeNow, 3)
	want := []string{"2026-08-22", "2026-08-23", "2026-08-24"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %s, want %s", i, got[i], want[i])
		}
	}
}
