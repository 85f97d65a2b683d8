package metrics

import "time"

// DateLayout is the provider's ISO-8601 day format.
const DateLayout = "2006-01-02"

// allDataStart is far enough back to cover any plausible personal archive.
var allDataStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseRange resolves a named display range to inclusive start/end dates.
// Unknown names fall back to the trailing 90 days.
func ParseRange(name string, now time.Time) (start, end time.Time) {
	end = now
	switch name {
	case "this_year":
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	case "this_month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case "last_month":
		firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = firstOfThis.AddDate(0, 0, -1)
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, now.Location())
	case "last_year":
		start = time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, now.Location())
		end = time.Date(now.Year()-1, 12, 31, 0, 0, 0, 0, now.Location())
	case "all":
		start = allDataStart
	default:
		start = now.AddDate(0, 0, -90)
	}
	return start, end
}

// DaysBack returns the ISO dates for the trailing n days ending today,
// oldest first.
func DaysBack(now time.Time, n int) []string {
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, now.AddDate(0, 0, -i).Format(DateLayout))
	}
	return out
}
