package scheduler

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultReloadTimes are the daily catalog reload times.
var DefaultReloadTimes = []string{"06:00", "18:00"}

// clock is a time of day in minutes after midnight
type clock int

func parseTimes(times []string) ([]clock, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("no reload times configured")
	}

	clocks := make([]clock, 0, len(times))
	for _, raw := range times {
		t, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("reload time %q must be HH:MM: %w", raw, err)
		}
		clocks = append(clocks, clock(t.Hour()*60+t.Minute()))
	}

	slices.Sort(clocks)
	return slices.Compact(clocks), nil
}

// NextReload returns the first reload time strictly after now, in now's
// location. Invalid times fall back to DefaultReloadTimes.
func NextReload(now time.Time, times []string) time.Time {
	clocks, err := parseTimes(times)
	if err != nil {
		clocks, _ = parseTimes(DefaultReloadTimes)
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, c := range clocks {
		at := midnight.Add(time.Duration(c) * time.Minute)
		if at.After(now) {
			return at
		}
	}

	first := midnight.AddDate(0, 0, 1)
	return first.Add(time.Duration(clocks[0]) * time.Minute)
}

// ReloadPeriod is the longest gap between two consecutive reloads. A
// catalog older than this has missed at least one reload.
func ReloadPeriod(times []string) time.Duration {
	clocks, err := parseTimes(times)
	if err != nil {
		clocks, _ = parseTimes(DefaultReloadTimes)
	}

	const day = 24 * 60
	longest := clocks[0] + day - clocks[len(clocks)-1]
	for i := 1; i < len(clocks); i++ {
		longest = max(longest, clocks[i]-clocks[i-1])
	}

	return time.Duration(longest) * time.Minute
}
