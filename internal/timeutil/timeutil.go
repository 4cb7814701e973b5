package timeutil

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

// MaxPeriod caps how far back a lookback window may reach.
const MaxPeriod = 366 * 24 * time.Hour

// Window is a lookback range [Start, End) ending at a reference instant.
type Window struct {
	period string
	start  time.Time
	end    time.Time
}

// NewWindow builds the window covering the given period before now.
// Periods are a positive integer followed by m, h, d or w ("90m", "24h", "7d").
func NewWindow(period string, now time.Time) (Window, error) {
	p := normalizePeriod(period)
	dur, err := ParsePeriod(p)
	if err != nil {
		return Window{}, err
	}
	now = now.UTC()
	return Window{period: p, start: now.Add(-dur), end: now}, nil
}

// Period returns the normalized period string.
func (w Window) Period() string { return w.period }

// Start returns the inclusive start of the window.
func (w Window) Start() time.Time { return w.start }

// End returns the exclusive end of the window.
func (w Window) End() time.Time { return w.end }

// IsZero reports whether w was never set.
func (w Window) IsZero() bool { return w.start.IsZero() && w.end.IsZero() }

// Contains reports whether the timestamp falls within [start, end).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.start) && ts.Before(w.end)
}

// ParsePeriod converts a period string into a duration.
func ParsePeriod(period string) (time.Duration, error) {
	p := normalizePeriod(period)
	if len(p) < 2 {
		return 0, ErrInvalidPeriod
	}
	unit := p[len(p)-1]
	value, err := strconv.Atoi(p[:len(p)-1])
	if err != nil || value <= 0 {
		return 0, ErrInvalidPeriod
	}
	var dur time.Duration
	switch unit {
	case 'm':
		dur = time.Duration(value) * time.Minute
	case 'h':
		dur = time.Duration(value) * time.Hour
	case 'd':
		dur = time.Duration(value) * 24 * time.Hour
	case 'w':
		dur = time.Duration(value) * 7 * 24 * time.Hour
	default:
		return 0, ErrInvalidPeriod
	}
	if dur > MaxPeriod {
		return 0, ErrInvalidPeriod
	}
	return dur, nil
}

func normalizePeriod(period string) string {
	return strings.ToLower(strings.TrimSpace(period))
}
