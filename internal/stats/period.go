package stats

import (
	"fmt"
	"time"
)

// Period selects a trailing window of a series.
type Period string

const (
	PeriodAll    Period = "all"
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	Period90Days Period = "90d"
)

// Periods lists the selectable windows in display order.
var Periods = []Period{PeriodAll, Period7Days, Period30Days, Period90Days}

// ParsePeriod maps a query value onto a Period. Empty means all.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodAll:
		return PeriodAll, nil
	case Period7Days, Period30Days, Period90Days:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

func (p Period) days() int {
	switch p {
	case Period7Days:
		return 7
	case Period30Days:
		return 30
	case Period90Days:
		return 90
	}
	return 0
}

// Label is the human name shown in the viewer.
func (p Period) Label() string {
	if d := p.days(); d > 0 {
		return fmt.Sprintf("Last %d days", d)
	}
	return "All time"
}

// Filter keeps the records with a timestamp at or after now minus the window.
func (s Series) Filter(p Period, now time.Time) Series {
	d := p.days()
	if d == 0 {
		return s
	}
	cutoff := now.UTC().Add(-time.Duration(d) * 24 * time.Hour)
	out := make(Series, 0, len(s))
	for _, r := range s {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
