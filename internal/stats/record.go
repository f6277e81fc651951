package stats

// Shared data model for one channel's statistics over time.

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// TimeLayout is the on-disk timestamp format (UTC, second precision).
const TimeLayout = "2006-01-02 15:04:05"

// Record is one observation of a channel. Counts are never negative.
type Record struct {
	Timestamp   time.Time
	ChannelID   string
	Subscribers uint64
	Views       uint64
	Videos      uint64
}

// Stamp normalises t to the record timestamp precision.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// ParseTimestamp accepts the storage layout, a bare date, and RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatTimestamp renders t in the storage layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// SameDay reports whether two timestamps fall on the same UTC date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// FormatCount renders n with thousands separators, e.g. 1,234,567.
func FormatCount(n uint64) string {
	return humanize.Comma(int64(n))
}

// Series is the history of one channel, oldest first.
type Series []Record

// Sort orders the series by timestamp, keeping insertion order for ties.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp.Before(s[j].Timestamp)
	})
}

// Latest returns the newest record.
func (s Series) Latest() (Record, bool) {
	if len(s) == 0 {
		return Record{}, false
	}
	return s[len(s)-1], true
}
