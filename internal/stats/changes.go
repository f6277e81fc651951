package stats

import "fmt"

// Metric names one of the three tracked counters.
type Metric string

const (
	MetricSubscribers Metric = "subscribers"
	MetricViews       Metric = "views"
	MetricVideos      Metric = "videos"
)

// Metrics lists the counters in panel order.
var Metrics = []Metric{MetricSubscribers, MetricViews, MetricVideos}

// Title is the panel heading for m.
func (m Metric) Title() string {
	switch m {
	case MetricSubscribers:
		return "Subscribers"
	case MetricViews:
		return "Views"
	case MetricVideos:
		return "Videos"
	}
	return string(m)
}

// Value reads the counter m from r.
func (r Record) Value(m Metric) uint64 {
	switch m {
	case MetricSubscribers:
		return r.Subscribers
	case MetricViews:
		return r.Views
	case MetricVideos:
		return r.Videos
	}
	return 0
}

// Change is the difference between the latest row and an earlier one.
// Rate is a percentage of the earlier value and is 0 when that value is 0.
type Change struct {
	Valid bool    `json:"valid"`
	Delta int64   `json:"delta"`
	Rate  float64 `json:"rate"`
}

// String renders "+1,234 (+2.50%)", or "n/a" without enough history.
func (c Change) String() string {
	if !c.Valid {
		return "n/a"
	}
	sign := "+"
	delta := c.Delta
	if delta < 0 {
		sign = "-"
		delta = -delta
	}
	return fmt.Sprintf("%s%s (%+.2f%%)", sign, FormatCount(uint64(delta)), c.Rate)
}

// ChangeOver compares the last row with the row offset positions before it.
// Offsets are rows, not days: 1 is the previous run, 7 a week of daily runs.
func (s Series) ChangeOver(m Metric, offset int) Change {
	if offset <= 0 || len(s) <= offset {
		return Change{}
	}
	cur := s[len(s)-1].Value(m)
	prev := s[len(s)-1-offset].Value(m)
	c := Change{Valid: true, Delta: int64(cur) - int64(prev)}
	if prev != 0 {
		c.Rate = float64(c.Delta) / float64(prev) * 100
	}
	return c
}

// Summary holds the latest values with daily and weekly changes per metric.
type Summary struct {
	ChannelID string            `json:"channel_id"`
	Name      string            `json:"name"`
	Latest    Record            `json:"-"`
	Updated   string            `json:"updated"`
	Points    int               `json:"points"`
	Values    map[Metric]uint64 `json:"values"`
	Daily     map[Metric]Change `json:"daily_change"`
	Weekly    map[Metric]Change `json:"weekly_change"`
}

// Summarize computes the overview of s. ok is false for an empty series.
func (s Series) Summarize(name string) (Summary, bool) {
	last, ok := s.Latest()
	if !ok {
		return Summary{}, false
	}
	sum := Summary{
		ChannelID: last.ChannelID,
		Name:      name,
		Latest:    last,
		Updated:   FormatTimestamp(last.Timestamp),
		Points:    len(s),
		Values:    make(map[Metric]uint64, len(Metrics)),
		Daily:     make(map[Metric]Change, len(Metrics)),
		Weekly:    make(map[Metric]Change, len(Metrics)),
	}
	for _, m := range Metrics {
		sum.Values[m] = last.Value(m)
		sum.Daily[m] = s.ChangeOver(m, 1)
		sum.Weekly[m] = s.ChangeOver(m, 7)
	}
	return sum, true
}
