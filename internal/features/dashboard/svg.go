package dashboard

import (
	"fmt"
	"math"
	"strings"

	"channel-tracker/internal/features/charts"
	"channel-tracker/internal/stats"
)

const (
	svgWidth   = 960.0
	svgHeight  = 260.0
	svgLeft    = 90.0
	svgRight   = 20.0
	svgTop     = 20.0
	svgBottom  = 40.0
	svgGrid    = 4
	svgMaxDays = 8
)

type svgPoint struct {
	X, Y  float64
	Title string
}

type svgLine struct {
	Y     float64
	Label string
}

type svgTick struct {
	X     float64
	Label string
}

// svgChart is everything the template needs to draw one metric.
type svgChart struct {
	Metric   stats.Metric
	Title    string
	Color    string
	Width    float64
	Height   float64
	Left     float64
	Right    float64
	LabelX   float64
	Bottom   float64
	Polyline string
	Points   []svgPoint
	Grid     []svgLine
	Ticks    []svgTick
	Empty    bool
}

// buildChart projects series onto an SVG canvas. Every point carries a
// tooltip with its timestamp and comma-formatted value.
func buildChart(series stats.Series, m stats.Metric) svgChart {
	c := svgChart{
		Metric: m,
		Title:  m.Title(),
		Color:  charts.MetricColors[m],
		Width:  svgWidth,
		Height: svgHeight,
		Left:   svgLeft,
		Right:  svgWidth - svgRight,
		LabelX: svgLeft - 8,
		Bottom: svgHeight - svgBottom,
	}
	if len(series) == 0 {
		c.Empty = true
		return c
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range series {
		v := float64(r.Value(m))
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if hi == lo {
		lo, hi = math.Max(0, lo-1), hi+1
	}
	plotH := c.Bottom - svgTop
	yFor := func(v float64) float64 { return c.Bottom - (v-lo)/(hi-lo)*plotH }

	t0 := series[0].Timestamp
	span := series[len(series)-1].Timestamp.Sub(t0).Seconds()
	xFor := func(i int) float64 {
		switch {
		case len(series) == 1:
			return (c.Left + c.Right) / 2
		case span <= 0:
			return c.Left + float64(i)/float64(len(series)-1)*(c.Right-c.Left)
		}
		return c.Left + series[i].Timestamp.Sub(t0).Seconds()/span*(c.Right-c.Left)
	}

	for g := 0; g <= svgGrid; g++ {
		v := lo + (hi-lo)*float64(g)/svgGrid
		c.Grid = append(c.Grid, svgLine{Y: round1(yFor(v)), Label: stats.FormatCount(uint64(math.Round(v)))})
	}

	var pts strings.Builder
	for i, r := range series {
		p := svgPoint{
			X:     round1(xFor(i)),
			Y:     round1(yFor(float64(r.Value(m)))),
			Title: fmt.Sprintf("%s\n%s: %s", stats.FormatTimestamp(r.Timestamp), m.Title(), stats.FormatCount(r.Value(m))),
		}
		c.Points = append(c.Points, p)
		if i > 0 {
			pts.WriteByte(' ')
		}
		fmt.Fprintf(&pts, "%.1f,%.1f", p.X, p.Y)
	}
	c.Polyline = pts.String()

	step := 1
	if len(series) > svgMaxDays {
		step = int(math.Ceil(float64(len(series)) / svgMaxDays))
	}
	for i := 0; i < len(series); i += step {
		c.Ticks = append(c.Ticks, svgTick{X: round1(xFor(i)), Label: series[i].Timestamp.UTC().Format("01/02")})
	}
	return c
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
