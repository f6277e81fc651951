package charts

// Static PNG trend charts: three stacked panels (subscribers, views, videos) per channel.

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/stats"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

// ErrNotEnoughData means the series has fewer than two points; nothing is drawn.
var ErrNotEnoughData = errors.New("at least two data points are needed for a chart")

const (
	chartWidth  = 1200
	chartHeight = 1000

	titleFontSize = 26.0
	panelFontSize = 20.0
	labelFontSize = 14.0

	marginLeft   = 110.0
	marginRight  = 40.0
	marginTop    = 70.0
	marginBottom = 20.0
	panelGap     = 50.0
	panelHeader  = 30.0

	gridLinesCount = 4
	maxDateLabels  = 8
	pointRadius    = 3.5
	lineWidth      = 2.0
)

var (
	backgroundColor = color.White
	textColor       = color.RGBA{33, 37, 41, 255}
	gridColor       = color.RGBA{200, 200, 200, 255}
	axisColor       = color.RGBA{120, 120, 120, 255}
)

// MetricColors are the panel colors shared with the dashboard.
var MetricColors = map[stats.Metric]string{
	stats.MetricSubscribers: "#e74c3c",
	stats.MetricViews:       "#3498db",
	stats.MetricVideos:      "#2ecc71",
}

// fontPaths are probed in order; gg's built-in face is used when none loads.
var fontPaths = []string{
	"etc/fonts/InterVariable.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"./etc/fonts/InterVariable.ttf",
	"./etc/fonts/Inter-Regular.ttf",
	"~/Library/Fonts/InterVariable.ttf",
	"~/Library/Fonts/Inter-Regular.ttf",
	"/Library/Fonts/InterVariable.ttf",
	"/Library/Fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/inter/InterVariable.ttf",
	"/usr/share/fonts/truetype/inter/Inter-Regular.ttf",
	"/usr/local/share/fonts/Inter-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

type Renderer struct {
	fontPath string
}

// NewRenderer probes the font list once.
func NewRenderer() *Renderer {
	return &Renderer{fontPath: findFont(fontPaths)}
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}

func findFont(paths []string) string {
	for _, p := range paths {
		expanded := expandPath(p)
		if _, err := os.Stat(expanded); err != nil {
			continue
		}
		if _, err := gg.LoadFontFace(expanded, labelFontSize); err != nil {
			logging.LogWarn("Font file exists but failed to load", zap.String("path", expanded), zap.Error(err))
			continue
		}
		logging.LogDebug("Loaded chart font", zap.String("path", expanded))
		return expanded
	}
	logging.LogWarn("No TTF font found, using built-in face", zap.Int("paths_checked", len(paths)))
	return ""
}

func (r *Renderer) setFont(dc *gg.Context, size float64) {
	if r.fontPath == "" {
		return
	}
	if err := dc.LoadFontFace(r.fontPath, size); err != nil {
		logging.LogDebug("Failed to set font size", zap.String("path", r.fontPath), zap.Error(err))
	}
}

// RenderChannel writes series to outPath as a PNG. With fewer than two points it
// returns (false, nil) and leaves outPath untouched.
func (r *Renderer) RenderChannel(series stats.Series, title, outPath string) (bool, error) {
	if len(series) < 2 {
		logging.LogInfo("Not enough data to chart", zap.String("title", title), zap.Int("points", len(series)))
		return false, nil
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create charts directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chart-*.png")
	if err != nil {
		return false, fmt.Errorf("failed to create temp chart file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := r.Encode(tmp, series, title); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return false, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to close temp chart file: %w", err)
	}

	fileInfo, err := os.Stat(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to stat chart file: %w", err)
	}
	if fileInfo.Size() == 0 {
		os.Remove(tmpPath)
		logging.LogError("Chart file is empty after rendering", zap.String("filename", outPath))
		return false, fmt.Errorf("chart file is empty after rendering")
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to move chart into place: %w", err)
	}

	logging.LogInfo("Chart generated",
		zap.String("filename", outPath),
		zap.Int64("fileSize", fileInfo.Size()),
		zap.Int("points", len(series)))
	return true, nil
}

// Encode draws series as PNG into w.
func (r *Renderer) Encode(w io.Writer, series stats.Series, title string) error {
	if len(series) < 2 {
		return ErrNotEnoughData
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(backgroundColor)
	dc.Clear()

	r.setFont(dc, titleFontSize)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, chartWidth/2, marginTop/2, 0.5, 0.5)

	n := float64(len(stats.Metrics))
	panelH := (chartHeight - marginTop - marginBottom - panelGap*(n-1)) / n
	for i, m := range stats.Metrics {
		top := marginTop + float64(i)*(panelH+panelGap)
		r.drawPanel(dc, series, m, top, panelH)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode chart: %w", err)
	}
	return nil
}

// drawPanel renders one metric inside the band [top, top+height).
func (r *Renderer) drawPanel(dc *gg.Context, series stats.Series, m stats.Metric, top, height float64) {
	lineColor := parseHex(MetricColors[m])

	r.setFont(dc, panelFontSize)
	dc.SetColor(lineColor)
	dc.DrawString(m.Title(), marginLeft, top+panelFontSize)

	left := marginLeft
	right := chartWidth - marginRight
	plotTop := top + panelHeader
	plotBottom := top + height - labelFontSize*2
	plotH := plotBottom - plotTop

	lo, hi := valueRange(series, m)
	yFor := func(v float64) float64 {
		return plotBottom - (v-lo)/(hi-lo)*plotH
	}

	t0 := series[0].Timestamp
	span := series[len(series)-1].Timestamp.Sub(t0).Seconds()
	xFor := func(i int) float64 {
		if span <= 0 {
			return left + float64(i)/float64(len(series)-1)*(right-left)
		}
		return left + series[i].Timestamp.Sub(t0).Seconds()/span*(right-left)
	}

	// dashed horizontal grid with comma-formatted labels
	r.setFont(dc, labelFontSize)
	dc.SetLineWidth(1)
	for g := 0; g <= gridLinesCount; g++ {
		v := lo + (hi-lo)*float64(g)/gridLinesCount
		y := yFor(v)
		dc.SetColor(gridColor)
		dc.SetDash(6, 4)
		dc.DrawLine(left, y, right, y)
		dc.Stroke()
		dc.SetDash()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(stats.FormatCount(uint64(math.Round(math.Max(v, 0)))), left-10, y, 1, 0.5)
	}

	dc.SetColor(axisColor)
	dc.DrawLine(left, plotBottom, right, plotBottom)
	dc.Stroke()

	// MM/DD labels on evenly spaced points
	step := 1
	if len(series) > maxDateLabels {
		step = int(math.Ceil(float64(len(series)) / maxDateLabels))
	}
	dc.SetColor(textColor)
	for i := 0; i < len(series); i += step {
		dc.DrawStringAnchored(series[i].Timestamp.UTC().Format("01/02"), xFor(i), plotBottom+labelFontSize, 0.5, 0.5)
	}

	dc.SetColor(lineColor)
	dc.SetLineWidth(lineWidth)
	for i := 1; i < len(series); i++ {
		dc.DrawLine(xFor(i-1), yFor(float64(series[i-1].Value(m))), xFor(i), yFor(float64(series[i].Value(m))))
		dc.Stroke()
	}
	for i := range series {
		dc.DrawCircle(xFor(i), yFor(float64(series[i].Value(m))), pointRadius)
		dc.Fill()
	}
}

// valueRange pads the min/max of m so flat lines sit mid-panel.
func valueRange(series stats.Series, m stats.Metric) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rec := range series {
		v := float64(rec.Value(m))
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		pad := math.Max(1, hi*0.01)
		return math.Max(0, lo-pad), hi + pad
	}
	pad := (hi - lo) * 0.05
	return math.Max(0, lo-pad), hi + pad
}

func parseHex(hex string) color.Color {
	var cr, cg, cb uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &cr, &cg, &cb); err != nil {
		return textColor
	}
	return color.RGBA{cr, cg, cb, 255}
}
