package dashboard

// Read-only web view over the store: an HTML page with inline SVG charts,
// a small JSON API, on-demand PNG charts and Prometheus metrics.

import (
	"bytes"
	"errors"
	"time"

	"channel-tracker/internal/features/charts"
	"channel-tracker/internal/stats"
	"channel-tracker/internal/store"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
)

type Dashboard struct {
	store    store.Store
	renderer *charts.Renderer
	names    map[string]string
	now      func() time.Time
	metrics  *metrics
}

// New builds the fiber app. names maps channel IDs to display names and may be nil;
// now defaults to time.Now.
func New(s store.Store, renderer *charts.Renderer, names map[string]string, now func() time.Time) *fiber.App {
	if now == nil {
		now = time.Now
	}
	if renderer == nil {
		renderer = charts.NewRenderer()
	}
	d := &Dashboard{store: s, renderer: renderer, names: names, now: now, metrics: newMetrics(s, names)}

	app := fiber.New(fiber.Config{
		AppName:      "channel-tracker dashboard",
		ServerHeader: "channel-tracker",
	})
	d.routes(app)
	return app
}

func (d *Dashboard) routes(app *fiber.App) {
	// metrics wraps recover so a panicking handler is still counted as a 500
	app.Use(d.metrics.middleware())
	app.Use(recoverer.New())

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", d.metrics.handler())

	app.Get("/", d.page)
	app.Get("/api/channels", d.listChannels)
	app.Get("/api/channels/:id/series", d.channelSeries)
	app.Get("/charts/:id.png", d.chartPNG)
}

func displayName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

func (d *Dashboard) period(c fiber.Ctx) (stats.Period, error) {
	p, err := stats.ParsePeriod(c.Query("period"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return p, nil
}

// series loads a channel; unknown or empty channels are a 404.
func (d *Dashboard) series(c fiber.Ctx, id string) (stats.Series, error) {
	if !store.ValidChannelID(id) {
		return nil, fiber.NewError(fiber.StatusNotFound, "channel not found")
	}
	s, err := d.store.Series(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrInvalidChannelID) {
			return nil, fiber.NewError(fiber.StatusNotFound, "channel not found")
		}
		return nil, err
	}
	if len(s) == 0 {
		return nil, fiber.NewError(fiber.StatusNotFound, "channel not found")
	}
	return s, nil
}

func (d *Dashboard) listChannels(c fiber.Ctx) error {
	ids, err := d.store.ChannelIDs(c.Context())
	if err != nil {
		return err
	}

	out := make([]stats.Summary, 0, len(ids))
	for _, id := range ids {
		s, err := d.store.Series(c.Context(), id)
		if err != nil {
			return err
		}
		if sum, ok := s.Summarize(displayName(d.names, id)); ok {
			out = append(out, sum)
		}
	}
	return c.JSON(fiber.Map{"channels": out})
}

type pointJSON struct {
	Timestamp   string `json:"timestamp"`
	Subscribers uint64 `json:"subscribers"`
	Views       uint64 `json:"views"`
	Videos      uint64 `json:"videos"`
}

func (d *Dashboard) channelSeries(c fiber.Ctx) error {
	period, err := d.period(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	s, err := d.series(c, id)
	if err != nil {
		return err
	}

	filtered := s.Filter(period, d.now())
	points := make([]pointJSON, 0, len(filtered))
	for _, r := range filtered {
		points = append(points, pointJSON{
			Timestamp:   stats.FormatTimestamp(r.Timestamp),
			Subscribers: r.Subscribers,
			Views:       r.Views,
			Videos:      r.Videos,
		})
	}
	return c.JSON(fiber.Map{
		"channel_id": id,
		"name":       displayName(d.names, id),
		"period":     period,
		"points":     points,
	})
}

func (d *Dashboard) chartPNG(c fiber.Ctx) error {
	id := c.Params("id")
	s, err := d.series(c, id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := d.renderer.Encode(&buf, s, displayName(d.names, id)); err != nil {
		if errors.Is(err, charts.ErrNotEnoughData) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.Send(buf.Bytes())
}

type link struct {
	ID     string
	Value  string
	Name   string
	Label  string
	Active bool
}

type card struct {
	Title  string
	Color  string
	Value  string
	Daily  string
	Weekly string
}

type channelView struct {
	ID      string
	Name    string
	Updated string
	Points  int
	Cards   []card
	Charts  []svgChart
}

type pageData struct {
	Channels []link
	Periods  []link
	Period   stats.Period
	Selected *channelView
	Now      string
}

func (d *Dashboard) page(c fiber.Ctx) error {
	period, err := d.period(c)
	if err != nil {
		return err
	}
	ids, err := d.store.ChannelIDs(c.Context())
	if err != nil {
		return err
	}

	now := d.now()
	data := pageData{Period: period, Now: stats.FormatTimestamp(now)}

	selected := c.Query("channel")
	explicit := selected != ""
	if !explicit && len(ids) > 0 {
		selected = ids[0]
	}
	found := false
	for _, id := range ids {
		active := id == selected
		found = found || active
		data.Channels = append(data.Channels, link{ID: id, Name: displayName(d.names, id), Active: active})
	}
	for _, p := range stats.Periods {
		data.Periods = append(data.Periods, link{Value: string(p), Label: p.Label(), Active: p == period})
	}

	if selected != "" {
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "channel not found")
		}
		s, err := d.store.Series(c.Context(), selected)
		if err != nil {
			return err
		}
		switch {
		case len(s) > 0:
			data.Selected = d.channelView(selected, s, period, now)
		case explicit:
			return fiber.NewError(fiber.StatusNotFound, "channel not found")
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// channelView computes changes on the full series and draws only the selected period.
func (d *Dashboard) channelView(id string, s stats.Series, period stats.Period, now time.Time) *channelView {
	name := displayName(d.names, id)
	sum, _ := s.Summarize(name)
	view := &channelView{ID: id, Name: name, Updated: sum.Updated, Points: sum.Points}

	filtered := s.Filter(period, now)
	for _, m := range stats.Metrics {
		view.Cards = append(view.Cards, card{
			Title:  m.Title(),
			Color:  charts.MetricColors[m],
			Value:  stats.FormatCount(sum.Values[m]),
			Daily:  sum.Daily[m].String(),
			Weekly: sum.Weekly[m].String(),
		})
		view.Charts = append(view.Charts, buildChart(filtered, m))
	}
	return view
}
