package dashboard

import (
	"context"
	"strconv"
	"strings"
	"time"

	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/stats"
	"channel-tracker/internal/store"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

type metrics struct {
	registry         *prometheus.Registry
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// newMetrics builds a private registry so several apps can live in one process.
func newMetrics(s store.Store, names map[string]string) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "channel_tracker_http_request_duration_seconds",
				Help:    "Dashboard request duration in seconds, by route, method and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "channel_tracker_http_requests_in_flight",
			Help: "Number of dashboard requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		m.requestDuration,
		m.requestsInFlight,
		newStoreCollector(s, names),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// middleware records duration per route pattern, never per raw path.
func (m *metrics) middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// copy before Next: fiber reuses the underlying buffers
		method := string([]byte(c.Method()))
		route := routeLabel(string([]byte(c.Path())))
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.requestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())

		logging.LogDebug("Dashboard request",
			zap.String("method", method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		return err
	}
}

// routeLabel collapses channel ids so label cardinality stays bounded.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/channels/") && strings.HasSuffix(path, "/series"):
		return "/api/channels/:id/series"
	case strings.HasPrefix(path, "/charts/"):
		return "/charts/:id.png"
	case path == "/" || path == "/api/channels" || path == "/health/live":
		return path
	}
	return "other"
}

func (m *metrics) handler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}

var (
	latestDesc = map[stats.Metric]*prometheus.Desc{
		stats.MetricSubscribers: prometheus.NewDesc("channel_tracker_subscribers", "Latest stored subscriber count.", []string{"channel_id", "name"}, nil),
		stats.MetricViews:       prometheus.NewDesc("channel_tracker_views", "Latest stored view count.", []string{"channel_id", "name"}, nil),
		stats.MetricVideos:      prometheus.NewDesc("channel_tracker_videos", "Latest stored video count.", []string{"channel_id", "name"}, nil),
	}
	lastUpdateDesc = prometheus.NewDesc("channel_tracker_last_update_timestamp_seconds", "Unix time of the latest stored record.", []string{"channel_id", "name"}, nil)
	pointsDesc     = prometheus.NewDesc("channel_tracker_points", "Number of stored records.", []string{"channel_id", "name"}, nil)
)

// storeCollector reads the store at scrape time, so the gauges always match disk.
type storeCollector struct {
	store store.Store
	names map[string]string
}

func newStoreCollector(s store.Store, names map[string]string) *storeCollector {
	return &storeCollector{store: s, names: names}
}

func (sc *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range latestDesc {
		ch <- d
	}
	ch <- lastUpdateDesc
	ch <- pointsDesc
}

func (sc *storeCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := sc.store.ChannelIDs(ctx)
	if err != nil {
		logging.LogWarn("Metrics scrape failed to list channels", zap.Error(err))
		return
	}
	for _, id := range ids {
		series, err := sc.store.Series(ctx, id)
		if err != nil {
			logging.LogWarn("Metrics scrape failed to read series", zap.String("channel_id", id), zap.Error(err))
			continue
		}
		last, ok := series.Latest()
		if !ok {
			continue
		}
		name := displayName(sc.names, id)
		for _, m := range stats.Metrics {
			ch <- prometheus.MustNewConstMetric(latestDesc[m], prometheus.GaugeValue, float64(last.Value(m)), id, name)
		}
		ch <- prometheus.MustNewConstMetric(lastUpdateDesc, prometheus.GaugeValue, float64(last.Timestamp.Unix()), id, name)
		ch <- prometheus.MustNewConstMetric(pointsDesc, prometheus.GaugeValue, float64(len(series)), id, name)
	}
}
