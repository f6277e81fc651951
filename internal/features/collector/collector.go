package collector

// One collection run: fetch every configured channel in order and append the
// successes. A failing channel is logged and counted; the batch keeps going.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-tracker/internal/channels"
	"channel-tracker/internal/infra/config"
	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/stats"
	"channel-tracker/internal/store"

	"go.uber.org/zap"
)

type Fetcher interface {
	Fetch(ctx context.Context, ch channels.Channel) (stats.Record, error)
}

type Options struct {
	// SameDay is config.SameDayAppend (default) or config.SameDaySkip.
	SameDay string
}

type Status string

const (
	StatusAppended Status = "appended"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Result is the outcome for one channel.
type Result struct {
	Channel channels.Channel
	Record  stats.Record
	Status  Status
	Err     error
}

type Summary struct {
	Appended int
	Skipped  int
	Failed   int
	Results  []Result
	Duration time.Duration
}

// Err joins the per-channel failures, or nil when every channel succeeded.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

type Collector struct {
	fetcher Fetcher
	store   store.Store
	opts    Options
}

func New(f Fetcher, s store.Store, opts Options) *Collector {
	if opts.SameDay == "" {
		opts.SameDay = config.SameDayAppend
	}
	return &Collector{fetcher: f, store: s, opts: opts}
}

// Run processes chs sequentially. The returned error is only ever the context's;
// per-channel failures are in the Summary.
func (c *Collector) Run(ctx context.Context, chs []channels.Channel) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Results: make([]Result, 0, len(chs))}

	if len(chs) == 0 {
		logging.LogWarn("No channels configured, nothing to collect")
		return sum, nil
	}

	for _, ch := range chs {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}

		res := c.collectOne(ctx, ch)
		sum.Results = append(sum.Results, res)

		switch res.Status {
		case StatusAppended:
			sum.Appended++
		case StatusSkipped:
			sum.Skipped++
		case StatusFailed:
			sum.Failed++
			if ctx.Err() != nil {
				sum.Duration = time.Since(start)
				return sum, ctx.Err()
			}
		}
	}

	sum.Duration = time.Since(start)
	logging.LogInfo("Collection finished",
		zap.Int("appended", sum.Appended),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int64("duration_ms", sum.Duration.Milliseconds()))
	return sum, nil
}

func (c *Collector) collectOne(ctx context.Context, ch channels.Channel) Result {
	res := Result{Channel: ch}
	fields := []zap.Field{zap.String("channel", ch.Ref.String()), zap.String("name", ch.Name)}

	rec, err := c.fetcher.Fetch(ctx, ch)
	if err != nil {
		logging.LogError(fmt.Sprintf("Failed to fetch %s", ch.Name), append(fields, zap.Error(err))...)
		res.Status, res.Err = StatusFailed, err
		return res
	}
	res.Record = rec
	fields = append(fields, zap.String("channel_id", rec.ChannelID))

	if c.opts.SameDay == config.SameDaySkip {
		latest, ok, err := c.store.Latest(ctx, rec.ChannelID)
		if err != nil {
			logging.LogError(fmt.Sprintf("Failed to read latest record for %s", ch.Name), append(fields, zap.Error(err))...)
			res.Status, res.Err = StatusFailed, fmt.Errorf("read latest %s: %w", rec.ChannelID, err)
			return res
		}
		if ok && stats.SameDay(latest.Timestamp, rec.Timestamp) {
			logging.LogInfo("Already collected today, skipping", append(fields, zap.String("latest", stats.FormatTimestamp(latest.Timestamp)))...)
			res.Status = StatusSkipped
			return res
		}
	}

	if err := c.store.Append(ctx, rec); err != nil {
		logging.LogError(fmt.Sprintf("Failed to save %s", ch.Name), append(fields, zap.Error(err))...)
		res.Status, res.Err = StatusFailed, err
		return res
	}

	logging.LogSuccess(fmt.Sprintf("%s: %s subscribers, %s views, %s videos",
		ch.Name, stats.FormatCount(rec.Subscribers), stats.FormatCount(rec.Views), stats.FormatCount(rec.Videos)),
		fields...)
	res.Status = StatusAppended
	return res
}
