package scheduler

// Daily runs a job once a day at a wall-clock time in a fixed location.
// The next run is recomputed after every run so DST shifts keep the time of day.

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	logging "channel-tracker/internal/infra/log"

	"go.uber.org/zap"
)

type Daily struct {
	hour, minute int
	loc          *time.Location
	now          func() time.Time
}

// ParseDaily accepts at as "HH:MM" and tz as an IANA zone name ("" means UTC).
func ParseDaily(at, tz string) (*Daily, error) {
	hour, minute, err := parseClock(at)
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}
	return &Daily{hour: hour, minute: minute, loc: loc, now: time.Now}, nil
}

func parseClock(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// Next is the first run time strictly after t.
func (d *Daily) Next(t time.Time) time.Time {
	local := t.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// Run calls job at every scheduled time until ctx is done. Runs never overlap.
func (d *Daily) Run(ctx context.Context, job func(ctx context.Context)) error {
	for {
		now := d.now()
		next := d.Next(now)
		delay := next.Sub(now)
		logging.LogInfo("Next collection scheduled", zap.Time("next", next), zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		job(ctx)
	}
}
