package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDaily(t *testing.T) {
	d, err := ParseDaily("09:30", "")
	require.NoError(t, err)
	assert.Equal(t, 9, d.hour)
	assert.Equal(t, 30, d.minute)
	assert.Equal(t, time.UTC, d.loc)

	for _, bad := range []string{"", "9", "24:00", "10:60", "aa:bb", "10:00:00"} {
		_, err := ParseDaily(bad, "")
		assert.Error(t, err, bad)
	}

	_, err = ParseDaily("10:00", "Mars/Olympus")
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	d, err := ParseDaily("10:00", "UTC")
	require.NoError(t, err)

	before := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), d.Next(before))

	exact := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), d.Next(exact))

	endOfMonth := time.Date(2024, 1, 31, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), d.Next(endOfMonth))
}

func TestNextKeepsWallClockAcrossDST(t *testing.T) {
	d, err := ParseDaily("09:00", "Europe/Berlin")
	require.NoError(t, err)

	// clocks move forward on 2024-03-31
	before := time.Date(2024, 3, 30, 12, 0, 0, 0, d.loc)
	next := d.Next(before)
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 31, next.Day())
}

func TestRunStopsOnCancel(t *testing.T) {
	d, err := ParseDaily("00:00", "")
	require.NoError(t, err)
	d.now = func() time.Time { return time.Now().Truncate(24 * time.Hour).Add(24*time.Hour - 20*time.Millisecond) }

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	err = d.Run(ctx, func(context.Context) {
		runs++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runs)
}
