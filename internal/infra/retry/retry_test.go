package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastOpts = Options{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"429", &HTTPError{StatusCode: 429}, true},
		{"503 wrapped", fmt.Errorf("call: %w", &HTTPError{StatusCode: 503}), true},
		{"403 quota", &HTTPError{StatusCode: 403}, false},
		{"404", &HTTPError{StatusCode: 404}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOpts, func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: http.StatusBadGateway}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOpts, func() error {
		calls++
		return &HTTPError{StatusCode: http.StatusForbidden}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 2, BaseDelay: time.Millisecond}, func() error {
		calls++
		return &HTTPError{StatusCode: http.StatusServiceUnavailable}
	})
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusServiceUnavailable, he.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestDoZeroRetriesCallsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Options{MaxRetries: 0}, func() error {
		calls++
		return &HTTPError{StatusCode: http.StatusServiceUnavailable}
	})
	assert.Equal(t, 1, calls)
}

func TestDoHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, fastOpts, func() error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	d := ParseRetryAfter(future)
	assert.Greater(t, d, 50*time.Minute)
}

func TestFullJitterSleepBounds(t *testing.T) {
	for attempt := 0; attempt < 6; attempt++ {
		d := FullJitterSleep(attempt, 10*time.Millisecond, 40*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 40*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), FullJitterSleep(1, 0, time.Second))
}
