package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"channel-tracker/internal/channels"
	"channel-tracker/internal/clients_api/youtube"
	"channel-tracker/internal/infra/config"
	"channel-tracker/internal/stats"
	"channel-tracker/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	records map[string]stats.Record
	calls   []string
	onFetch func()
}

func (f *fakeFetcher) Fetch(_ context.Context, ch channels.Channel) (stats.Record, error) {
	f.calls = append(f.calls, ch.Ref.String())
	if f.onFetch != nil {
		f.onFetch()
	}
	rec, ok := f.records[ch.Ref.Value()]
	if !ok {
		return stats.Record{}, &youtube.FetchError{Channel: ch.Ref.String(), Kind: youtube.KindQuota, Status: 403}
	}
	return rec, nil
}

func handle(h string) channels.Channel {
	return channels.Channel{Ref: channels.Handle(h), Name: h}
}

func newCSV(t *testing.T) *store.CSVStore {
	s, err := store.NewCSV(t.TempDir(), config.LayoutShared)
	require.NoError(t, err)
	return s
}

func TestRunContinuesPastFailures(t *testing.T) {
	s := newCSV(t)
	f := &fakeFetcher{records: map[string]stats.Record{
		"b": {Timestamp: now, ChannelID: "UCb", Subscribers: 1000, Views: 50000, Videos: 12},
	}}

	sum, err := New(f, s, Options{}).Run(context.Background(), []channels.Channel{handle("a"), handle("b")})
	require.NoError(t, err)

	assert.Equal(t, []string{"@a", "@b"}, f.calls)
	assert.Equal(t, 1, sum.Appended)
	assert.Equal(t, 1, sum.Failed)
	assert.True(t, youtube.IsKind(sum.Err(), youtube.KindQuota))
	assert.Equal(t, StatusFailed, sum.Results[0].Status)
	assert.Equal(t, StatusAppended, sum.Results[1].Status)

	ids, err := s.ChannelIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"UCb"}, ids)

	series, err := s.Series(context.Background(), "UCb")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, uint64(1000), series[0].Subscribers)
}

func TestRunAllFailingWritesNothing(t *testing.T) {
	s := newCSV(t)
	sum, err := New(&fakeFetcher{}, s, Options{}).Run(context.Background(), []channels.Channel{handle("a"), handle("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.Zero(t, sum.Appended)

	ids, err := s.ChannelIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunEmptyChannelList(t *testing.T) {
	sum, err := New(&fakeFetcher{}, newCSV(t), Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sum.Appended+sum.Skipped+sum.Failed)
	assert.NoError(t, sum.Err())
}

func TestSameDayPolicies(t *testing.T) {
	later := now.Add(6 * time.Hour)
	f := &fakeFetcher{records: map[string]stats.Record{"a": {Timestamp: later, ChannelID: "UCa", Subscribers: 2}}}

	t.Run("append keeps both rows", func(t *testing.T) {
		s := newCSV(t)
		require.NoError(t, s.Append(context.Background(), stats.Record{Timestamp: now, ChannelID: "UCa", Subscribers: 1}))

		sum, err := New(f, s, Options{SameDay: config.SameDayAppend}).Run(context.Background(), []channels.Channel{handle("a")})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Appended)

		series, err := s.Series(context.Background(), "UCa")
		require.NoError(t, err)
		assert.Len(t, series, 2)
	})

	t.Run("skip leaves the store alone", func(t *testing.T) {
		s := newCSV(t)
		require.NoError(t, s.Append(context.Background(), stats.Record{Timestamp: now, ChannelID: "UCa", Subscribers: 1}))

		sum, err := New(f, s, Options{SameDay: config.SameDaySkip}).Run(context.Background(), []channels.Channel{handle("a")})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Skipped)
		assert.Zero(t, sum.Appended)

		series, err := s.Series(context.Background(), "UCa")
		require.NoError(t, err)
		assert.Len(t, series, 1)
	})

	t.Run("skip appends on a new day", func(t *testing.T) {
		s := newCSV(t)
		require.NoError(t, s.Append(context.Background(), stats.Record{Timestamp: now.AddDate(0, 0, -1), ChannelID: "UCa"}))

		sum, err := New(f, s, Options{SameDay: config.SameDaySkip}).Run(context.Background(), []channels.Channel{handle("a")})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Appended)
	})
}

type failingStore struct {
	store.Store
	failFor string
}

func (s *failingStore) Append(ctx context.Context, rec stats.Record) error {
	if rec.ChannelID == s.failFor {
		return &store.WriteError{Channel: rec.ChannelID, Path: "x.csv", Err: errors.New("disk full")}
	}
	return s.Store.Append(ctx, rec)
}

func TestAppendErrorFailsOnlyThatChannel(t *testing.T) {
	inner := newCSV(t)
	s := &failingStore{Store: inner, failFor: "UCa"}
	f := &fakeFetcher{records: map[string]stats.Record{
		"a": {Timestamp: now, ChannelID: "UCa"},
		"b": {Timestamp: now, ChannelID: "UCb"},
	}}

	sum, err := New(f, s, Options{}).Run(context.Background(), []channels.Channel{handle("a"), handle("b")})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Appended)

	var we *store.WriteError
	assert.ErrorAs(t, sum.Err(), &we)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{
		records: map[string]stats.Record{"a": {Timestamp: now, ChannelID: "UCa"}, "b": {Timestamp: now, ChannelID: "UCb"}},
		onFetch: cancel,
	}

	sum, err := New(f, newCSV(t), Options{}).Run(ctx, []channels.Channel{handle("a"), handle("b")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"@a"}, f.calls)
	require.NotNil(t, sum)
}
