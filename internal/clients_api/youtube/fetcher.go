package youtube

import (
	"context"
	"errors"
	"time"

	"channel-tracker/internal/channels"
	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/stats"

	"go.uber.org/zap"
)

// API is the subset of Client the Fetcher needs.
type API interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	ChannelStatistics(ctx context.Context, id string) (*ChannelStatistics, error)
}

// HandleCache remembers resolved handles across runs. Implemented by fs.HandleCache.
type HandleCache interface {
	Lookup(handle string) (string, bool, error)
	Store(handle, channelID string) error
}

// Fetcher turns a configured channel into a stamped stats.Record.
type Fetcher struct {
	api   API
	cache HandleCache
	now   func() time.Time
}

// NewFetcher builds a Fetcher. cache may be nil; now defaults to time.Now.
func NewFetcher(api API, cache HandleCache, now func() time.Time) *Fetcher {
	if now == nil {
		now = time.Now
	}
	return &Fetcher{api: api, cache: cache, now: now}
}

// Fetch resolves ch if needed and reads its current statistics.
// Every error is a *FetchError naming ch.
func (f *Fetcher) Fetch(ctx context.Context, ch channels.Channel) (stats.Record, error) {
	label := ch.Ref.String()

	id, cached, err := f.channelID(ctx, ch)
	if err != nil {
		return stats.Record{}, relabel(label, err)
	}

	st, err := f.api.ChannelStatistics(ctx, id)
	if err != nil && cached && IsKind(err, KindNotFound) {
		// the handle may have moved to another channel since it was cached
		logging.LogWarn("Cached channel ID not found, resolving handle again", zap.String("handle", label), zap.String("channel_id", id))
		if id, err = f.resolve(ctx, ch); err == nil {
			st, err = f.api.ChannelStatistics(ctx, id)
		}
	}
	if err != nil {
		return stats.Record{}, relabel(label, err)
	}

	return stats.Record{
		Timestamp:   stats.Stamp(f.now()),
		ChannelID:   st.ID,
		Subscribers: st.Subscribers,
		Views:       st.Views,
		Videos:      st.Videos,
	}, nil
}

// channelID returns the ID for ch and whether it came from the cache.
func (f *Fetcher) channelID(ctx context.Context, ch channels.Channel) (string, bool, error) {
	if !ch.Ref.IsHandle() {
		return ch.Ref.Value(), false, nil
	}

	if f.cache != nil {
		id, ok, err := f.cache.Lookup(ch.Ref.Value())
		if err != nil {
			logging.LogWarn("Handle cache read failed, resolving via API", zap.String("handle", ch.Ref.String()), zap.Error(err))
		} else if ok {
			logging.LogDebug("Handle cache hit", zap.String("handle", ch.Ref.String()), zap.String("channel_id", id))
			return id, true, nil
		}
	}

	id, err := f.resolve(ctx, ch)
	return id, false, err
}

func (f *Fetcher) resolve(ctx context.Context, ch channels.Channel) (string, error) {
	id, err := f.api.ResolveHandle(ctx, ch.Ref.Value())
	if err != nil {
		return "", err
	}
	if f.cache != nil {
		if err := f.cache.Store(ch.Ref.Value(), id); err != nil {
			logging.LogWarn("Failed to save handle cache", zap.String("handle", ch.Ref.String()), zap.Error(err))
		}
	}
	return id, nil
}

func relabel(label string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		out := *fe
		out.Channel = label
		return &out
	}
	return &FetchError{Channel: label, Kind: KindNetwork, Err: err}
}
