package commands

// Wiring shared by the subcommands: channel list, store, YouTube fetcher,
// display names.

import (
	"errors"
	"fmt"
	"os"
	"time"

	"channel-tracker/internal/channels"
	"channel-tracker/internal/clients_api/youtube"
	"channel-tracker/internal/features/collector"
	"channel-tracker/internal/infra/config"
	storage "channel-tracker/internal/infra/fs"
	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/store"

	"go.uber.org/zap"
)

func loadChannels(cfg *config.Config) ([]channels.Channel, error) {
	chs, err := channels.Load(cfg.App.ChannelsFile)
	if err != nil {
		logging.LogError("Failed to load channel list", zap.String("path", cfg.App.ChannelsFile), zap.Error(err))
		return nil, err
	}
	if len(chs) == 0 {
		logging.LogWarn("Channel list is empty, nothing to collect", zap.String("path", cfg.App.ChannelsFile))
	}
	return chs, nil
}

// loadChannelsOptional is used by the read-only commands, which work without a channel list.
func loadChannelsOptional(cfg *config.Config) []channels.Channel {
	chs, err := channels.Load(cfg.App.ChannelsFile)
	if err != nil {
		var ce *channels.ConfigError
		if errors.As(err, &ce) && errors.Is(ce.Err, os.ErrNotExist) {
			logging.LogDebug("No channel list, using channel IDs as names", zap.String("path", cfg.App.ChannelsFile))
		} else {
			logging.LogWarn("Failed to load channel list, using channel IDs as names", zap.Error(err))
		}
		return nil
	}
	return chs
}

func openStore(cfg *config.Config) (store.Store, error) {
	s, err := store.Open(cfg)
	if err != nil {
		logging.LogError("Failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

func newFetcher(cfg *config.Config) *youtube.Fetcher {
	client := youtube.NewClient(youtube.Options{
		BaseURL:           cfg.YouTube.BaseURL,
		APIKey:            cfg.YouTube.APIKey,
		Timeout:           time.Duration(cfg.YouTube.RequestTimeout) * time.Second,
		MaxRetries:        cfg.YouTube.MaxRetries,
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
	})

	var cache youtube.HandleCache
	if cfg.YouTube.CacheHandles {
		cache = storage.NewHandleCache(cfg.App.DataDir)
	}
	return youtube.NewFetcher(client, cache, nil)
}

func newCollector(cfg *config.Config, s store.Store) *collector.Collector {
	return collector.New(newFetcher(cfg), s, collector.Options{SameDay: cfg.Store.SameDay})
}

// displayNames maps channel IDs to configured names. Handles are matched
// through the handle cache, so a name appears once the handle has been resolved.
func displayNames(cfg *config.Config, chs []channels.Channel) map[string]string {
	names := make(map[string]string, len(chs))

	var resolved map[string]string
	if cfg.YouTube.CacheHandles {
		entries, err := storage.NewHandleCache(cfg.App.DataDir).Entries()
		if err != nil {
			logging.LogWarn("Failed to read handle cache", zap.Error(err))
		}
		resolved = entries
	}

	for _, ch := range chs {
		if ch.Ref.IsID() {
			names[ch.Ref.Value()] = ch.Name
			continue
		}
		if id, ok := resolved[storage.NormalizeHandle(ch.Ref.Value())]; ok {
			names[id] = ch.Name
		}
	}
	return names
}
