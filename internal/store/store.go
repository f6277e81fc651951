package store

// Append-only persistence of stats records.
// Two backends share one contract: CSV files (default) and SQLite.
// Records are only ever added; a record older than the channel's latest one is refused.

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"channel-tracker/internal/infra/config"
	"channel-tracker/internal/stats"
)

type Store interface {
	Append(ctx context.Context, rec stats.Record) error
	Latest(ctx context.Context, channelID string) (stats.Record, bool, error)
	Series(ctx context.Context, channelID string) (stats.Series, error)
	ChannelIDs(ctx context.Context) ([]string, error)
	Close() error
}

var (
	ErrOutOfOrder       = errors.New("record is older than the latest stored record")
	ErrInvalidChannelID = errors.New("invalid channel id")
)

// WriteError is any failure to persist a record. Nothing was written.
type WriteError struct {
	Channel string
	Path    string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s to %s: %v", e.Channel, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ValidChannelID rejects ids that are empty or could escape the data directory.
func ValidChannelID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}

// Open selects the backend configured in cfg.Store.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		path := cfg.Store.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.App.DataDir, "stats.db")
		}
		return OpenSQLite(path)
	case config.StoreDriverCSV, "":
		return NewCSV(cfg.App.DataDir, cfg.Store.Layout)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// checkOrder refuses rec when it predates the newest stored record of its channel.
func checkOrder(ctx context.Context, s Store, rec stats.Record) error {
	latest, ok, err := s.Latest(ctx, rec.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to read latest record: %w", err)
	}
	if ok && rec.Timestamp.Before(latest.Timestamp) {
		return fmt.Errorf("%w: %s < %s", ErrOutOfOrder,
			stats.FormatTimestamp(rec.Timestamp), stats.FormatTimestamp(latest.Timestamp))
	}
	return nil
}
