package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/stats"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every record in one insert-only table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite store: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init schema: %w", err)
	}
	logging.LogDebug("Opened SQLite store", zap.String("file", path))
	return &SQLiteStore{db: db, path: path}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS stats (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		ts               TEXT NOT NULL,
		channel_id       TEXT NOT NULL,
		subscriber_count INTEGER NOT NULL,
		view_count       INTEGER NOT NULL,
		video_count      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stats_channel_ts ON stats(channel_id, ts);`)
	return err
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Append(ctx context.Context, rec stats.Record) error {
	fail := func(err error) error { return &WriteError{Channel: rec.ChannelID, Path: s.path, Err: err} }

	if !ValidChannelID(rec.ChannelID) {
		return fail(ErrInvalidChannelID)
	}
	if err := checkOrder(ctx, s, rec); err != nil {
		return fail(err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (ts, channel_id, subscriber_count, view_count, video_count) VALUES (?, ?, ?, ?, ?)`,
		stats.FormatTimestamp(rec.Timestamp), rec.ChannelID,
		int64(rec.Subscribers), int64(rec.Views), int64(rec.Videos))
	if err != nil {
		return fail(err)
	}
	return nil
}

// Series returns channelID's rows; ties on ts keep insertion order.
func (s *SQLiteStore) Series(ctx context.Context, channelID string) (stats.Series, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, subscriber_count, view_count, video_count FROM stats WHERE channel_id = ? ORDER BY ts, id`,
		channelID)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query series: %w", err)
	}
	defer rows.Close()

	var series stats.Series
	for rows.Next() {
		rec, err := scanRecord(rows, channelID)
		if err != nil {
			return nil, err
		}
		series = append(series, rec)
	}
	return series, rows.Err()
}

func (s *SQLiteStore) Latest(ctx context.Context, channelID string) (stats.Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ts, subscriber_count, view_count, video_count FROM stats WHERE channel_id = ? ORDER BY ts DESC, id DESC LIMIT 1`,
		channelID)
	rec, err := scanRecord(row, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.Record{}, false, nil
	}
	if err != nil {
		return stats.Record{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) ChannelIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT channel_id FROM stats ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list channels: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite store: scan channel: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner, channelID string) (stats.Record, error) {
	var ts string
	var subs, views, videos int64
	if err := sc.Scan(&ts, &subs, &views, &videos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats.Record{}, err
		}
		return stats.Record{}, fmt.Errorf("sqlite store: scan: %w", err)
	}
	t, err := stats.ParseTimestamp(ts)
	if err != nil {
		return stats.Record{}, fmt.Errorf("sqlite store: %w", err)
	}
	return stats.Record{
		Timestamp:   t,
		ChannelID:   channelID,
		Subscribers: uint64(subs),
		Views:       uint64(views),
		Videos:      uint64(videos),
	}, nil
}
