package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"channel-tracker/internal/infra/config"
	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/stats"

	"go.uber.org/zap"
)

const SharedFile = "stats.csv"

var (
	perChannelHeader = []string{"timestamp", "subscriber_count", "view_count", "video_count"}
	sharedHeader     = []string{"timestamp", "channel_id", "subscriber_count", "view_count", "video_count"}
)

// CSVStore keeps records in <dir>/<channel_id>.csv or in one shared <dir>/stats.csv.
// Single writer, single process: files are not locked.
type CSVStore struct {
	dir    string
	layout string
}

func NewCSV(dir, layout string) (*CSVStore, error) {
	switch layout {
	case "":
		layout = config.LayoutPerChannel
	case config.LayoutPerChannel, config.LayoutShared:
	default:
		return nil, fmt.Errorf("unknown csv layout %q", layout)
	}
	return &CSVStore{dir: dir, layout: layout}, nil
}

func (s *CSVStore) Dir() string    { return s.dir }
func (s *CSVStore) Layout() string { return s.layout }

// PathFor is the file that holds channelID's rows.
func (s *CSVStore) PathFor(channelID string) string {
	if s.layout == config.LayoutShared {
		return filepath.Join(s.dir, SharedFile)
	}
	return filepath.Join(s.dir, channelID+".csv")
}

func (s *CSVStore) header() []string {
	if s.layout == config.LayoutShared {
		return sharedHeader
	}
	return perChannelHeader
}

func (s *CSVStore) row(rec stats.Record) []string {
	counts := []string{
		strconv.FormatUint(rec.Subscribers, 10),
		strconv.FormatUint(rec.Views, 10),
		strconv.FormatUint(rec.Videos, 10),
	}
	if s.layout == config.LayoutShared {
		return append([]string{stats.FormatTimestamp(rec.Timestamp), rec.ChannelID}, counts...)
	}
	return append([]string{stats.FormatTimestamp(rec.Timestamp)}, counts...)
}

// Append adds one row, writing the header first when the file is new or empty.
func (s *CSVStore) Append(ctx context.Context, rec stats.Record) error {
	path := s.PathFor(rec.ChannelID)
	fail := func(err error) error { return &WriteError{Channel: rec.ChannelID, Path: path, Err: err} }

	if !ValidChannelID(rec.ChannelID) {
		return fail(ErrInvalidChannelID)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := checkOrder(ctx, s, rec); err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fail(fmt.Errorf("failed to create data directory: %w", err))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fail(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fail(err)
	}

	// a last line without its newline would swallow the new row
	if info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			f.Close()
			return fail(err)
		}
		if last[0] != '\n' {
			logging.LogWarn("CSV file does not end with a newline, terminating last line", zap.String("file", path))
			if _, err := f.Write([]byte{'\n'}); err != nil {
				f.Close()
				return fail(err)
			}
		}
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(s.header()); err != nil {
			f.Close()
			return fail(err)
		}
	}
	if err := w.Write(s.row(rec)); err != nil {
		f.Close()
		return fail(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(err)
	}

	logging.LogDebug("Appended CSV row", zap.String("channel_id", rec.ChannelID), zap.String("file", path))
	return nil
}

// Series returns channelID's rows sorted by time. A missing file is an empty series.
func (s *CSVStore) Series(ctx context.Context, channelID string) (stats.Series, error) {
	if !ValidChannelID(channelID) {
		return nil, ErrInvalidChannelID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var series stats.Series
	err := s.readFile(s.PathFor(channelID), channelID, func(rec stats.Record) {
		if rec.ChannelID == channelID {
			series = append(series, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	series.Sort()
	return series, nil
}

func (s *CSVStore) Latest(ctx context.Context, channelID string) (stats.Record, bool, error) {
	series, err := s.Series(ctx, channelID)
	if err != nil {
		return stats.Record{}, false, err
	}
	rec, ok := series.Latest()
	return rec, ok, nil
}

// ChannelIDs lists every channel with at least one stored row, sorted.
func (s *CSVStore) ChannelIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.layout == config.LayoutShared {
		seen := map[string]bool{}
		err := s.readFile(filepath.Join(s.dir, SharedFile), "", func(rec stats.Record) {
			seen[rec.ChannelID] = true
		})
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids, nil
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	// a file only counts once it holds a readable row
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || name == SharedFile {
			continue
		}
		id := strings.TrimSuffix(name, ".csv")
		if !ValidChannelID(id) {
			continue
		}
		rows := 0
		if err := s.readFile(filepath.Join(s.dir, name), id, func(stats.Record) { rows++ }); err != nil {
			logging.LogWarn("Skipping unreadable CSV file", zap.String("file", name), zap.Error(err))
			continue
		}
		if rows > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *CSVStore) Close() error { return nil }

// readFile streams every parseable row of path to fn. Columns are matched by header name.
// fileChannel fills the channel for per-channel files, which carry no channel column.
func (s *CSVStore) readFile(path, fileChannel string, fn func(stats.Record)) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, need := range []string{"timestamp", "subscriber_count", "view_count", "video_count"} {
		if _, ok := cols[need]; !ok {
			return fmt.Errorf("%s: missing column %q", path, need)
		}
	}
	channelCol, hasChannelCol := cols["channel_id"]

	line := 1
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			logging.LogWarn("Skipping malformed CSV row", zap.String("file", path), zap.Int("line", pe.Line), zap.Error(err))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rec, err := parseRow(fields, cols)
		if err == nil {
			rec.ChannelID = fileChannel
			if hasChannelCol && channelCol < len(fields) {
				rec.ChannelID = strings.TrimSpace(fields[channelCol])
			}
		}
		if err != nil || rec.ChannelID == "" {
			logging.LogWarn("Skipping unreadable CSV row", zap.String("file", path), zap.Int("line", line), zap.Error(err))
			continue
		}
		fn(rec)
	}
}

func parseRow(fields []string, cols map[string]int) (stats.Record, error) {
	get := func(name string) (string, error) {
		i := cols[name]
		if i >= len(fields) {
			return "", fmt.Errorf("missing %s", name)
		}
		return strings.TrimSpace(fields[i]), nil
	}
	count := func(name string) (uint64, error) {
		v, err := get(name)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, v)
		}
		return n, nil
	}

	var rec stats.Record
	ts, err := get("timestamp")
	if err != nil {
		return rec, err
	}
	if rec.Timestamp, err = stats.ParseTimestamp(ts); err != nil {
		return rec, err
	}
	if rec.Subscribers, err = count("subscriber_count"); err != nil {
		return rec, err
	}
	if rec.Views, err = count("view_count"); err != nil {
		return rec, err
	}
	if rec.Videos, err = count("video_count"); err != nil {
		return rec, err
	}
	return rec, nil
}
