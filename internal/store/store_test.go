package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"channel-tracker/internal/infra/config"
	"channel-tracker/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func rec(id string, day int, subs uint64) stats.Record {
	return stats.Record{Timestamp: at(day), ChannelID: id, Subscribers: subs, Views: subs * 50, Videos: 12}
}

var backends = map[string]func(t *testing.T) Store{
	"csv per-channel": func(t *testing.T) Store {
		s, err := NewCSV(t.TempDir(), config.LayoutPerChannel)
		require.NoError(t, err)
		return s
	},
	"csv shared": func(t *testing.T) Store {
		s, err := NewCSV(t.TempDir(), config.LayoutShared)
		require.NoError(t, err)
		return s
	},
	"sqlite": func(t *testing.T) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "stats.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	},
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("round trip", func(t *testing.T) {
				s := open(t)
				in := []stats.Record{rec("UCa", 0, 1000), rec("UCb", 0, 7), rec("UCa", 1, 1100), rec("UCa", 1, 1101)}
				for _, r := range in {
					require.NoError(t, s.Append(ctx, r))
				}

				got, err := s.Series(ctx, "UCa")
				require.NoError(t, err)
				assert.Equal(t, stats.Series{in[0], in[2], in[3]}, got)

				latest, ok, err := s.Latest(ctx, "UCa")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, uint64(1101), latest.Subscribers)

				ids, err := s.ChannelIDs(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"UCa", "UCb"}, ids)
			})

			t.Run("empty", func(t *testing.T) {
				s := open(t)
				series, err := s.Series(ctx, "UCnone")
				require.NoError(t, err)
				assert.Empty(t, series)

				_, ok, err := s.Latest(ctx, "UCnone")
				require.NoError(t, err)
				assert.False(t, ok)

				ids, err := s.ChannelIDs(ctx)
				require.NoError(t, err)
				assert.Empty(t, ids)
			})

			t.Run("out of order is refused", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Append(ctx, rec("UCa", 5, 10)))

				err := s.Append(ctx, rec("UCa", 4, 9))
				var we *WriteError
				require.ErrorAs(t, err, &we)
				assert.Equal(t, "UCa", we.Channel)
				assert.ErrorIs(t, err, ErrOutOfOrder)

				series, err := s.Series(ctx, "UCa")
				require.NoError(t, err)
				assert.Len(t, series, 1)

				// other channels are independent
				require.NoError(t, s.Append(ctx, rec("UCb", 1, 1)))
			})

			t.Run("invalid channel id", func(t *testing.T) {
				s := open(t)
				err := s.Append(ctx, rec("../evil", 0, 1))
				assert.ErrorIs(t, err, ErrInvalidChannelID)
			})
		})
	}
}

func TestCSVSharedLayoutFormat(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSV(dir, config.LayoutShared)
	require.NoError(t, err)

	r := stats.Record{Timestamp: at(0), ChannelID: "UCxxxx", Subscribers: 1000, Views: 50000, Videos: 12}
	require.NoError(t, s.Append(context.Background(), r))

	data, err := os.ReadFile(filepath.Join(dir, SharedFile))
	require.NoError(t, err)
	assert.Equal(t,
		"timestamp,channel_id,subscriber_count,view_count,video_count\n"+
			"2024-01-01 00:00:00,UCxxxx,1000,50000,12\n",
		string(data))
}

func TestCSVAppendNeverRewrites(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSV(dir, config.LayoutPerChannel)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, rec("UC1", 0, 1)))
	require.NoError(t, s.Append(ctx, rec("UC1", 1, 2)))
	before, err := os.ReadFile(s.PathFor("UC1"))
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, rec("UC1", 2, 3)))
	after, err := os.ReadFile(s.PathFor("UC1"))
	require.NoError(t, err)

	assert.Equal(t, string(before), string(after[:len(before)]))
	assert.Equal(t, "2024-01-03 00:00:00,3,150,12\n", string(after[len(before):]))
	header := "timestamp,subscriber_count,view_count,video_count\n"
	assert.Equal(t, header, string(before[:len(header)]))
}

func TestCSVHeaderAddedToEmptyFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSV(dir, config.LayoutPerChannel)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.PathFor("UC1"), nil, 0644))

	require.NoError(t, s.Append(context.Background(), rec("UC1", 0, 5)))
	data, err := os.ReadFile(s.PathFor("UC1"))
	require.NoError(t, err)
	assert.Equal(t, "timestamp,subscriber_count,view_count,video_count\n2024-01-01 00:00:00,5,250,12\n", string(data))
}

func TestCSVReaderIsLenient(t *testing.T) {
	dir := t.TempDir()
	body := "timestamp,subscriber_count,view_count,video_count\n" +
		"2024-01-02,20,200,2\n" +
		"garbage,x,y,z\n" +
		"2024-01-01 08:00:00,10,100,1\n" +
		"2024-01-03T00:00:00Z,30,300,3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UC1.csv"), []byte(body), 0644))

	s, err := NewCSV(dir, config.LayoutPerChannel)
	require.NoError(t, err)
	series, err := s.Series(context.Background(), "UC1")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, []uint64{10, 20, 30}, []uint64{series[0].Subscribers, series[1].Subscribers, series[2].Subscribers})
	assert.Equal(t, "UC1", series[0].ChannelID)

	t.Run("quoting errors skip only that row", func(t *testing.T) {
		body := "timestamp,subscriber_count,view_count,video_count\n" +
			"2024-01-01 00:00:00,1\"0,5,1\n" +
			"2024-01-02 00:00:00,20,200,2\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "UC2.csv"), []byte(body), 0644))

		series, err := s.Series(context.Background(), "UC2")
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, uint64(20), series[0].Subscribers)

		require.NoError(t, s.Append(context.Background(), rec("UC2", 5, 30)))
		series, err = s.Series(context.Background(), "UC2")
		require.NoError(t, err)
		assert.Len(t, series, 2)
	})
}

func TestCSVAppendTerminatesUnfinishedLastLine(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSV(dir, config.LayoutPerChannel)
	require.NoError(t, err)

	before := "timestamp,subscriber_count,view_count,video_count\n2024-01-01 00:00:00,10,5,1"
	require.NoError(t, os.WriteFile(s.PathFor("UC1"), []byte(before), 0644))

	require.NoError(t, s.Append(context.Background(), rec("UC1", 2, 11)))

	data, err := os.ReadFile(s.PathFor("UC1"))
	require.NoError(t, err)
	assert.Equal(t, before+"\n2024-01-03 00:00:00,11,550,12\n", string(data))

	series, err := s.Series(context.Background(), "UC1")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, uint64(10), series[0].Subscribers)
	assert.Equal(t, uint64(11), series[1].Subscribers)
}

func TestCSVChannelIDsIgnoresFilesWithoutRows(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSV(dir, config.LayoutPerChannel)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.PathFor("UCheader"), []byte("timestamp,subscriber_count,view_count,video_count\n"), 0644))
	require.NoError(t, os.WriteFile(s.PathFor("UCjunk"), []byte("timestamp,subscriber_count,view_count,video_count\nbad,row,,\n"), 0644))
	require.NoError(t, s.Append(context.Background(), rec("UCreal", 0, 1)))

	ids, err := s.ChannelIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"UCreal"}, ids)
}

func TestCSVMissingColumn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UC1.csv"), []byte("timestamp,views\n2024-01-01,1\n"), 0644))

	s, err := NewCSV(dir, config.LayoutPerChannel)
	require.NoError(t, err)
	_, err = s.Series(context.Background(), "UC1")
	assert.ErrorContains(t, err, "missing column")
}

func TestCSVWriteErrorOnFilesystemFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s, err := NewCSV(blocker, config.LayoutPerChannel)
	require.NoError(t, err)

	err = s.Append(context.Background(), rec("UC1", 0, 1))
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, filepath.Join(blocker, "UC1.csv"), we.Path)
}

func TestNewCSVRejectsUnknownLayout(t *testing.T) {
	_, err := NewCSV(t.TempDir(), "sideways")
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.App.DataDir = dir
	cfg.Store.Driver = config.StoreDriverCSV
	cfg.Store.Layout = config.LayoutShared
	s, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)

	cfg.Store.Driver = config.StoreDriverSQLite
	cfg.Store.SQLitePath = filepath.Join(dir, "stats.db")
	s, err = Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	cfg.App.DataDir = filepath.Join(dir, "moved")
	cfg.Store.SQLitePath = ""
	s, err = Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "moved", "stats.db"), "empty sqlite path falls back to the data dir")

	cfg.Store.Driver = "mongo"
	_, err = Open(cfg)
	assert.Error(t, err)
}
