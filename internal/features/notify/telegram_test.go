package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"channel-tracker/internal/channels"
	"channel-tracker/internal/clients_api/youtube"
	"channel-tracker/internal/features/collector"
	"channel-tracker/internal/infra/config"
	"channel-tracker/internal/stats"
	"channel-tracker/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func runSummary() *collector.Summary {
	return &collector.Summary{
		Appended: 1,
		Failed:   1,
		Results: []collector.Result{
			{
				Channel: channels.Channel{Ref: channels.Handle("example"), Name: "Example & Co"},
				Record:  stats.Record{Timestamp: day, ChannelID: "UCxxxx", Subscribers: 1000, Views: 50000, Videos: 12},
				Status:  collector.StatusAppended,
			},
			{
				Channel: channels.Channel{Ref: channels.Handle("broken")},
				Status:  collector.StatusFailed,
				Err:     &youtube.FetchError{Channel: "@broken", Kind: youtube.KindQuota, Status: 403, Message: "quota exceeded"},
			},
		},
	}
}

func TestFormatSummary(t *testing.T) {
	text := FormatSummary(runSummary())
	assert.Contains(t, text, "1 appended · 0 skipped · 1 failed")
	assert.Contains(t, text, "<b>Example &amp; Co</b>: 1,000 subs · 50,000 views · 12 videos")
	assert.Contains(t, text, "<b>Failures</b>")
	assert.Contains(t, text, "❌ @broken:")
}

func TestNotifyRunSendsSummaryOnly(t *testing.T) {
	f := &fakeSender{}
	New(f, -100123, false, nil).NotifyRun(context.Background(), runSummary())

	require.Len(t, f.sent, 1)
	msg, ok := f.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
}

func TestNotifyRunAttachesCharts(t *testing.T) {
	s, err := store.NewCSV(t.TempDir(), config.LayoutShared)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, stats.Record{Timestamp: day.AddDate(0, 0, -1), ChannelID: "UCxxxx", Subscribers: 990}))
	require.NoError(t, s.Append(ctx, stats.Record{Timestamp: day, ChannelID: "UCxxxx", Subscribers: 1000}))

	f := &fakeSender{}
	New(f, 1, true, s).NotifyRun(ctx, runSummary())

	require.Len(t, f.sent, 2)
	photo, ok := f.sent[1].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Contains(t, photo.Caption, "Example &amp; Co")
}

func TestNotifyRunSkipsChartWithOnePoint(t *testing.T) {
	s, err := store.NewCSV(t.TempDir(), config.LayoutShared)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), stats.Record{Timestamp: day, ChannelID: "UCxxxx"}))

	f := &fakeSender{}
	New(f, 1, true, s).NotifyRun(context.Background(), runSummary())
	assert.Len(t, f.sent, 1)
}

func TestNotifyRunSwallowsSendErrors(t *testing.T) {
	f := &fakeSender{err: errors.New("telegram down")}
	assert.NotPanics(t, func() {
		New(f, 1, true, nil).NotifyRun(context.Background(), runSummary())
	})
	assert.Len(t, f.sent, 1)

	var n *Notifier
	assert.NotPanics(t, func() { n.NotifyRun(context.Background(), runSummary()) })
}

func TestNewTelegramDisabled(t *testing.T) {
	n, err := NewTelegram(config.TelegramConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = NewTelegram(config.TelegramConfig{BotToken: "x", ChatID: "abc"}, nil)
	assert.Error(t, err)
}
