package notify

// Telegram summary of a collection run. Delivery problems are logged and
// swallowed: a failed notification never fails the run.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"channel-tracker/internal/features/charts"
	"channel-tracker/internal/features/collector"
	"channel-tracker/internal/infra/config"
	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/stats"
	"channel-tracker/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	sender     Sender
	chatID     int64
	sendCharts bool
	store      store.Store
	renderer   *charts.Renderer
}

// NewTelegram connects to the Bot API. Returns nil, nil when Telegram is not configured.
func NewTelegram(cfg config.TelegramConfig, s store.Store) (*Notifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(cfg.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logging.LogInfo("Telegram notifier ready", zap.String("bot", bot.Self.UserName), zap.Int64("chat_id", chatID))
	return New(bot, chatID, cfg.SendCharts, s), nil
}

func New(sender Sender, chatID int64, sendCharts bool, s store.Store) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, sendCharts: sendCharts, store: s, renderer: charts.NewRenderer()}
}

// NotifyRun posts the run summary and, when enabled, one chart per appended channel.
// Safe to call on a nil Notifier.
func (n *Notifier) NotifyRun(ctx context.Context, sum *collector.Summary) {
	if n == nil || sum == nil {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(sum))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.sender.Send(msg); err != nil {
		logging.LogError("Failed to send run summary", zap.Error(err))
		return
	}
	logging.LogSuccess("Run summary sent", zap.Int64("chat_id", n.chatID))

	if !n.sendCharts || n.store == nil {
		return
	}
	for _, r := range sum.Results {
		if ctx.Err() != nil {
			return
		}
		if r.Status != collector.StatusAppended {
			continue
		}
		if err := n.sendChart(ctx, r); err != nil {
			logging.LogWarn("Failed to send chart",
				zap.String("channel", r.Channel.Ref.String()),
				zap.Error(err))
		}
	}
}

func (n *Notifier) sendChart(ctx context.Context, r collector.Result) error {
	series, err := n.store.Series(ctx, r.Record.ChannelID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	title := resultName(r)
	if err := n.renderer.Encode(&buf, series, title); err != nil {
		if errors.Is(err, charts.ErrNotEnoughData) {
			return nil
		}
		return err
	}

	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{Name: r.Record.ChannelID + ".png", Bytes: buf.Bytes()})
	photo.Caption = "<b>" + html.EscapeString(title) + "</b>"
	photo.ParseMode = tgbotapi.ModeHTML
	_, err = n.sender.Send(photo)
	return err
}

func resultName(r collector.Result) string {
	if r.Channel.Name != "" {
		return r.Channel.Name
	}
	if r.Record.ChannelID != "" {
		return r.Record.ChannelID
	}
	return r.Channel.Ref.String()
}

// FormatSummary renders the HTML message body for a run.
func FormatSummary(sum *collector.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Channel stats</b>\n%d appended · %d skipped · %d failed\n\n",
		sum.Appended, sum.Skipped, sum.Failed)

	for _, r := range sum.Results {
		name := html.EscapeString(resultName(r))
		switch r.Status {
		case collector.StatusAppended:
			fmt.Fprintf(&b, "<b>%s</b>: %s subs · %s views · %s videos\n",
				name,
				stats.FormatCount(r.Record.Subscribers),
				stats.FormatCount(r.Record.Views),
				stats.FormatCount(r.Record.Videos))
		case collector.StatusSkipped:
			fmt.Fprintf(&b, "<b>%s</b>: already collected today\n", name)
		}
	}

	var failed []string
	for _, r := range sum.Results {
		if r.Status == collector.StatusFailed {
			failed = append(failed, fmt.Sprintf("❌ %s: %s", html.EscapeString(r.Channel.Ref.String()), html.EscapeString(errString(r.Err))))
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n<b>Failures</b>\n")
		b.WriteString(strings.Join(failed, "\n"))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
