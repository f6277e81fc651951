package commands

// Command to run one collection pass
// Fetches every configured channel, appends the successes to the store
// and optionally posts a Telegram summary.
// Exits non-zero when the channel list is invalid or any channel failed.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"channel-tracker/internal/features/notify"
	"channel-tracker/internal/infra/config"
	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch current stats for every configured channel and append them",
	Long: `Fetch reads the channel list, asks the YouTube Data API for each channel's current
subscriber, view and video counts, and appends one record per channel to the store.
A failing channel is logged and skipped; the command exits non-zero afterwards.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("same-day", "", "second run on the same UTC day: append or skip")
	fetchCmd.Flags().Bool("send-charts", false, "attach chart photos to the Telegram summary")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	return collectOnce(ctx, cfg, s)
}

// collectOnce is one full pass: load channels, collect, notify.
func collectOnce(ctx context.Context, cfg *config.Config, s store.Store) error {
	chs, err := loadChannels(cfg)
	if err != nil {
		return err
	}
	if len(chs) == 0 {
		return nil
	}

	logging.LogInfo("Starting collection", zap.Int("channels", len(chs)), zap.String("store", cfg.Store.Driver))
	sum, err := newCollector(cfg, s).Run(ctx, chs)
	if err != nil {
		return fmt.Errorf("collection interrupted: %w", err)
	}

	notifier, err := notify.NewTelegram(cfg.Telegram, s)
	if err != nil {
		logging.LogWarn("Telegram notifier unavailable", zap.Error(err))
	}
	notifier.NotifyRun(ctx, sum)

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d channels failed: %w", sum.Failed, len(chs), sum.Err())
	}
	return nil
}
