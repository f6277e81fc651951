package commands

// Command to run collection once a day in-process
// For hosts without cron: waits for schedule.time in schedule.timezone,
// runs the same pass as fetch, and repeats until interrupted.
// Implements graceful shutdown for proper termination

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-tracker/internal/features/scheduler"
	logging "channel-tracker/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run fetch once a day at a fixed time",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().String("at", "", "time of day to collect, HH:MM (default 09:00)")
	scheduleCmd.Flags().String("timezone", "", "IANA timezone for --at (default UTC)")
	scheduleCmd.Flags().String("same-day", "", "second run on the same UTC day: append or skip")
	scheduleCmd.Flags().Bool("send-charts", false, "attach chart photos to the Telegram summary")
	scheduleCmd.Flags().Bool("run-now", false, "collect once immediately before waiting")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	daily, err := scheduler.ParseDaily(cfg.Schedule.Time, cfg.Schedule.Timezone)
	if err != nil {
		return err
	}
	// fail fast on a broken channel list instead of at the first tick
	if _, err := loadChannels(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	job := func(ctx context.Context) {
		start := time.Now()
		if err := collectOnce(ctx, cfg, s); err != nil {
			logging.LogError("Scheduled collection finished with errors", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logging.LogSuccess("Scheduled collection finished", zap.Duration("duration", time.Since(start)))
	}

	if runNow, _ := cmd.Flags().GetBool("run-now"); runNow {
		job(ctx)
	}

	logging.LogSuccess("Scheduler is running",
		zap.String("at", cfg.Schedule.Time),
		zap.String("timezone", cfg.Schedule.Timezone))

	done := make(chan struct{})
	go func() {
		daily.Run(ctx, job)
		close(done)
	}()

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping scheduler...")

	select {
	case <-done:
		logging.LogSuccess("Scheduler stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for the running collection to stop")
	}
	return nil
}
