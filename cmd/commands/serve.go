package commands

// Command to run the interactive dashboard
// Serves the HTML viewer, JSON API, PNG charts and Prometheus metrics
// Implements graceful shutdown for proper termination

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-tracker/internal/features/charts"
	"channel-tracker/internal/features/dashboard"
	logging "channel-tracker/internal/infra/log"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive dashboard",
	Long:  `Serve a read-only dashboard over the stored history with period filters, tooltips and day/week changes.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8501)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	names := displayNames(cfg, loadChannelsOptional(cfg))
	app := dashboard.New(s, charts.NewRenderer(), names, time.Now)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	logging.LogSuccess("Dashboard is running", zap.String("addr", cfg.Server.Addr))

	select {
	case err := <-errCh:
		if err != nil {
			logging.LogError("Dashboard server failed", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	logging.LogInfo("Shutdown signal received, gracefully stopping dashboard...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logging.LogWarn("Timeout waiting for dashboard to stop", zap.Error(err))
		return nil
	}
	logging.LogSuccess("Dashboard stopped gracefully")
	return nil
}
