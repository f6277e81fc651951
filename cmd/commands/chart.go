package commands

// Command to render static PNG charts
// Draws one image per channel in the store into the graphs directory.
// Channels with fewer than two records are skipped; a failing channel
// does not stop the others.

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"channel-tracker/internal/features/charts"
	logging "channel-tracker/internal/infra/log"
	"channel-tracker/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a PNG chart per channel from the stored history",
	RunE:  runChart,
}

func init() {
	chartCmd.Flags().String("graphs-dir", "", "output directory for PNG files")
}

func runChart(cmd *cobra.Command, args []string) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	names := displayNames(cfg, loadChannelsOptional(cfg))
	_, err = renderCharts(context.Background(), s, charts.NewRenderer(), names, cfg.App.GraphsDir)
	return err
}

// renderCharts writes <dir>/<channel_id>.png for every stored channel and
// returns how many files were written plus the joined per-channel errors.
func renderCharts(ctx context.Context, s store.Store, renderer *charts.Renderer, names map[string]string, dir string) (int, error) {
	ids, err := s.ChannelIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list channels: %w", err)
	}
	if len(ids) == 0 {
		logging.LogWarn("Store is empty, run fetch first")
		return 0, nil
	}

	var errs []error
	written := 0
	for _, id := range ids {
		series, err := s.Series(ctx, id)
		if err != nil {
			logging.LogError("Failed to read series", zap.String("channel_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}

		title := id
		if n, ok := names[id]; ok {
			title = n
		}
		out := filepath.Join(dir, id+".png")

		ok, err := renderer.RenderChannel(series, title, out)
		if err != nil {
			logging.LogError("Failed to render chart", zap.String("channel_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if !ok {
			logging.LogInfo("Not enough data for a chart yet", zap.String("channel_id", id), zap.Int("points", len(series)))
			continue
		}
		written++
		logging.LogSuccess("Chart written", zap.String("channel_id", id), zap.String("file", out))
	}

	logging.LogInfo("Chart rendering finished",
		zap.Int("written", written),
		zap.Int("failed", len(errs)),
		zap.Int("channels", len(ids)))
	if len(errs) > 0 {
		return written, fmt.Errorf("%d of %d charts failed: %w", len(errs), len(ids), errors.Join(errs...))
	}
	return written, nil
}
