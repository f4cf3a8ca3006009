package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gramwatch-backend/internal/monitor"
	"gramwatch-backend/lib/serviceutil"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var (
	batchDelayMin *int
	batchDelayMax *int
)

func init() {
	batchDelayMin = batchCmd.Flags().Int("delay-min", 10, "Minimum seconds to wait between handles.")
	batchDelayMax = batchCmd.Flags().Int("delay-max", 30, "Maximum seconds to wait between handles.")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch [handles...]",
	Short: "Runs one monitoring pass per handle, each into its own subdirectory.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		handles := args
		if len(handles) == 0 {
			handles = cfg.Targets
		}
		if len(handles) == 0 {
			fmt.Fprintln(os.Stderr, "no handles given, pass them as arguments or set targets in gramwatch.json5")
			os.Exit(1)
		}

		var succeeded, degraded, skipped int
		for i, raw := range handles {
			handle, err := monitor.NormalizeHandle(raw)
			if err != nil {
				slog.Warn("skipping malformed handle", "handle", raw)
				skipped++
				continue
			}

			m, err := monitor.New(monitorConfig(cfg, handle))
			if err != nil {
				serviceutil.Fatal("failed to initialize monitor", err)
			}

			result, err := m.Run(cmd.Context(), handle)
			if err != nil {
				slog.Warn("monitoring pass failed", "handle", handle, "err", err)
				skipped++
				continue
			}
			if result.Snapshot.Degraded() {
				degraded++
			} else {
				succeeded++
			}
			reportRun(cmd.Context(), cfg, handle, result)

			if i < len(handles)-1 {
				sleepBetweenHandles(cmd.Context())
			}
		}

		slog.Info(
			"batch complete",
			"handles", len(handles),
			"succeeded", succeeded,
			"degraded", degraded,
			"skipped", skipped,
		)
	},
}

// a randomized pause between handles keeps the batch from looking like
// a burst to the upstream
func sleepBetweenHandles(ctx context.Context) {
	seconds, err := random.IntRange(*batchDelayMin, *batchDelayMax+1)
	if err != nil {
		seconds = *batchDelayMin
	}
	slog.Debug("waiting before next handle", "seconds", seconds)

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
