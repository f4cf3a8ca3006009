package commands

import (
	"fmt"
	"os"

	"gramwatch-backend/internal/monitor"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the last persisted quick stats.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := newStore(cfg)

		stats, err := store.LoadQuickStats()
		if err != nil {
			fmt.Fprintln(os.Stderr, "no stats found, run a monitoring pass first")
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"Username", "@" + stats.Username},
			{"Followers", humanize.Comma(stats.Followers)},
			{"Following", humanize.Comma(stats.Following)},
			{"Posts", humanize.Comma(stats.Posts)},
			{"Private", stats.IsPrivate},
			{"Verified", stats.IsVerified},
			{"Method", stats.Method},
			{"Last updated", stats.LastUpdated.Format("2006-01-02 15:04:05 MST")},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

func newStore(cfg Config) monitor.Store {
	mcfg := monitorConfig(cfg, "")
	if mcfg.OutputDir == "" {
		mcfg.OutputDir = "."
	}
	return monitor.NewStore(mcfg.OutputDir, mcfg.HistoryLimit)
}
