package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLast *int

func init() {
	historyLast = historyCmd.Flags().IntP("last", "n", 20, "How many entries to show, newest last.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--last <n>]",
	Short: "Prints the persisted observation ledger.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := newStore(cfg)

		history, err := store.LoadHistory()
		if err != nil || len(history.Entries) == 0 {
			fmt.Fprintln(os.Stderr, "no history found, run a monitoring pass first")
			os.Exit(1)
		}

		entries := history.Entries
		if *historyLast > 0 && len(entries) > *historyLast {
			entries = entries[len(entries)-*historyLast:]
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Timestamp", "Followers", "Following", "Posts", "Private", "Method"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.Timestamp.Format("2006-01-02 15:04"),
				humanize.Comma(entry.Followers),
				humanize.Comma(entry.Following),
				humanize.Comma(entry.Posts),
				entry.IsPrivate,
				entry.Method,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
