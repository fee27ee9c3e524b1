package cmd

import (
	"fmt"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit int
	flagHistoryPrune int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List cached report fetches",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Number of fetches to show (0 for all)")
	historyCmd.Flags().IntVar(&flagHistoryPrune, "prune", 0, "Keep only the newest N fetches per selection")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	con := newConsole()

	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	if flagHistoryPrune > 0 {
		n, err := cache.Prune(flagHistoryPrune)
		if err != nil {
			return err
		}
		con.LogSuccess("Pruned %d old fetches", n)
	}

	entries, err := cache.History(flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		con.LogInfo("No cached reports in %s", pipeline.CachePath())
		return nil
	}

	rows := make([][]string, 0, len(entries))
	totals := make([]float64, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			e.FetchedAt.Local().Format("2006-01-02 15:04"),
			cli.FormatAge(e.FetchedAt),
			e.InvoiceDate,
			e.Query.Plant,
			e.Query.Type,
			cli.FormatNumber(int64(e.RowCount)),
			cli.FormatAmount(e.Total),
		})
		// oldest first for the sparkline
		totals[len(entries)-1-i] = e.Total.InexactFloat64()
	}

	count, err := cache.ReportCount()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:      fmt.Sprintf("Cached fetches (%s of %s)", cli.FormatNumber(int64(len(entries))), cli.FormatNumber(int64(count))),
		Headers:    []string{"Fetched", "Age", "Invoice Date", "Plant", "Type", "Rows", "Total"},
		Rows:       rows,
		RightAlign: []bool{false, false, false, false, false, true, true},
	}))
	fmt.Printf("  Totals over time  %s\n\n", cli.RenderSparkline(totals))
	return nil
}
