package cmd

import (
	"fmt"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagGroupsTop int

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Summarize freight per material group",
	RunE:  runGroups,
}

func init() {
	groupsCmd.Flags().IntVar(&flagGroupsTop, "top", 0, "Show the N largest groups across both accounts instead")
	groupsCmd.Flags().StringVarP(&flagGroup, "group", "g", "", "Only show material groups containing this text")
	rootCmd.AddCommand(groupsCmd)
}

func runGroups(_ *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if err := s.requirePlant(); err != nil {
		return err
	}

	con := newConsole()
	cache := openCache(con)
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	ctx, cancel := commandContext()
	defer cancel()

	res, err := loadReport(ctx, s, cache, con)
	if err != nil {
		return err
	}
	r := flagFiltered(res.Report)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Material Groups · Plant %s · %s", r.Query.Plant, r.Query.Month.Label())))
	fmt.Println()

	if flagGroupsTop > 0 {
		printTopGroups(r, flagGroupsTop)
		return nil
	}

	for _, c := range model.Categories {
		table := r.Table(c)
		groups := pipeline.Summarize(table)
		if len(groups) == 0 {
			fmt.Print(cli.RenderCategoryTable(table))
			fmt.Println()
			continue
		}

		rows := make([][]string, 0, len(groups)+2)
		for _, g := range groups {
			rows = append(rows, []string{
				g.MaterialGroup,
				g.Materials,
				g.ReasonForAir,
				cli.FormatNumber(int64(g.Rows)),
				cli.FormatAmount(g.Amount),
			})
		}
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{cli.TotalLabel, "", "", cli.FormatNumber(int64(len(table.Rows))), cli.FormatAmount(table.Total)})

		fmt.Print(cli.RenderTable(cli.Table{
			Title:      c.Title(),
			Headers:    []string{"Material Group", "Materials", "Reason for Air", "Rows", "Amount"},
			Rows:       rows,
			RightAlign: []bool{false, false, false, true, true},
		}))
		fmt.Println()
	}
	return nil
}

func printTopGroups(r *model.Report, n int) {
	grand := r.GrandTotal()
	groups := pipeline.TopGroups(r, n)

	rows := make([][]string, 0, len(groups))
	for i, g := range groups {
		share := 0.0
		if grand.IsPositive() {
			share = g.Amount.Div(grand).InexactFloat64()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			g.MaterialGroup,
			cli.FormatNumber(int64(g.Rows)),
			cli.FormatAmount(g.Amount),
			cli.FormatPercent(share),
			cli.RenderShareBar(share, 20),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:      fmt.Sprintf("Top %d material groups", n),
		Headers:    []string{"#", "Material Group", "Rows", "Amount", "Share", ""},
		Rows:       rows,
		RightAlign: []bool{true, false, true, true, true, false},
	}))
	fmt.Println()
}
