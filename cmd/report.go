package cmd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagAllPlants bool
	flagGroup     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the plant and customer freight tables (default command)",
	RunE:  runReport,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, reportCmd} {
		c.Flags().BoolVar(&flagAllPlants, "all-plants", false, "Summarize every configured plant instead of one")
		c.Flags().StringVarP(&flagGroup, "group", "g", "", "Only show material groups containing this text")
	}
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if flagAllPlants {
		return runAllPlants(s)
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

	printReport(pipeline.FilterByMaterialGroup(res.Report, flagGroup))
	return nil
}

func printReport(r *model.Report) {
	q := r.Query
	title := fmt.Sprintf("Air Freight · Plant %s · %s", q.Plant, q.Month.Label())
	if flagGroup != "" {
		title += fmt.Sprintf(" · %q", flagGroup)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()
	for _, c := range model.Categories {
		fmt.Print(cli.RenderCategoryTable(r.Table(c)))
		fmt.Println()
	}
	fmt.Println(cli.RenderSummaryLine(r))
	fmt.Println()
}

func runAllPlants(s settings) error {
	plants := config.Plants(s.cfg)
	if flagPlant != "" {
		plants = append([]config.PlantInfo{{Code: flagPlant, Name: s.cfg.General.PlantNames[flagPlant]}}, plants...)
	}
	if len(plants) == 0 {
		return errors.New("no plants configured: set general.plants or run `freightdash setup`")
	}

	qs := make([]model.Query, 0, len(plants))
	seen := make(map[string]bool)
	for _, p := range plants {
		if seen[p.Code] {
			continue
		}
		seen[p.Code] = true
		q := s.query
		q.Plant = p.Code
		qs = append(qs, q)
	}

	con := newConsole()
	cache := openCache(con)
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}
	f, err := s.fetcher()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	var mu sync.Mutex
	bar := con.Progress("Fetching plants", len(qs))
	results := pipeline.LoadPlants(ctx, qs, f, cache, s.loadOptions(), func(_, _ int) {
		mu.Lock()
		bar.Increment()
		mu.Unlock()
	})
	bar.Stop()

	rows := make([][]string, 0, len(results)+2)
	plantSum, customerSum := decimal.Zero, decimal.Zero
	failed := 0
	for _, pr := range results {
		label := pr.Query.Plant
		if name := s.cfg.General.PlantNames[label]; name != "" {
			label += " " + name
		}
		if pr.Err != nil {
			failed++
			rows = append(rows, []string{label, "-", "-", "-", "-", cli.ErrorMessage(pr.Err)})
			continue
		}

		r := flagFiltered(pr.Result.Report)
		plant := r.Table(model.VictoraAccount).Total
		customer := r.Table(model.CustomerAccount).Total
		plantSum = plantSum.Add(plant)
		customerSum = customerSum.Add(customer)

		source := "fetched"
		if pr.Result.FromCache {
			source = "cached " + cli.FormatAge(pr.Result.FetchedAt)
		}
		rows = append(rows, []string{
			label,
			cli.FormatNumber(int64(r.RowCount())),
			cli.FormatAmount(plant),
			cli.FormatAmount(customer),
			cli.FormatAmount(r.GrandTotal()),
			source,
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"All plants", "",
		cli.FormatAmount(plantSum),
		cli.FormatAmount(customerSum),
		cli.FormatAmount(plantSum.Add(customerSum)),
		"",
	})

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Air Freight · All Plants · %s", s.query.Month.Label())))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers:    []string{"Plant", "Rows", model.VictoraAccount.Short(), model.CustomerAccount.Short(), "Total", "Source"},
		Rows:       rows,
		RightAlign: []bool{false, true, true, true, true, false},
	}))
	fmt.Println()

	if failed > 0 {
		con.LogWarning("%d of %d plants could not be loaded", failed, len(results))
	}
	if failed == len(results) {
		return errReported
	}
	return nil
}

func flagFiltered(r *model.Report) *model.Report {
	return pipeline.FilterByMaterialGroup(r, flagGroup)
}
