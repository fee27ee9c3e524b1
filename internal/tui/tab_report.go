package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/tui/components"
	"github.com/theirongolddev/freightdash/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	amountColW  = 18
	metricRowH  = 5 // metric card with delta line
	tableChrome = 6 // card border, title, table header + rule, total line
)

// tabCategory maps a table tab to its category.
func tabCategory(tab int) (model.Category, bool) {
	if tab < 0 || tab >= len(model.Categories) {
		return "", false
	}
	return model.Categories[tab], true
}

func (a *App) activeTable() *table.Model {
	c, ok := tabCategory(a.activeTab)
	if !ok {
		return nil
	}
	return a.tables[c]
}

// applyFilter recomputes the displayed report from the loaded one and
// rebuilds the category tables.
func (a *App) applyFilter() {
	if a.result == nil || a.result.Report == nil {
		a.view = nil
		return
	}
	a.view = pipeline.FilterByMaterialGroup(a.result.Report, a.filter)
	a.tables = make(map[model.Category]*table.Model, len(model.Categories))
	for _, c := range model.Categories {
		tbl := newCategoryTable(a.view.Table(c))
		a.tables[c] = &tbl
	}
	a.layoutTables()
}

// columnWidths splits the card's inner width between the four columns.
// Every cell carries one column of padding on each side.
func columnWidths(cw int) []int {
	inner := components.CardInnerWidth(cw) - 2*len(cli.ReportHeaders)
	rest := inner - amountColW
	if rest < 30 {
		rest = 30
	}
	group := rest * 28 / 100
	material := rest * 32 / 100
	reason := rest - group - material
	return []int{group, material, reason, amountColW}
}

// layoutTables resizes the category tables to the terminal.
func (a *App) layoutTables() {
	if a.width == 0 {
		return
	}
	widths := columnWidths(a.contentWidth())
	cols := tableColumns(widths)

	height := a.height - 2 - metricRowH - tableChrome
	if height < 3 {
		height = 3
	}
	for c, tbl := range a.tables {
		tbl.SetColumns(cols)
		tbl.SetRows(tableRows(a.view.Table(c), widths[3]))
		tbl.SetHeight(height)
	}
}

func tableColumns(widths []int) []table.Column {
	cols := make([]table.Column, len(cli.ReportHeaders))
	for i, h := range cli.ReportHeaders {
		cols[i] = table.Column{Title: h, Width: widths[i]}
	}
	return cols
}

// newCategoryTable builds a table sized for the narrowest supported
// terminal. Columns must be set before rows; layoutTables resizes them
// once the terminal size is known.
func newCategoryTable(ct *model.CategoryTable) table.Model {
	t := theme.Active
	widths := columnWidths(minTerminalWidth)

	tbl := table.New(
		table.WithColumns(tableColumns(widths)),
		table.WithRows(tableRows(ct, widths[3])),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Foreground(t.Accent).
		Bold(true)
	s.Cell = s.Cell.Foreground(t.TextPrimary)
	s.Selected = s.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(false)
	tbl.SetStyles(s)
	return tbl
}

// tableRows renders a category's rows, right-aligning the amount column.
func tableRows(ct *model.CategoryTable, amountW int) []table.Row {
	rows := make([]table.Row, len(ct.Rows))
	for i, r := range ct.Rows {
		rows[i] = table.Row{
			r.MaterialGroup,
			r.Material,
			r.ReasonForAir,
			fmt.Sprintf("%*s", amountW, cli.FormatAmount(r.AirFreightAmount)),
		}
	}
	return rows
}

func (a App) renderReport(cw int) string {
	t := theme.Active
	r := a.view

	metrics := []components.Metric{
		{
			Label: model.VictoraAccount.Short(),
			Value: cli.FormatAmount(r.Table(model.VictoraAccount).Total),
			Delta: cli.FormatPercent(r.Share(model.VictoraAccount)) + " of total",
			Color: t.Plant,
		},
		{
			Label: model.CustomerAccount.Short(),
			Value: cli.FormatAmount(r.Table(model.CustomerAccount).Total),
			Delta: cli.FormatPercent(r.Share(model.CustomerAccount)) + " of total",
			Color: t.Customer,
		},
		{
			Label: "Grand total",
			Value: cli.FormatAmount(r.GrandTotal()),
			Delta: "invoice " + a.query.InvoiceDate(),
		},
		{
			Label: "Rows",
			Value: cli.FormatNumber(int64(r.RowCount())),
			Delta: "loaded in " + cli.FormatDuration(a.result.LoadTime),
		},
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	if c, ok := tabCategory(a.activeTab); ok {
		b.WriteString(a.renderCategory(c, cw))
	} else if a.activeTab == tabGroups {
		b.WriteString(a.renderGroups(cw))
	}
	if a.filtering {
		b.WriteString("\n")
		b.WriteString(a.filterIn.View())
	}
	return b.String()
}

func (a App) renderCategory(c model.Category, cw int) string {
	t := theme.Active
	ct := a.view.Table(c)

	if len(ct.Rows) == 0 {
		muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		return components.ContentCard(c.Title(), muted.Render("No air freight charged."), cw)
	}

	tbl := a.tables[c]
	if tbl == nil {
		return ""
	}

	widths := columnWidths(cw)
	labelW := widths[0] + widths[1] + widths[2] + 6
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	totalStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Bold(true)
	footer := labelStyle.Render(fmt.Sprintf(" %-*s", labelW-1, cli.TotalLabel)) +
		totalStyle.Render(fmt.Sprintf(" %*s ", widths[3], cli.FormatAmount(ct.Total)))

	return components.ContentCard(c.Title(), tbl.View()+"\n"+footer, cw)
}

func newFilterInput(value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "material group"
	ti.CharLimit = 64
	ti.Width = 40
	ti.SetValue(value)
	ti.Focus()
	return ti
}

// updateFilterInput handles keys while the material group filter is edited.
func (a App) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.filter = strings.TrimSpace(a.filterIn.Value())
		a.filtering = false
		a.applyFilter()
		return a, nil
	case "esc":
		a.filtering = false
		return a, nil
	}

	var cmd tea.Cmd
	a.filterIn, cmd = a.filterIn.Update(msg)
	return a, cmd
}
