package tui

import (
	"strings"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/tui/components"
	"github.com/theirongolddev/freightdash/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

const topGroupsShown = 12

func categoryColor(c model.Category) lipgloss.Color {
	if c == model.CustomerAccount {
		return theme.Active.Customer
	}
	return theme.Active.Plant
}

// renderGroups shows how the grand total splits between the categories and
// which material groups carry the most freight.
func (a App) renderGroups(cw int) string {
	t := theme.Active
	r := a.view
	inner := components.CardInnerWidth(cw)

	var split strings.Builder
	for i, c := range model.Categories {
		if i > 0 {
			split.WriteString("\n")
		}
		split.WriteString(components.ShareBar(c.Short(), r.Share(c), cli.FormatAmount(r.Table(c).Total),
			categoryColor(c), 10, inner-36))
	}

	groups := pipeline.TopGroups(r, topGroupsShown)
	var body string
	if len(groups) == 0 {
		body = lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No air freight charged.")
	} else {
		bars := make([]components.Bar, len(groups))
		for i, g := range groups {
			bars[i] = components.Bar{
				Label:   g.MaterialGroup,
				Value:   g.Amount.InexactFloat64(),
				Display: cli.FormatAmount(g.Amount),
				Color:   t.Accent,
			}
		}
		labelW := inner / 4
		if labelW > 28 {
			labelW = 28
		}
		body = components.HBarChart(bars, labelW, inner)
	}

	return components.ContentCard("Split by account", split.String(), cw) + "\n" +
		components.ContentCard("Top material groups", body, cw)
}
