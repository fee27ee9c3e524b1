package components

import (
	"github.com/theirongolddev/freightdash/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name string
	Key  string
}

// Tabs defines all available tabs, in tab-cycling order.
var Tabs = []Tab{
	{Name: "Plant", Key: "1"},
	{Name: "Customer", Key: "2"},
	{Name: "Groups", Key: "3"},
}

func renderTab(tab Tab, active bool) string {
	t := theme.Active

	bg := t.Surface
	nameStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	if active {
		bg = t.SurfaceHover
		nameStyle = lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	}
	keyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(bg)
	nameStyle = nameStyle.Background(bg)
	padStyle := lipgloss.NewStyle().Background(bg)

	return padStyle.Render(" ") + keyStyle.Render(tab.Key) + padStyle.Render(" ") +
		nameStyle.Render(tab.Name) + padStyle.Render(" ")
}

// TabVisualWidth returns the rendered width of a tab, matching RenderTabBar.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(renderTab(tab, active))
}

// RenderTabBar renders the tab bar with the given active index. right is
// drawn flush against the right edge, e.g. the current plant and month.
func RenderTabBar(activeIdx, width int, right string) string {
	t := theme.Active
	sepStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)

	bar := ""
	for i, tab := range Tabs {
		bar += renderTab(tab, i == activeIdx)
		if i < len(Tabs)-1 {
			bar += sepStyle.Render("│")
		}
	}

	gap := width - lipgloss.Width(bar) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	fill := lipgloss.NewStyle().Background(t.Surface).Width(gap).Render("")

	return lipgloss.NewStyle().MaxWidth(width).Render(bar + fill + right)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key string) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
