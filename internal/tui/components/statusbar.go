package components

import (
	"github.com/theirongolddev/freightdash/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the status bar reports about the loaded report.
type StatusInfo struct {
	// Updated describes when the shown data was fetched, e.g. "3 minutes ago".
	Updated     string
	FromCache   bool
	Refreshing  bool
	AutoRefresh bool
	// Err is the last load error, shown instead of the data age.
	Err string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Background(t.Surface)
	keyStyle := base.Foreground(t.Accent).Bold(true)
	hintStyle := base.Foreground(t.TextMuted)
	warnStyle := base.Foreground(t.Orange)
	errStyle := base.Foreground(t.Red)

	left := base.Render(" ")
	for i, h := range []struct{ key, desc string }{
		{"?", "help"},
		{"←→", "month"},
		{"p", "plant"},
		{"tab", "table"},
		{"r", "refresh"},
		{"q", "quit"},
	} {
		if i > 0 {
			left += base.Render("  ")
		}
		left += keyStyle.Render(h.key) + hintStyle.Render(" "+h.desc)
	}

	var right string
	switch {
	case info.Err != "":
		right = errStyle.Render(info.Err)
	case info.Refreshing:
		right = hintStyle.Render("refreshing...")
	case info.Updated != "":
		right = hintStyle.Render("updated " + info.Updated)
		if info.FromCache {
			right += warnStyle.Render(" (cached)")
		}
	}
	if info.AutoRefresh {
		right += keyStyle.Render(" ⟳")
	}
	right += base.Render(" ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	fill := base.Width(gap).Render("")

	return lipgloss.NewStyle().MaxWidth(width).Render(left + fill + right)
}
