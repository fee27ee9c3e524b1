package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/freightdash/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Bar is one row of a horizontal bar chart.
type Bar struct {
	Label string
	Value float64
	// Display is the formatted value printed after the bar.
	Display string
	Color   lipgloss.Color
}

// HBarChart renders one horizontal bar per item, scaled to the largest
// value. Labels longer than labelW are truncated.
func HBarChart(bars []Bar, labelW, width int) string {
	if len(bars) == 0 {
		return ""
	}
	t := theme.Active

	peak := 0.0
	valueW := 0
	for _, b := range bars {
		if b.Value > peak {
			peak = b.Value
		}
		if w := lipgloss.Width(b.Display); w > valueW {
			valueW = w
		}
	}
	if peak == 0 {
		peak = 1
	}

	barW := width - labelW - valueW - 3
	if barW < 5 {
		barW = 5
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	trackStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	lines := make([]string, len(bars))
	for i, b := range bars {
		color := b.Color
		if color == "" {
			color = t.Accent
		}
		n := int(b.Value / peak * float64(barW))
		if n < 0 {
			n = 0
		}
		if n == 0 && b.Value > 0 {
			n = 1
		}
		if n > barW {
			n = barW
		}

		fillStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
		lines[i] = labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncate(b.Label, labelW))) +
			spaceStyle.Render(" ") +
			fillStyle.Render(strings.Repeat("█", n)) +
			trackStyle.Render(strings.Repeat("·", barW-n)) +
			spaceStyle.Render(" ") +
			valueStyle.Render(fmt.Sprintf("%*s", valueW, b.Display))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
