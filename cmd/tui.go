package cmd

import (
	"fmt"

	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/tui"
	"github.com/theirongolddev/freightdash/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	theme.SetActive(s.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	cachePath := ""
	if !flagNoCache {
		cachePath = pipeline.CachePath()
	}

	app := tui.NewApp(tui.Options{
		Config:    s.cfg,
		Query:     s.query,
		BaseURL:   s.baseURL,
		CachePath: cachePath,
		Load:      s.loadOptions(),
		NeedSetup: !config.Exists() && config.GetToken(s.cfg) == "",
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
