package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()

	vals := tui.SetupValuesFrom(cfg)
	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	cfg = tui.ApplySetup(cfg, vals)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	con := newConsole()
	con.LogSuccess("Saved to %s", config.ConfigPath())
	if config.GetToken(cfg) == "" {
		con.LogWarning("No token stored; set %s before fetching", config.TokenEnv)
	}
	fmt.Println("  Run `freightdash setup` anytime to reconfigure.")
	return nil
}
