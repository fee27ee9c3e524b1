package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/console"
	"github.com/theirongolddev/freightdash/internal/pipeline"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	cfg := s.cfg

	fmt.Printf("  Config file: %s\n", console.Highlight(config.ConfigPath()))
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: " + console.Notice("using defaults (no config file)"))
	}
	fmt.Printf("  Cache: %s\n", pipeline.CachePath())
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Println(console.Field("Client ID", 14, s.query.ClientID))
	fmt.Println(console.Field("Type", 14, s.query.Type))
	plant := s.query.Plant
	if plant == "" {
		plant = console.Alert("not set")
	}
	fmt.Println(console.Field("Default plant", 14, plant))
	if plants := config.Plants(cfg); len(plants) > 0 {
		labels := make([]string, len(plants))
		for i, p := range plants {
			labels[i] = p.Label()
		}
		fmt.Println(console.Field("Plants", 14, strings.Join(labels, ", ")))
	}
	fmt.Println()

	fmt.Println("  [API]")
	fmt.Println(console.Field("Base URL", 9, s.baseURL))
	if tok := config.GetToken(cfg); tok != "" {
		fmt.Println(console.Field("Token", 9, config.MaskToken(tok)+" "+console.Muted("("+config.TokenSource(cfg)+")")))
	} else {
		fmt.Println(console.Field("Token", 9, console.Alert("not configured")))
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Println(console.Field("Theme", 6, cfg.Appearance.Theme))
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Println(console.Field("Auto refresh", 13, cfg.TUI.AutoRefresh))
	fmt.Println(console.Field("Interval", 13, fmt.Sprintf("%ds", cfg.TUI.RefreshIntervalSec)))
	fmt.Println()

	fmt.Println("  [Archive]")
	if cfg.Archive.Enabled() {
		fmt.Println(console.Field("Bucket", 8, "s3://"+cfg.Archive.Bucket+"/"+strings.Trim(cfg.Archive.Prefix, "/")))
		if cfg.Archive.Region != "" {
			fmt.Println(console.Field("Region", 8, cfg.Archive.Region))
		}
		if cfg.Archive.Profile != "" {
			fmt.Println(console.Field("Profile", 8, cfg.Archive.Profile))
		}
	} else {
		fmt.Println(console.Field("Bucket", 8, console.Muted("not configured")))
	}
	fmt.Println()

	if len(cfg.General.PlantNames) > 0 {
		codes := make([]string, 0, len(cfg.General.PlantNames))
		for code := range cfg.General.PlantNames {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fmt.Println("  [Plant names]")
		for _, code := range codes {
			fmt.Println(console.Field(code, 8, cfg.General.PlantNames[code]))
		}
		fmt.Println()
	}

	fmt.Println("  Run `freightdash setup` to reconfigure.")
	return nil
}
