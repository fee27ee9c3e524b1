package tui

import (
	"errors"
	"strings"

	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers of the setup form.
type SetupValues struct {
	Token    string
	ClientID string
	Plant    string
	Plants   string // comma-separated extra plant codes
	Theme    string
}

// SetupValuesFrom pre-fills the form from an existing config. The token is
// left blank so an existing one is kept unless replaced.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		ClientID: cfg.General.ClientID,
		Plant:    cfg.General.DefaultPlant,
		Plants:   strings.Join(cfg.General.Plants, ", "),
		Theme:    theme.ByName(cfg.Appearance.Theme).Name,
	}
}

// NewSetupForm builds the first-run form writing into vals.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to freightdash").
				Description("Air freight cost reports per plant and month.\nAnswers are saved to "+config.ConfigPath()),
			huh.NewInput().
				Title("API token").
				Description("Bearer token for the freight-cost API. Leave blank to keep the current one or use "+config.TokenEnv+".").
				EchoMode(huh.EchoModePassword).
				Value(&vals.Token),
			huh.NewInput().
				Title("Client ID").
				Value(&vals.ClientID).
				Validate(requireValue("client ID")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Default plant").
				Description("Plant code shown on start, e.g. 1000").
				Value(&vals.Plant).
				Validate(requireValue("plant")),
			huh.NewInput().
				Title("Other plants").
				Description("Comma-separated plant codes to cycle through with p").
				Value(&vals.Plants),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithShowHelp(true)
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}

// ApplySetup returns cfg updated with the form answers.
func ApplySetup(cfg config.Config, vals SetupValues) config.Config {
	if tok := strings.TrimSpace(vals.Token); tok != "" {
		cfg.API.Token = tok
	}
	if id := strings.TrimSpace(vals.ClientID); id != "" {
		cfg.General.ClientID = id
	}
	if p := strings.TrimSpace(vals.Plant); p != "" {
		cfg.General.DefaultPlant = p
	}

	var plants []string
	for _, p := range strings.Split(vals.Plants, ",") {
		if p = strings.TrimSpace(p); p != "" && p != cfg.General.DefaultPlant {
			plants = append(plants, p)
		}
	}
	cfg.General.Plants = plants

	if vals.Theme != "" {
		cfg.Appearance.Theme = theme.ByName(vals.Theme).Name
	}
	return cfg
}
