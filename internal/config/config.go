package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// TokenEnv is the environment variable that overrides the configured token.
const TokenEnv = "FREIGHTDASH_TOKEN"

// Config holds all freightdash configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	API        APIConfig        `toml:"api"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
	Archive    ArchiveConfig    `toml:"archive"`
}

// GeneralConfig holds the default report selection.
type GeneralConfig struct {
	ClientID     string            `toml:"client_id"`
	DefaultPlant string            `toml:"default_plant"`
	Plants       []string          `toml:"plants,omitempty"`
	PlantNames   map[string]string `toml:"plant_names,omitempty"`
	Type         string            `toml:"type"`
}

// APIConfig holds safety-sheet endpoint settings.
type APIConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Token   string `toml:"token,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard refresh settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// ArchiveConfig holds S3 upload settings for exports.
type ArchiveConfig struct {
	Bucket  string `toml:"bucket,omitempty"`
	Prefix  string `toml:"prefix,omitempty"`
	Region  string `toml:"region,omitempty"`
	Profile string `toml:"profile,omitempty"`
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(a.Bucket) != ""
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			ClientID: "AACCS3034M",
			Type:     "daily",
		},
		API: APIConfig{
			BaseURL: "https://pel.quadworld.in",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:        false,
			RefreshIntervalSec: 300,
		},
		Archive: ArchiveConfig{
			Prefix: "freightdash/",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "freightdash")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "freightdash")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) into the environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// GetToken returns the bearer token from env var or config, in that order.
func GetToken(cfg Config) string {
	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		return tok
	}
	return strings.TrimSpace(cfg.API.Token)
}

// TokenSource names where GetToken found the token, for display.
func TokenSource(cfg Config) string {
	switch {
	case strings.TrimSpace(os.Getenv(TokenEnv)) != "":
		return "env " + TokenEnv
	case strings.TrimSpace(cfg.API.Token) != "":
		return "config file"
	default:
		return "not set"
	}
}

// MaskToken hides all but the first and last four characters of a token.
func MaskToken(tok string) string {
	if len(tok) > 12 {
		return tok[:4] + "..." + tok[len(tok)-4:]
	}
	if tok != "" {
		return "****"
	}
	return ""
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
