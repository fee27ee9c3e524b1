// Package cmd implements the freightdash CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/console"
	"github.com/theirongolddev/freightdash/internal/freightapi"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagMonth    string
	flagPlant    string
	flagClientID string
	flagType     string
	flagBaseURL  string
	flagEnvFile  string
	flagNoCache  bool
	flagOffline  bool
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "freightdash",
	Short: "Air freight cost reports per plant and month",
	Long: "Fetch the air freight safety sheet for a plant and month, and show what was\n" +
		"borne by the plant and what was charged to the customer.",
	SilenceUsage: true,
	RunE:         runReport,
}

// errReported marks an error whose message was already printed.
var errReported = errors.New("")

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			console.New(false).LogError("%s", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "Report month as YYYY-MM (default: current month)")
	rootCmd.PersistentFlags().StringVarP(&flagPlant, "plant", "p", "", "Plant code (default: general.default_plant)")
	rootCmd.PersistentFlags().StringVar(&flagClientID, "client-id", "", "Client ID (default: general.client_id)")
	rootCmd.PersistentFlags().StringVar(&flagType, "type", "", "Aggregation type (default: general.type)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "API base URL (default: api.base_url)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Env file holding "+config.TokenEnv)
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the report cache entirely")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "Serve the newest cached report without fetching")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// settings is the effective configuration after flags override config.
type settings struct {
	cfg     config.Config
	query   model.Query
	baseURL string
}

// loadSettings loads the env file and config, then applies the flags.
func loadSettings() (settings, error) {
	if err := config.LoadDotEnv(flagEnvFile); err != nil {
		return settings{}, err
	}
	cfg, err := config.Load()
	if err != nil {
		return settings{}, err
	}

	month := model.CurrentMonth()
	if flagMonth != "" {
		if month, err = model.ParseMonth(flagMonth); err != nil {
			return settings{}, err
		}
	}

	return settings{
		cfg: cfg,
		query: model.Query{
			ClientID: firstNonEmpty(flagClientID, cfg.General.ClientID, freightapi.DefaultClientID),
			Month:    month,
			Type:     firstNonEmpty(flagType, cfg.General.Type, freightapi.DefaultType),
			Plant:    firstNonEmpty(flagPlant, cfg.General.DefaultPlant),
		},
		baseURL: firstNonEmpty(flagBaseURL, cfg.API.BaseURL),
	}, nil
}

func (s settings) requirePlant() error {
	if s.query.Plant == "" {
		return errors.New("no plant selected: pass --plant or run `freightdash setup`")
	}
	return nil
}

func (s settings) loadOptions() pipeline.LoadOptions {
	return pipeline.LoadOptions{NoCache: flagNoCache, Offline: flagOffline}
}

// fetcher returns the API client, or nil when no token is configured.
// pipeline.Load turns a nil fetcher into freightapi.ErrNoToken.
func (s settings) fetcher() (pipeline.Fetcher, error) {
	client, err := freightapi.NewClient(s.baseURL, config.GetToken(s.cfg))
	if errors.Is(err, freightapi.ErrNoToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newConsole() *console.Console {
	return console.New(flagQuiet)
}

// openCache opens the report cache. A cache that cannot be opened is
// reported and skipped.
func openCache(con *console.Console) *store.Cache {
	if flagNoCache {
		return nil
	}
	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		con.LogWarning("Cache unavailable (%s), continuing without it", err)
		return nil
	}
	return cache
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadReport is the shared fetch path used by all report commands.
func loadReport(ctx context.Context, s settings, cache *store.Cache, con *console.Console) (*pipeline.LoadResult, error) {
	f, err := s.fetcher()
	if err != nil {
		return nil, err
	}

	q := s.query
	status := con.Status(fmt.Sprintf("Fetching %s for plant %s", q.Month.Label(), q.Plant))
	res, err := pipeline.Load(ctx, q, f, cache, s.loadOptions())
	if err != nil {
		status.Stop()
		return nil, reportLoadError(con, err)
	}

	switch {
	case res.FetchErr != nil:
		status.Stop()
		con.LogWarning("%s; showing cached copy from %s",
			cli.ErrorMessage(res.FetchErr), cli.FormatAge(res.FetchedAt))
	case res.FromCache:
		status.Success(fmt.Sprintf("Loaded cached report from %s", cli.FormatAge(res.FetchedAt)))
	default:
		status.Success(fmt.Sprintf("Fetched %d rows in %s", res.Report.RowCount(), cli.FormatDuration(res.LoadTime)))
	}
	return res, nil
}

// reportLoadError prints the user-facing message for a load error.
func reportLoadError(con *console.Console, err error) error {
	con.LogError("%s", cli.ErrorMessage(err))
	if hint := cli.ErrorHint(err); hint != "" {
		con.LogInfo("%s", hint)
	}
	return fmt.Errorf("%w%w", errReported, err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
