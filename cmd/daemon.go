package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/console"
	"github.com/theirongolddev/freightdash/internal/daemon"
	"github.com/theirongolddev/freightdash/internal/freightapi"
	"github.com/theirongolddev/freightdash/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
	flagDaemonDebug        bool
	flagDaemonLogJSON      bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Poll the freight report and serve it over HTTP/SSE",
	Long: "Poll the safety sheet for one plant and serve the latest report as JSON,\n" +
		"exports and an HTML page, with change events over server-sent events.\n" +
		"Without --month the daemon follows the current month.",
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(pipeline.CacheDir(), "freightdashd.pid")
	defaultLog := filepath.Join(pipeline.CacheDir(), "freightdashd.log")

	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "127.0.0.1:8788", "HTTP listen address")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 5*time.Minute, "Polling interval (minimum 30s)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", defaultPID, "PID file path")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", defaultLog, "Log file path for detached mode")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	daemonCmd.Flags().BoolVar(&flagDaemonDebug, "debug", false, "Log every poll")
	daemonCmd.Flags().BoolVar(&flagDaemonLogJSON, "log-json", false, "Log as JSON lines (always on when detached)")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached()
	}

	return runDaemonForeground()
}

func startDaemonDetached() error {
	files := newDaemonFiles(flagDaemonPIDFile)
	if err := files.ensureStopped(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	for _, dir := range []string{filepath.Dir(files.pid), filepath.Dir(flagDaemonLogFile)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create daemon directory: %w", err)
		}
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // re-exec of the running binary
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	con := newConsole()
	con.LogSuccess("Started daemon (pid %d)", child.Process.Pid)
	fmt.Println(console.Field("Report", 8, "http://"+flagDaemonAddr+"/"))
	fmt.Println(console.Field("PID file", 8, files.pid))
	fmt.Println(console.Field("Log", 8, flagDaemonLogFile))
	return nil
}

func runDaemonForeground() error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if err := s.requirePlant(); err != nil {
		return err
	}
	f, err := s.fetcher()
	if err != nil {
		return err
	}
	if f == nil {
		return reportLoadError(newConsole(), freightapi.ErrNoToken)
	}

	files := newDaemonFiles(flagDaemonPIDFile)
	if err := files.ensureStopped(); err != nil {
		return err
	}

	follow := flagMonth == ""
	month := s.query.Month.String()
	if follow {
		month = "current"
	}
	err = files.write(daemonRuntimeState{
		PID:       os.Getpid(),
		Addr:      flagDaemonAddr,
		StartedAt: time.Now(),
		Plant:     s.query.Plant,
		Month:     month,
	})
	if err != nil {
		return err
	}
	defer files.remove()

	logger := console.NewLogger(os.Stdout, flagDaemonDebug, flagDaemonLogJSON || flagDaemonChild)

	cache := openCache(newConsole())
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	svc := daemon.New(daemon.Config{
		Query:              s.query,
		FollowCurrentMonth: follow,
		Fetcher:            f,
		Cache:              cache,
		Interval:           flagDaemonInterval,
		Addr:               flagDaemonAddr,
		EventsBuffer:       flagDaemonEventsBuffer,
		Logger:             logger,
	})

	fmt.Printf("  freightdash daemon listening on http://%s\n", flagDaemonAddr)
	fmt.Printf("  Polling plant %s (%s) every %s\n", s.query.Plant, month, flagDaemonInterval)
	fmt.Printf("  Stop with: freightdash daemon stop --pid-file %s\n", flagDaemonPIDFile)

	ctx, cancel := commandContext()
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	files := newDaemonFiles(flagDaemonPIDFile)
	con := newConsole()

	pid, err := files.readPID()
	switch {
	case err != nil:
		con.LogInfo("Daemon not running")
		return nil
	case !processAlive(pid):
		con.LogWarning("Stale pid file: pid %d is not alive", pid)
		return nil
	}

	addr := flagDaemonAddr
	if st, err := files.readState(); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	const w = 16
	fmt.Println(console.Field("Daemon PID", w, pid))
	fmt.Println(console.Field("Address", w, "http://"+addr))

	st, err := fetchDaemonStatus(addr)
	if err != nil {
		fmt.Println(console.Field("API", w, console.Alert(err.Error())))
		return nil
	}

	lastPoll := "pending"
	if !st.LastPollAt.IsZero() {
		lastPoll = cli.FormatAge(st.LastPollAt)
	}
	fmt.Println(console.Field("Last poll", w, fmt.Sprintf("%s (%d polls, every %ds)", lastPoll, st.PollCount, st.PollIntervalSec)))
	fmt.Println(console.Field("Plant", w, st.Plant))

	if sum := st.Summary; sum.Month != "" {
		fmt.Println(console.Field("Month", w, sum.Month+" (invoice "+sum.InvoiceDate+")"))
		fmt.Println(console.Field("Rows", w, cli.FormatNumber(int64(sum.Rows))))
		fmt.Println(console.Field("Plant account", w, console.Money(cli.FormatAmount(sum.PlantTotal))))
		fmt.Println(console.Field("Customer account", w, console.Money(cli.FormatAmount(sum.CustomerTotal))))
		fmt.Println(console.Field("Grand total", w, console.Money(cli.FormatAmount(sum.GrandTotal))))
		if sum.FromCache {
			fmt.Println(console.Field("Source", w, console.Notice("cached copy from "+cli.FormatAge(sum.FetchedAt))))
		}
	}
	if st.LastError != "" {
		fmt.Println(console.Field("Last error", w, console.Alert(st.LastError)))
	}
	return nil
}

func fetchDaemonStatus(addr string) (daemon.Status, error) {
	var st daemon.Status

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short local probe
	if err != nil {
		return st, fmt.Errorf("unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := newDaemonFiles(flagDaemonPIDFile)
	pid, err := files.readPID()
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(8 * time.Second)
	for {
		select {
		case <-ticker.C:
			if !processAlive(pid) {
				files.remove()
				newConsole().LogSuccess("Stopped daemon (pid %d)", pid)
				return nil
			}
		case <-timeout:
			return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
		}
	}
}

// childArgs rewrites the current arguments for the detached child.
func childArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a != "--detach" && !strings.HasPrefix(a, "--detach=") {
			out = append(out, a)
		}
	}
	return append(out, "--child")
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
