// Package tui provides the interactive Bubble Tea dashboard for freightdash.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/freightapi"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/store"
	"github.com/theirongolddev/freightdash/internal/tui/components"
	"github.com/theirongolddev/freightdash/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ReportLoadedMsg is sent when a report load finishes. Seq identifies the
// request; responses for an older selection are dropped.
type ReportLoadedMsg struct {
	Seq    int
	Query  model.Query
	Result *pipeline.LoadResult
	Err    error
}

// Options configures a dashboard session.
type Options struct {
	Config config.Config
	// Query is the initial selection.
	Query model.Query
	// BaseURL overrides the configured API base URL when non-empty.
	BaseURL string
	// CachePath is the report cache database; empty disables caching.
	CachePath string
	Load      pipeline.LoadOptions
	// NeedSetup shows the first-run form before loading.
	NeedSetup bool
}

// App is the root Bubble Tea model.
type App struct {
	cfg       config.Config
	query     model.Query
	plants    []config.PlantInfo
	baseURL   string
	fetcher   pipeline.Fetcher
	cachePath string
	loadOpts  pipeline.LoadOptions

	// Data
	result  *pipeline.LoadResult
	view    *model.Report // result.Report after the material group filter
	loadErr error
	loading bool
	seq     int

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	tables    map[model.Category]*table.Model

	// Material group filter
	filter    string
	filtering bool
	filterIn  textinput.Model

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	spinner spinner.Model
	now     func() time.Time
}

const (
	minTerminalWidth = 70
	maxContentWidth  = 160
	minContentHeight = 5
	minRefresh       = 30 * time.Second
	loadTimeout      = 45 * time.Second
	tabGroups        = 2
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	refreshInterval := time.Duration(opts.Config.TUI.RefreshIntervalSec) * time.Second
	if refreshInterval < minRefresh {
		refreshInterval = 5 * time.Minute
	}

	q := opts.Query
	if q.Month.Year == 0 {
		q.Month = model.CurrentMonth()
	}

	a := App{
		cfg:             opts.Config,
		query:           q,
		plants:          config.Plants(opts.Config),
		baseURL:         opts.BaseURL,
		cachePath:       opts.CachePath,
		loadOpts:        opts.Load,
		autoRefresh:     opts.Config.TUI.AutoRefresh,
		refreshInterval: refreshInterval,
		tables:          make(map[model.Category]*table.Model),
		spinner:         sp,
		needSetup:       opts.NeedSetup,
		now:             time.Now,
	}
	a.fetcher = newFetcher(a.cfg, a.baseURL)

	if a.needSetup {
		a.setupVals = SetupValuesFrom(a.cfg)
		a.setupForm = NewSetupForm(&a.setupVals)
	} else {
		a.seq = 1
		a.loading = true
	}
	return a
}

// newFetcher returns an API client, or nil when no token is configured so
// that pipeline.Load reports ErrNoToken.
func newFetcher(cfg config.Config, baseURL string) pipeline.Fetcher {
	if baseURL == "" {
		baseURL = cfg.API.BaseURL
	}
	client, err := freightapi.NewClient(baseURL, config.GetToken(cfg))
	if err != nil {
		return nil
	}
	return client
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		tickCmd(),
	}
	if a.needSetup && a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	} else {
		cmds = append(cmds, loadReportCmd(a.seq, a.query, a.fetcher, a.cachePath, a.loadOpts))
	}
	return tea.Batch(cmds...)
}

// startLoad issues a load for the current selection. Any load still in
// flight becomes stale.
func (a *App) startLoad() tea.Cmd {
	a.seq++
	a.loading = true
	return tea.Batch(
		loadReportCmd(a.seq, a.query, a.fetcher, a.cachePath, a.loadOpts),
		a.spinner.Tick,
	)
}

// current reports whether the loaded report matches the selection.
func (a App) current() bool {
	return a.result != nil && a.result.Report != nil && a.result.Report.Query.Key() == a.query.Key()
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		a.layoutTables()
		return a, nil

	case tea.MouseMsg:
		if a.showHelp || a.setupForm != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if tbl := a.activeTable(); tbl != nil {
				tbl.MoveUp(1)
			}
		case tea.MouseButtonWheelDown:
			if tbl := a.activeTable(); tbl != nil {
				tbl.MoveDown(1)
			}
		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress && msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case ReportLoadedMsg:
		if msg.Seq != a.seq {
			return a, nil
		}
		a.loading = false
		if msg.Err != nil {
			a.loadErr = msg.Err
			return a, nil
		}
		a.loadErr = nil
		a.result = msg.Result
		a.lastRefresh = a.now()
		a.applyFilter()
		return a, nil

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.autoRefresh && !a.loading && a.setupForm == nil &&
			!a.lastRefresh.IsZero() && a.now().Sub(a.lastRefresh) >= a.refreshInterval {
			cmds = append(cmds, a.startLoad())
		}
		return a, tea.Batch(cmds...)
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.filtering {
		var cmd tea.Cmd
		a.filterIn, cmd = a.filterIn.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// First-run setup intercepts all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	if a.filtering {
		return a.updateFilterInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "left", "h":
		a.query.Month = a.query.Month.Add(-1)
		return a, a.startLoad()
	case "right", "l":
		next := a.query.Month.Add(1)
		if next.After(model.MonthOf(a.now())) {
			return a, nil
		}
		a.query.Month = next
		return a, a.startLoad()
	case "t":
		if cur := model.MonthOf(a.now()); cur != a.query.Month {
			a.query.Month = cur
			return a, a.startLoad()
		}
		return a, nil
	case "p":
		next := config.NextPlant(a.plants, a.query.Plant)
		if next == a.query.Plant {
			return a, nil
		}
		a.query.Plant = next
		return a, a.startLoad()
	case "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "r":
		if a.loading {
			return a, nil
		}
		return a, a.startLoad()
	case "R":
		a.autoRefresh = !a.autoRefresh
		cfg := a.cfg
		cfg.TUI.AutoRefresh = a.autoRefresh
		if config.Save(cfg) == nil {
			a.cfg = cfg
		}
		return a, nil
	case "/":
		a.filtering = true
		a.filterIn = newFilterInput(a.filter)
		return a, textinput.Blink
	case "esc":
		if a.filter != "" {
			a.filter = ""
			a.applyFilter()
		}
		return a, nil
	}

	if idx := components.TabIdxByKey(key); idx >= 0 {
		a.activeTab = idx
		return a, nil
	}

	if tbl := a.activeTable(); tbl != nil {
		updated, cmd := tbl.Update(msg)
		*tbl = updated
		return a, cmd
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.cfg = ApplySetup(a.cfg, a.setupVals)
		_ = config.Save(a.cfg)
		theme.SetActive(a.cfg.Appearance.Theme)
		a.plants = config.Plants(a.cfg)
		if a.cfg.General.ClientID != "" {
			a.query.ClientID = a.cfg.General.ClientID
		}
		if a.cfg.General.DefaultPlant != "" {
			a.query.Plant = a.cfg.General.DefaultPlant
		}
		a.fetcher = newFetcher(a.cfg, a.baseURL)
		a.needSetup = false
		a.setupForm = nil
		return a, a.startLoad()
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, a.startLoad()
	}

	return a, cmd
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  freightdash needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Selection", []struct{ key, desc string }{
			{"← →", "Previous / Next month"},
			{"t", "Jump to current month"},
			{"p", "Next plant"},
		}},
		{"Tables", []struct{ key, desc string }{
			{"tab 1 2 3", "Switch table"},
			{"j k", "Move through rows"},
			{"/", "Filter by material group"},
			{"Esc", "Clear filter"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"r", "Refresh report"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w, a.selectionPill())

	info := components.StatusInfo{
		Refreshing:  a.loading,
		AutoRefresh: a.autoRefresh,
	}
	if a.current() {
		info.Updated = cli.FormatAge(a.result.FetchedAt)
		info.FromCache = a.result.FromCache
	}
	if a.loadErr != nil && !a.loading {
		info.Err = cli.ErrorMessage(a.loadErr)
	}
	statusBar := components.RenderStatusBar(w, info)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch {
	case a.current():
		content = a.renderReport(cw)
	case a.loadErr != nil && !a.loading:
		content = a.renderError(cw)
	default:
		content = a.renderLoading(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// selectionPill renders the plant, month and filter shown at the right of
// the tab bar.
func (a App) selectionPill() string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	plant := a.query.Plant
	for _, p := range a.plants {
		if p.Code == plant {
			plant = p.Label()
			break
		}
	}
	if plant == "" {
		plant = "all plants"
	}

	s := accent.Render(plant) + dim.Render(" · ") + accent.Render(a.query.Month.Label())
	if a.filter != "" {
		s += dim.Render(" · ") + accent.Render("/"+a.filter)
	}
	return s + dim.Render(" ")
}

func (a App) renderLoading(cw int) string {
	t := theme.Active
	style := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spin := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	body := spin.Render(a.spinner.View()) +
		style.Render(fmt.Sprintf(" Loading %s for plant %s...", a.query.Month.Label(), a.query.Plant))
	return components.ContentCard("", body, cw)
}

func (a App) renderError(cw int) string {
	t := theme.Active
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := errStyle.Render(cli.ErrorMessage(a.loadErr))
	if hint := cli.ErrorHint(a.loadErr); hint != "" {
		body += "\n" + hintStyle.Render(hint)
	}
	body += "\n" + hintStyle.Render("Press r to retry")
	return components.ContentCard("Could not load report", body, cw)
}

// ─── Commands ───────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadReportCmd loads the report for q in the background, opening the
// cache for the duration of the load.
func loadReportCmd(seq int, q model.Query, f pipeline.Fetcher, cachePath string, opts pipeline.LoadOptions) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		var cache *store.Cache
		if cachePath != "" && !opts.NoCache {
			if c, err := store.Open(cachePath); err == nil {
				cache = c
				defer func() { _ = c.Close() }()
			}
		}

		res, err := pipeline.Load(ctx, q, f, cache, opts)
		return ReportLoadedMsg{Seq: seq, Query: q, Result: res, Err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
