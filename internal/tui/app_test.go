package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/freightdash/internal/cli"
	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/freightapi"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/tui/components"
)

var june = model.Month{Year: 2025, Month: time.June}

func testApp(t *testing.T) App {
	t.Helper()
	t.Setenv(config.TokenEnv, "")

	cfg := config.DefaultConfig()
	cfg.General.DefaultPlant = "1000"
	cfg.General.Plants = []string{"2000"}

	a := NewApp(Options{
		Config: cfg,
		Query:  model.Query{ClientID: "AACCS3034M", Month: june, Type: "daily", Plant: "1000"},
	})
	a.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return a
}

func sampleReport(q model.Query) *model.Report {
	amt := decimal.RequireFromString
	return &model.Report{
		Query: q,
		Tables: map[model.Category]*model.CategoryTable{
			model.VictoraAccount: {
				Category: model.VictoraAccount,
				Rows: []model.LeafRow{
					{MaterialGroup: "Seals", Material: "S-1", ReasonForAir: "Line stop", AirFreightAmount: amt("1234.5")},
					{MaterialGroup: "Bearings", Material: "B-9", ReasonForAir: "-", AirFreightAmount: amt("100")},
				},
				Total: amt("1334.5"),
			},
			model.CustomerAccount: {Category: model.CustomerAccount, Total: decimal.Zero},
		},
	}
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	app, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return app
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(a App) ReportLoadedMsg {
	return ReportLoadedMsg{
		Seq:    a.seq,
		Query:  a.query,
		Result: &pipeline.LoadResult{Report: sampleReport(a.query), FetchedAt: a.now(), LoadTime: 120 * time.Millisecond},
	}
}

func TestNewAppWithoutTokenHasNoFetcher(t *testing.T) {
	a := testApp(t)
	if a.fetcher != nil {
		t.Fatalf("fetcher = %T, want nil without a token", a.fetcher)
	}
	if !a.loading || a.seq != 1 {
		t.Fatalf("loading=%v seq=%d, want initial load pending", a.loading, a.seq)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	a := testApp(t)
	first := loaded(a)

	a = update(t, a, keyRunes("p"))
	if a.query.Plant != "2000" || a.seq != 2 {
		t.Fatalf("after p: plant=%s seq=%d", a.query.Plant, a.seq)
	}

	a = update(t, a, first)
	if a.result != nil || !a.loading {
		t.Fatal("response for the previous plant should be dropped")
	}

	a = update(t, a, loaded(a))
	if !a.current() || a.loading {
		t.Fatal("response for the current selection should be shown")
	}
}

func TestMonthNavigation(t *testing.T) {
	a := testApp(t)

	a = update(t, a, tea.KeyMsg{Type: tea.KeyRight})
	if a.query.Month != june || a.seq != 1 {
		t.Fatalf("month moved past the current month: %s", a.query.Month)
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyLeft})
	a = update(t, a, tea.KeyMsg{Type: tea.KeyLeft})
	if want := (model.Month{Year: 2025, Month: time.April}); a.query.Month != want {
		t.Fatalf("month = %s, want %s", a.query.Month, want)
	}
	if a.query.InvoiceDate() != "2025-04-30" {
		t.Fatalf("invoice date = %s", a.query.InvoiceDate())
	}

	a = update(t, a, keyRunes("t"))
	if a.query.Month != june {
		t.Fatalf("t should jump back to %s, got %s", june, a.query.Month)
	}
}

func TestTabSwitching(t *testing.T) {
	a := testApp(t)
	for want := 1; want <= len(components.Tabs); want++ {
		a = update(t, a, tea.KeyMsg{Type: tea.KeyTab})
		if a.activeTab != want%len(components.Tabs) {
			t.Fatalf("activeTab = %d, want %d", a.activeTab, want%len(components.Tabs))
		}
	}
	a = update(t, a, keyRunes("3"))
	if a.activeTab != tabGroups {
		t.Fatalf("activeTab = %d, want groups", a.activeTab)
	}
}

func TestViewRendersReport(t *testing.T) {
	a := testApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	a = update(t, a, loaded(a))

	out := a.View()
	for _, want := range []string{
		"Detail Report- Freight Account-Plant",
		"Material Group", "Seals", "Line stop", "1,234.50",
		"Total Air Freight Amount", "1,334.50",
		"Jun 2025",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	a = update(t, a, keyRunes("2"))
	if out := a.View(); !strings.Contains(out, "No air freight charged.") {
		t.Error("empty customer table should show the placeholder")
	}

	a = update(t, a, keyRunes("3"))
	if out := a.View(); !strings.Contains(out, "Top material groups") || !strings.Contains(out, "100.0%") {
		t.Error("groups tab missing chart or share")
	}
}

func TestViewRendersError(t *testing.T) {
	a := testApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 100, Height: 30})
	a = update(t, a, ReportLoadedMsg{Seq: a.seq, Query: a.query, Err: fmt.Errorf("load: %w", freightapi.ErrNoToken)})

	out := a.View()
	if !strings.Contains(out, "No token found") || !strings.Contains(out, "freightdash setup") {
		t.Errorf("error view missing message or hint")
	}
}

func TestMaterialGroupFilter(t *testing.T) {
	a := testApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	a = update(t, a, loaded(a))

	a = update(t, a, keyRunes("/"))
	if !a.filtering {
		t.Fatal("/ should open the filter input")
	}
	for _, r := range "seal" {
		a = update(t, a, keyRunes(string(r)))
	}
	a = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	plant := a.view.Table(model.VictoraAccount)
	if a.filter != "seal" || len(plant.Rows) != 1 || !plant.Total.Equal(decimal.RequireFromString("1234.5")) {
		t.Fatalf("filter=%q rows=%d total=%s", a.filter, len(plant.Rows), plant.Total)
	}
	if tbl := a.activeTable(); tbl == nil || len(tbl.Rows()) != 1 {
		t.Fatal("table rows should follow the filter")
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.filter != "" || len(a.view.Table(model.VictoraAccount).Rows) != 2 {
		t.Fatal("esc should clear the filter")
	}
}

func TestNewCategoryTableWithRows(t *testing.T) {
	ct := &model.CategoryTable{
		Category: model.VictoraAccount,
		Rows: []model.LeafRow{
			{MaterialGroup: "M1", Material: "X", ReasonForAir: "-", AirFreightAmount: decimal.NewFromInt(100)},
		},
		Total: decimal.NewFromInt(100),
	}

	tbl := newCategoryTable(ct)
	if len(tbl.Columns()) != len(cli.ReportHeaders) {
		t.Fatalf("columns = %d, want %d", len(tbl.Columns()), len(cli.ReportHeaders))
	}
	if len(tbl.Rows()) != 1 {
		t.Fatalf("rows = %d, want 1", len(tbl.Rows()))
	}
	if out := tbl.View(); !strings.Contains(out, "M1") || !strings.Contains(out, "100.00") {
		t.Errorf("table view missing row:\n%s", out)
	}
}

// Init starts the first load before the terminal reports its size, so a
// report can arrive while the width is still unknown.
func TestReportLoadedBeforeWindowSize(t *testing.T) {
	a := testApp(t)
	a = update(t, a, loaded(a))

	if !a.current() || a.loading {
		t.Fatal("report loaded before the first resize should be shown")
	}
	if tbl := a.activeTable(); tbl == nil || len(tbl.Rows()) != 2 {
		t.Fatal("plant table should hold both rows")
	}
	if out := a.View(); out != "" {
		t.Errorf("view before the first resize = %q, want empty", out)
	}

	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	want := columnWidths(a.contentWidth())
	for i, col := range a.activeTable().Columns() {
		if col.Width != want[i] {
			t.Errorf("column %d width = %d, want %d after resize", i, col.Width, want[i])
		}
	}
	out := a.View()
	for _, s := range []string{"Seals", "Line stop", "1,234.50", "Total Air Freight Amount"} {
		if !strings.Contains(out, s) {
			t.Errorf("view missing %q", s)
		}
	}
}

func TestTableRowsRightAlignAmounts(t *testing.T) {
	rows := tableRows(sampleReport(model.Query{}).Table(model.VictoraAccount), 10)
	want := table.Row{"Bearings", "B-9", "-", "    100.00"}
	if fmt.Sprint(rows[1]) != fmt.Sprint(want) {
		t.Fatalf("row = %q, want %q", rows[1], want)
	}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 1 // separator
		}
		if got := a.tabAtX(pos + 50); got != -1 {
			t.Fatalf("x past the tabs -> %d, want -1", got)
		}
	}
}

func TestApplySetup(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.Token = "old-token"

	got := ApplySetup(cfg, SetupValues{
		ClientID: " AACCS3034M ",
		Plant:    "1000",
		Plants:   "2000, 1000, ,3000",
		Theme:    "tokyo-night",
	})
	if got.API.Token != "old-token" {
		t.Errorf("blank token answer should keep the existing token, got %q", got.API.Token)
	}
	if got.General.ClientID != "AACCS3034M" || got.General.DefaultPlant != "1000" {
		t.Errorf("general = %+v", got.General)
	}
	if strings.Join(got.General.Plants, ",") != "2000,3000" {
		t.Errorf("plants = %v, want [2000 3000]", got.General.Plants)
	}
	if got.Appearance.Theme != "tokyo-night" {
		t.Errorf("theme = %s", got.Appearance.Theme)
	}

	if vals := SetupValuesFrom(got); vals.Plants != "2000, 3000" || vals.Token != "" {
		t.Errorf("SetupValuesFrom = %+v", vals)
	}
}
