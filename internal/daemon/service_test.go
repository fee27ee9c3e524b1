package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/freightdash/internal/model"
)

type stubFetcher struct {
	mu   sync.Mutex
	body string
}

func (f *stubFetcher) set(body string) {
	f.mu.Lock()
	f.body = body
	f.mu.Unlock()
}

func (f *stubFetcher) FetchRaw(_ context.Context, _ model.Query) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.body), nil
}

func body(amount string) string {
	return `[{"freightLogs":[{"freightLogs":[{"freightLogs":[{"freightBorneBy":"Victora Account","materialGroup":"M1","machineLogs":[{"material":"X","airFreightAmount":` + amount + `}]}]}]}]}]`
}

func newTestService(f *stubFetcher) *Service {
	return New(Config{
		Query:        model.Query{ClientID: "AACCS3034M", Month: model.Month{Year: 2025, Month: 5}, Type: "daily", Plant: "1000"},
		Fetcher:      f,
		Interval:     time.Minute,
		EventsBuffer: 10,
		Logger:       pterm.DefaultLogger.WithWriter(&bytes.Buffer{}),
	})
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Rows:          3,
		PlantTotal:    decimal.RequireFromString("100.10"),
		CustomerTotal: decimal.RequireFromString("50"),
		GrandTotal:    decimal.RequireFromString("150.10"),
	}
	curr := Snapshot{
		Rows:          5,
		PlantTotal:    decimal.RequireFromString("100.30"),
		CustomerTotal: decimal.RequireFromString("50"),
		GrandTotal:    decimal.RequireFromString("150.30"),
	}

	delta := diffSnapshots(prev, curr)
	if delta.Rows != 2 {
		t.Fatalf("Rows delta = %d, want 2", delta.Rows)
	}
	if !delta.PlantTotal.Equal(decimal.RequireFromString("0.2")) {
		t.Fatalf("PlantTotal delta = %s, want exactly 0.2", delta.PlantTotal)
	}
	if !delta.CustomerTotal.IsZero() {
		t.Fatalf("CustomerTotal delta = %s, want 0", delta.CustomerTotal)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots should give a zero delta")
	}
}

func TestPollOnce_Events(t *testing.T) {
	f := &stubFetcher{body: body("100")}
	s := newTestService(f)
	ctx := context.Background()

	s.pollOnce(ctx)
	s.pollOnce(ctx) // unchanged, no event
	f.set(body("125.5"))
	s.pollOnce(ctx)

	events := s.events.since(0)
	s.mu.RLock()
	polls := s.pollCount
	s.mu.RUnlock()

	if polls != 3 {
		t.Fatalf("pollCount = %d, want 3", polls)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want snapshot + delta", len(events))
	}
	if events[0].Type != EventSnapshot || events[1].Type != EventReportDelta {
		t.Fatalf("event types = %s, %s", events[0].Type, events[1].Type)
	}
	if !events[1].Delta.PlantTotal.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("delta = %s, want 25.5", events[1].Delta.PlantTotal)
	}
}

func TestPollOnce_FollowCurrentMonth(t *testing.T) {
	f := &stubFetcher{body: body("100")}
	s := newTestService(f)
	s.cfg.FollowCurrentMonth = true
	s.now = func() time.Time { return time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC) }

	s.pollOnce(context.Background())
	s.now = func() time.Time { return time.Date(2025, 7, 1, 0, 5, 0, 0, time.UTC) }
	s.pollOnce(context.Background())

	if events := s.events.since(0); len(events) != 2 || events[1].Type != EventPeriodChanged {
		t.Fatalf("events = %+v, want snapshot then period_changed", events)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot.InvoiceDate != "2025-07-31" {
		t.Fatalf("InvoiceDate = %s, want 2025-07-31", s.snapshot.InvoiceDate)
	}
}

func TestPollOnce_ErrorRecorded(t *testing.T) {
	s := New(Config{
		Query:    model.Query{Month: model.Month{Year: 2025, Month: 5}, Plant: "1000"},
		Interval: time.Minute,
		Logger:   pterm.DefaultLogger.WithWriter(&bytes.Buffer{}),
	})
	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if st.LastError == "" || st.PollCount != 1 {
		t.Fatalf("status = %+v, want recorded error", st)
	}
}

func TestHandlers(t *testing.T) {
	s := newTestService(&stubFetcher{body: body("100")})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/report")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/v1/report before poll = %d, want 503", resp.StatusCode)
	}

	s.pollOnce(context.Background())

	resp, err = http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if st.Plant != "1000" || st.Summary.Rows != 1 || !st.Summary.GrandTotal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("status = %+v", st)
	}

	resp, err = http.Get(srv.URL + "/v1/export?format=csv")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "freight_1000_2025-05.csv") {
		t.Fatalf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	if !strings.Contains(buf.String(), "M1,X,-,100.00") {
		t.Fatalf("csv = %q", buf.String())
	}

	resp, err = http.Get(srv.URL + "/v1/export?format=docx")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	_, _ = buf.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(buf.String(), "Detail Report- Freight Account-Plant") {
		t.Fatal("index page missing category title")
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("/nope = %d, want 404", resp.StatusCode)
	}
}
