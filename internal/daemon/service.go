// Package daemon provides the long-running freight report monitor service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/freightdash/internal/export"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"
	"github.com/theirongolddev/freightdash/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	// Query is the report to poll. With FollowCurrentMonth its month is
	// replaced by the current month on every poll.
	Query              model.Query
	FollowCurrentMonth bool
	Fetcher            pipeline.Fetcher
	// Cache is optional; when set, fetches are recorded and failed polls
	// fall back to the newest cached copy.
	Cache        *store.Cache
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Logger       *pterm.Logger
}

// Snapshot is a compact report state for status/event payloads.
type Snapshot struct {
	At            time.Time       `json:"at"`
	Month         string          `json:"month"`
	Plant         string          `json:"plant"`
	InvoiceDate   string          `json:"invoice_date"`
	Rows          int             `json:"rows"`
	PlantTotal    decimal.Decimal `json:"plant_total"`
	CustomerTotal decimal.Decimal `json:"customer_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	FromCache     bool            `json:"from_cache"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Rows          int             `json:"rows"`
	PlantTotal    decimal.Decimal `json:"plant_total"`
	CustomerTotal decimal.Decimal `json:"customer_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

func (d Delta) isZero() bool {
	return d.Rows == 0 &&
		d.PlantTotal.IsZero() &&
		d.CustomerTotal.IsZero() &&
		d.GrandTotal.IsZero()
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	ClientID        string    `json:"client_id"`
	Plant           string    `json:"plant"`
	Type            string    `json:"type"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

const streamKeepAlive = 30 * time.Second

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	log *pterm.Logger
	now func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	result      *pipeline.LoadResult

	events *broker
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 30*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pterm.DefaultLogger.WithWriter(os.Stderr)
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		now:       time.Now,
		startedAt: time.Now(),
		events:    newBroker(cfg.EventsBuffer),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/export", s.handleExport)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info("daemon listening", s.log.Args("addr", s.cfg.Addr, "interval", s.cfg.Interval.String()))

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) currentQuery() model.Query {
	q := s.cfg.Query
	if s.cfg.FollowCurrentMonth {
		q.Month = model.MonthOf(s.now())
	}
	return q
}

func (s *Service) pollOnce(ctx context.Context) {
	q := s.currentQuery()
	res, err := pipeline.Load(ctx, q, s.cfg.Fetcher, s.cfg.Cache, pipeline.LoadOptions{})
	now := s.now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.log.Error("poll failed", s.log.Args("plant", q.Plant, "month", q.Month.String(), "error", err.Error()))
		return
	}
	if res.FetchErr != nil {
		s.log.Warn("serving cached report", s.log.Args("plant", q.Plant, "error", res.FetchErr.Error()))
	}

	snap := snapshotFromResult(res, now)

	s.mu.Lock()
	prev, hadSnapshot := s.snapshot, s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap
	s.result = res
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	if res.FetchErr != nil {
		s.lastError = res.FetchErr.Error()
	}
	s.mu.Unlock()

	s.log.Debug("poll complete", s.log.Args("rows", snap.Rows, "total", snap.GrandTotal.StringFixed(2), "load_time", res.LoadTime.String()))

	switch {
	case !hadSnapshot:
		s.events.publish(EventSnapshot, snap, Delta{})
	case prev.Month != snap.Month || prev.Plant != snap.Plant:
		s.log.Info("period changed", s.log.Args("from", prev.Month, "to", snap.Month))
		s.events.publish(EventPeriodChanged, snap, Delta{})
	default:
		if delta := diffSnapshots(prev, snap); !delta.isZero() {
			s.log.Info("report changed", s.log.Args("rows", delta.Rows, "grand_total", delta.GrandTotal.StringFixed(2)))
			s.events.publish(EventReportDelta, snap, delta)
		}
	}
}

func snapshotFromResult(res *pipeline.LoadResult, at time.Time) Snapshot {
	r := res.Report
	return Snapshot{
		At:            at,
		Month:         r.Query.Month.String(),
		Plant:         r.Query.Plant,
		InvoiceDate:   r.Query.InvoiceDate(),
		Rows:          r.RowCount(),
		PlantTotal:    r.Table(model.VictoraAccount).Total,
		CustomerTotal: r.Table(model.CustomerAccount).Total,
		GrandTotal:    r.GrandTotal(),
		FromCache:     res.FromCache,
		FetchedAt:     res.FetchedAt,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Rows:          curr.Rows - prev.Rows,
		PlantTotal:    curr.PlantTotal.Sub(prev.PlantTotal),
		CustomerTotal: curr.CustomerTotal.Sub(prev.CustomerTotal),
		GrandTotal:    curr.GrandTotal.Sub(prev.GrandTotal),
	}
}

func (s *Service) snapshotStatus() Status {
	events, subs := s.events.counts()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		ClientID:        s.cfg.Query.ClientID,
		Plant:           s.cfg.Query.Plant,
		Type:            s.cfg.Query.Type,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      events,
		SubscriberCount: subs,
	}
}

// currentDocument returns the latest report for rendering, or false when
// no poll has succeeded yet.
func (s *Service) currentDocument() (export.Document, bool) {
	s.mu.RLock()
	res := s.result
	s.mu.RUnlock()
	if res == nil {
		return export.Document{}, false
	}
	doc := export.NewDocument(res.Report, res.FetchedAt, res.FromCache)
	doc.RefreshSeconds = int(s.cfg.Interval.Seconds())
	return doc, true
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleReport(w http.ResponseWriter, _ *http.Request) {
	doc, ok := s.currentDocument()
	if !ok {
		http.Error(w, "report not loaded yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", export.JSON.ContentType())
	_ = export.Render(w, doc, export.JSON)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, ok := s.currentDocument()
	if !ok {
		http.Error(w, "report not loaded yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.BaseName()+"."+string(format)))
	if err := export.Render(w, doc, format); err != nil {
		s.log.Error("export failed", s.log.Args("format", string(format), "error", err.Error()))
	}
}

func (s *Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	doc, ok := s.currentDocument()
	if !ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Refresh", "5")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Loading freight report...\n"))
		return
	}
	w.Header().Set("Content-Type", export.HTML.ContentType())
	_ = export.Render(w, doc, export.HTML)
}

// handleEvents lists retained events, optionally only those after ?since=ID.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	since, err := eventCursor(r.URL.Query().Get("since"))
	if err != nil {
		http.Error(w, "invalid since", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.events.since(since))
}

// handleStream serves events as server-sent events. A reconnecting client
// sending Last-Event-ID first receives the retained events it missed;
// a new client receives the current snapshot.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, unsubscribe := s.events.subscribe(16)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var sent int64
	if last, err := eventCursor(r.Header.Get("Last-Event-ID")); err == nil && last > 0 {
		for _, ev := range s.events.since(last) {
			_ = writeSSE(w, ev)
			sent = ev.ID
		}
	} else {
		_ = writeSSE(w, Event{
			Type:      EventSnapshot,
			Timestamp: s.now(),
			Snapshot:  s.snapshotStatus().Summary,
		})
	}
	flusher.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if ev.ID <= sent {
				continue
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func eventCursor(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
