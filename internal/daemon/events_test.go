package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBrokerRing(t *testing.T) {
	b := newBroker(2)
	for i := 0; i < 3; i++ {
		b.publish(EventReportDelta, Snapshot{Rows: i}, Delta{})
	}

	got := b.since(0)
	if len(got) != 2 {
		t.Fatalf("retained %d events, want 2", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("ring holds IDs [%d, %d], want [2, 3]", got[0].ID, got[1].ID)
	}
	if after := b.since(2); len(after) != 1 || after[0].ID != 3 {
		t.Fatalf("since(2) = %+v, want only ID 3", after)
	}
}

func TestBrokerSubscribe(t *testing.T) {
	b := newBroker(10)
	ch, unsubscribe := b.subscribe(1)

	b.publish(EventSnapshot, Snapshot{}, Delta{})
	b.publish(EventReportDelta, Snapshot{}, Delta{}) // buffer full, dropped for this subscriber

	if ev := <-ch; ev.ID != 1 {
		t.Fatalf("first event ID = %d, want 1", ev.ID)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}

	if _, subs := b.counts(); subs != 1 {
		t.Fatalf("subscribers = %d, want 1", subs)
	}
	unsubscribe()
	if events, subs := b.counts(); subs != 0 || events != 2 {
		t.Fatalf("counts = %d events, %d subscribers", events, subs)
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSSE(&buf, Event{ID: 7, Type: EventReportDelta}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "id: 7\nevent: report_delta\ndata: {") || !strings.HasSuffix(out, "}\n\n") {
		t.Fatalf("frame = %q", out)
	}
}

func TestHandleEventsSince(t *testing.T) {
	s := newTestService(&stubFetcher{body: body("100")})
	s.events.publish(EventSnapshot, Snapshot{}, Delta{})
	s.events.publish(EventReportDelta, Snapshot{}, Delta{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events?since=1", nil))
	var events []Event
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != 2 {
		t.Fatalf("events = %+v, want only ID 2", events)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events?since=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid since = %d, want 400", rec.Code)
	}
}

func TestStreamReplaysAfterLastEventID(t *testing.T) {
	s := newTestService(&stubFetcher{body: body("100")})
	s.events.publish(EventSnapshot, Snapshot{Plant: "1000"}, Delta{})
	s.events.publish(EventReportDelta, Snapshot{Plant: "1000"}, Delta{Rows: 1})
	s.events.publish(EventReportDelta, Snapshot{Plant: "1000"}, Delta{Rows: 2})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var ids []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() && len(ids) < 2 {
		if id, ok := strings.CutPrefix(sc.Text(), "id: "); ok {
			ids = append(ids, id)
		}
	}
	if strings.Join(ids, ",") != "2,3" {
		t.Fatalf("replayed ids = %v, want [2 3]", ids)
	}
}
