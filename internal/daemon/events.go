package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Event types.
const (
	EventSnapshot      = "snapshot"
	EventReportDelta   = "report_delta"
	EventPeriodChanged = "period_changed"
)

// Event is emitted whenever the report snapshot updates.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// broker numbers events, keeps the newest ones and fans them out to
// stream subscribers. Slow subscribers miss events instead of blocking.
type broker struct {
	mu     sync.Mutex
	limit  int
	lastID int64
	ring   []Event
	subs   map[chan Event]struct{}
}

func newBroker(limit int) *broker {
	return &broker{limit: limit, subs: make(map[chan Event]struct{})}
}

// publish assigns the next event ID and delivers the event.
func (b *broker) publish(typ string, snap Snapshot, delta Delta) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	ev := Event{ID: b.lastID, Type: typ, Timestamp: snap.At, Snapshot: snap, Delta: delta}

	b.ring = append(b.ring, ev)
	if over := len(b.ring) - b.limit; over > 0 {
		b.ring = append(b.ring[:0], b.ring[over:]...)
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// since returns retained events with an ID greater than id, oldest first.
func (b *broker) since(id int64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, len(b.ring))
	for _, ev := range b.ring {
		if ev.ID > id {
			out = append(out, ev)
		}
	}
	return out
}

// subscribe registers a buffered channel; the returned func unregisters it.
func (b *broker) subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}

func (b *broker) counts() (events, subscribers int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring), len(b.subs)
}

// writeSSE writes one server-sent event frame.
func writeSSE(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
	return err
}
