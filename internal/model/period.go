package model

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// Request defaults applied to a Query with an empty client ID or type.
const (
	DefaultClientID = "AACCS3034M"
	DefaultType     = "daily"
)

// Month is a calendar month selection (the dashboard's month picker).
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" selection.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// CurrentMonth returns the month containing the local current time.
func CurrentMonth() Month {
	return MonthOf(time.Now())
}

// String formats the month as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Label formats the month for headings, e.g. "May 2025".
func (m Month) Label() string {
	return m.first().Format("Jan 2006")
}

// LastDay returns the last calendar day of the month.
func (m Month) LastDay() time.Time {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC)
}

// InvoiceDate returns the invoice date sent to the endpoint: the last day
// of the month as YYYY-MM-DD.
func (m Month) InvoiceDate() string {
	return m.LastDay().Format("2006-01-02")
}

// Add returns the month n months away (negative n steps back).
func (m Month) Add(n int) Month {
	return MonthOf(m.first().AddDate(0, n, 0))
}

// After reports whether m is later than o.
func (m Month) After(o Month) bool {
	return m.first().After(o.first())
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Query identifies one safety-sheet request.
type Query struct {
	ClientID string `json:"clientId" yaml:"client_id"`
	Month    Month  `json:"month" yaml:"month"`
	Type     string `json:"type" yaml:"type"`
	Plant    string `json:"plant" yaml:"plant"`
}

// InvoiceDate is a convenience for q.Month.InvoiceDate.
func (q Query) InvoiceDate() string {
	return q.Month.InvoiceDate()
}

// Normalized returns q with surrounding whitespace trimmed and the default
// client ID and type filled in. It is what the API is actually asked for.
func (q Query) Normalized() Query {
	q.ClientID = strings.TrimSpace(q.ClientID)
	q.Type = strings.TrimSpace(q.Type)
	q.Plant = strings.TrimSpace(q.Plant)
	if q.ClientID == "" {
		q.ClientID = DefaultClientID
	}
	if q.Type == "" {
		q.Type = DefaultType
	}
	return q
}

// Key returns a stable cache key for the request q resolves to.
func (q Query) Key() string {
	n := q.Normalized()
	return fmt.Sprintf("%s|%s|%s|%s", n.ClientID, n.InvoiceDate(), n.Type, n.Plant)
}
