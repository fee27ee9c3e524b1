package model

import (
	"encoding/json"
	"testing"
)

func TestMonthInvoiceDate(t *testing.T) {
	tests := []struct {
		month string
		want  string
	}{
		{"2025-01", "2025-01-31"},
		{"2024-02", "2024-02-29"},
		{"2025-02", "2025-02-28"},
		{"2025-04", "2025-04-30"},
		{"2025-12", "2025-12-31"},
	}
	for _, tt := range tests {
		m, err := ParseMonth(tt.month)
		if err != nil {
			t.Fatalf("ParseMonth(%q): %v", tt.month, err)
		}
		if got := m.InvoiceDate(); got != tt.want {
			t.Errorf("InvoiceDate(%s) = %q, want %q", tt.month, got, tt.want)
		}
	}
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, s := range []string{"", "2025", "2025-13", "May 2025", "2025-05-01"} {
		if _, err := ParseMonth(s); err == nil {
			t.Errorf("ParseMonth(%q) succeeded, want error", s)
		}
	}
}

func TestMonthAdd_CrossesYear(t *testing.T) {
	m := Month{Year: 2025, Month: 1}
	if got := m.Add(-1).String(); got != "2024-12" {
		t.Fatalf("Add(-1) = %s, want 2024-12", got)
	}
	if got := m.Add(12).String(); got != "2026-01" {
		t.Fatalf("Add(12) = %s, want 2026-01", got)
	}
	if !m.Add(1).After(m) {
		t.Fatal("next month should be after current")
	}
}

func TestQueryJSONRoundTripsMonth(t *testing.T) {
	q := Query{ClientID: "AACCS3034M", Month: Month{Year: 2025, Month: 5}, Type: "daily", Plant: "1000"}
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatal(err)
	}
	var got Query
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got != q {
		t.Fatalf("round trip = %+v, want %+v", got, q)
	}
	if q.Key() != "AACCS3034M|2025-05-31|daily|1000" {
		t.Fatalf("Key() = %q", q.Key())
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory("Victora Account"); !ok || c != VictoraAccount {
		t.Fatalf("Victora Account -> %q, %v", c, ok)
	}
	if c, ok := ParseCategory("Customer Account"); !ok || c != CustomerAccount {
		t.Fatalf("Customer Account -> %q, %v", c, ok)
	}
	for _, s := range []string{"", "victora account", "Supplier Account"} {
		if _, ok := ParseCategory(s); ok {
			t.Errorf("ParseCategory(%q) recognized, want dropped", s)
		}
	}
}

func TestQueryKeyNormalizesDefaults(t *testing.T) {
	explicit := Query{ClientID: DefaultClientID, Month: Month{Year: 2025, Month: 5}, Type: DefaultType, Plant: "1000"}
	tests := []struct {
		name string
		q    Query
	}{
		{"empty client and type", Query{Month: explicit.Month, Plant: "1000"}},
		{"blank client", Query{ClientID: "  ", Month: explicit.Month, Type: "daily", Plant: "1000"}},
		{"padded plant", Query{ClientID: DefaultClientID, Month: explicit.Month, Plant: " 1000 "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, want := tt.q.Key(), explicit.Key(); got != want {
				t.Errorf("Key() = %q, want %q", got, want)
			}
			if n := tt.q.Normalized(); n != explicit {
				t.Errorf("Normalized() = %+v, want %+v", n, explicit)
			}
		})
	}

	other := explicit
	other.Type = "monthly"
	if other.Key() == explicit.Key() {
		t.Error("a different type shares the cache key")
	}
}
