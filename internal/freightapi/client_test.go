package freightapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/theirongolddev/freightdash/internal/model"
)

func testQuery() model.Query {
	return model.Query{
		ClientID: "AACCS3034M",
		Month:    model.Month{Year: 2024, Month: 2},
		Type:     "daily",
		Plant:    "1000",
	}
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient("", "   "); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
	c, err := NewClient("", "tok")
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("BaseURL = %q, want default", c.BaseURL())
	}
}

func TestFetch_SendsQueryAndBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != safetySheetPath {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		q := r.URL.Query()
		want := map[string]string{
			"clientId":    "AACCS3034M",
			"invoiceDate": "2024-02-29",
			"type":        "daily",
			"plant":       "1000",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
			}
		}
		_, _ = w.Write([]byte(`[{"freightLogs":[{"materialGroup":"M1","freightLogs":[]}]}]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", "secret")
	if err != nil {
		t.Fatal(err)
	}
	items, err := c.Fetch(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || len(items[0].FreightLogs) != 1 || items[0].FreightLogs[0].MaterialGroup != "M1" {
		t.Fatalf("items = %+v", items)
	}
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.code)
		}))
		c, _ := NewClient(srv.URL, "tok")
		_, err := c.FetchRaw(context.Background(), testQuery())
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.code, err, tt.want)
		}
	}
}

func TestFetch_ServerErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "tok")
	_, err := c.FetchRaw(context.Background(), testQuery())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusBadGateway {
		t.Fatalf("Code = %d, want 502", se.Code)
	}
}

func TestDecode(t *testing.T) {
	items, err := Decode([]byte(`null`))
	if err != nil || len(items) != 0 {
		t.Fatalf("null -> %v, %v", items, err)
	}
	if _, err := Decode([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatal("object body should fail to decode")
	}
	items, err = Decode([]byte(`[{"freightLogs":[{"freightLogs":[{"freightLogs":[{"machineLogs":[{"material":"X","airFreightAmount":"12.50"}]}]}]}]}]`))
	if err != nil {
		t.Fatal(err)
	}
	amt := items[0].FreightLogs[0].FreightLogs[0].FreightLogs[0].MachineLogs[0].AirFreightAmount
	if amt.String() != "12.5" {
		t.Fatalf("amount = %s, want 12.5", amt)
	}
}

func TestRequestURL_Defaults(t *testing.T) {
	c, _ := NewClient("http://example.test", "tok")
	got := c.RequestURL(model.Query{Month: model.Month{Year: 2025, Month: 4}, Plant: "P1"})
	want := "http://example.test/air-freight-cost/aggregate/safety-sheet?clientId=AACCS3034M&invoiceDate=2025-04-30&plant=P1&type=daily"
	if got != want {
		t.Fatalf("RequestURL =\n %s\nwant\n %s", got, want)
	}
}
