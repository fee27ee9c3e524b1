package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/theirongolddev/freightdash/internal/freightapi"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/store"
)

const sampleBody = `[{"freightLogs":[{"materialGroup":"M1","reasonForAir":"Urgent","freightLogs":[{"freightLogs":[
	{"freightBorneBy":"Victora Account","materialGroup":"M1","machineLogs":[{"material":"X","airFreightAmount":100}]},
	{"freightBorneBy":"Customer Account","materialGroup":"M2","machineLogs":[{"material":"Y","airFreightAmount":20.5}]}
]}]}]}]`

type fakeFetcher struct {
	body  string
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) FetchRaw(_ context.Context, _ model.Query) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func openCache(t *testing.T) *store.Cache {
	t.Helper()
	c, err := store.Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func loaderQuery(plant string) model.Query {
	return model.Query{ClientID: "AACCS3034M", Month: model.Month{Year: 2025, Month: 5}, Type: "daily", Plant: plant}
}

func TestLoad_FetchesAndCaches(t *testing.T) {
	cache := openCache(t)
	f := &fakeFetcher{body: sampleBody}

	res, err := Load(context.Background(), loaderQuery("1000"), f, cache, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.FromCache {
		t.Fatal("fresh fetch reported as cached")
	}
	if !res.Report.GrandTotal().Equal(amt("120.5")) {
		t.Fatalf("GrandTotal = %s, want 120.5", res.Report.GrandTotal())
	}
	if res.Report.Query.Plant != "1000" {
		t.Fatalf("Query not attached: %+v", res.Report.Query)
	}

	n, err := cache.ReportCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("cached fetches = %d, want 1", n)
	}
}

func TestLoad_FallsBackToCache(t *testing.T) {
	cache := openCache(t)
	q := loaderQuery("1000")
	if _, err := Load(context.Background(), q, &fakeFetcher{body: sampleBody}, cache, LoadOptions{}); err != nil {
		t.Fatal(err)
	}

	down := &fakeFetcher{err: &freightapi.StatusError{Code: 503, Status: "503 Service Unavailable"}}
	res, err := Load(context.Background(), q, down, cache, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.FromCache || res.FetchErr == nil {
		t.Fatalf("FromCache=%v FetchErr=%v, want cached fallback", res.FromCache, res.FetchErr)
	}
	if got := len(res.Report.Table(model.VictoraAccount).Rows); got != 1 {
		t.Fatalf("victora rows = %d, want 1", got)
	}
}

func TestLoad_ErrorWithoutCache(t *testing.T) {
	f := &fakeFetcher{err: freightapi.ErrUnauthorized}
	_, err := Load(context.Background(), loaderQuery("1000"), f, openCache(t), LoadOptions{})
	if !errors.Is(err, freightapi.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized (nothing cached)", err)
	}

	_, err = Load(context.Background(), loaderQuery("1000"), f, nil, LoadOptions{})
	if !errors.Is(err, freightapi.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized (nil cache)", err)
	}
}

func TestLoad_Offline(t *testing.T) {
	cache := openCache(t)
	q := loaderQuery("1000")
	f := &fakeFetcher{body: sampleBody}

	if _, err := Load(context.Background(), q, f, cache, LoadOptions{Offline: true}); !errors.Is(err, store.ErrNotCached) {
		t.Fatalf("err = %v, want ErrNotCached", err)
	}
	if _, err := Load(context.Background(), q, f, cache, LoadOptions{}); err != nil {
		t.Fatal(err)
	}

	res, err := Load(context.Background(), q, f, cache, LoadOptions{Offline: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.FromCache {
		t.Fatal("offline load should come from cache")
	}
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestLoad_NoCacheSkipsWrite(t *testing.T) {
	cache := openCache(t)
	if _, err := Load(context.Background(), loaderQuery("1000"), &fakeFetcher{body: sampleBody}, cache, LoadOptions{NoCache: true}); err != nil {
		t.Fatal(err)
	}
	n, _ := cache.ReportCount()
	if n != 0 {
		t.Fatalf("cached fetches = %d, want 0", n)
	}
}

func TestLoadPlants(t *testing.T) {
	cache := openCache(t)
	qs := []model.Query{loaderQuery("1000"), loaderQuery("2000"), loaderQuery("3000")}
	f := &fakeFetcher{body: sampleBody}

	var last atomic.Int32
	results := LoadPlants(context.Background(), qs, f, cache, LoadOptions{}, func(current, total int) {
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		last.Store(int32(current))
	})

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("plant %s: %v", r.Query.Plant, r.Err)
		}
		if r.Query.Plant != qs[i].Plant {
			t.Fatalf("results[%d] plant = %s, want input order", i, r.Query.Plant)
		}
	}
	if last.Load() != 3 {
		t.Fatalf("final progress = %d, want 3", last.Load())
	}
}
