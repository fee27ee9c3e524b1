package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/freightdash/internal/freightapi"
	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/store"
)

// Fetcher returns the raw safety-sheet body for a query.
type Fetcher interface {
	FetchRaw(ctx context.Context, q model.Query) ([]byte, error)
}

// LoadOptions controls how Load uses the cache.
type LoadOptions struct {
	// NoCache skips both reading and writing the cache.
	NoCache bool
	// Offline serves the newest cached fetch without touching the network.
	Offline bool
}

// LoadResult holds the output of one fetch-and-flatten run.
type LoadResult struct {
	Report    *model.Report
	FromCache bool
	FetchedAt time.Time
	LoadTime  time.Duration
	// FetchErr is the network error that forced a cache fallback.
	FetchErr error
}

// ProgressFunc is called during multi-plant loading to report progress.
// current is the number of plants loaded so far, total is the total count.
type ProgressFunc func(current, total int)

// Load fetches the report for q, flattens it and records the raw body in
// the cache. When the fetch fails and a cached copy exists, the cached copy
// is served and the fetch error is kept in LoadResult.FetchErr.
// cache may be nil.
func Load(ctx context.Context, q model.Query, f Fetcher, cache *store.Cache, opts LoadOptions) (*LoadResult, error) {
	start := time.Now()
	useCache := cache != nil && !opts.NoCache

	if opts.Offline {
		if !useCache {
			return nil, fmt.Errorf("offline mode needs the cache: %w", store.ErrNotCached)
		}
		res, err := fromCache(q, cache)
		if err != nil {
			return nil, err
		}
		res.LoadTime = time.Since(start)
		return res, nil
	}

	if f == nil {
		return nil, freightapi.ErrNoToken
	}

	body, err := f.FetchRaw(ctx, q)
	if err != nil {
		if !useCache || errors.Is(err, context.Canceled) {
			return nil, err
		}
		res, cacheErr := fromCache(q, cache)
		if cacheErr != nil {
			return nil, err
		}
		res.FetchErr = err
		res.LoadTime = time.Since(start)
		return res, nil
	}

	items, err := freightapi.Decode(body)
	if err != nil {
		return nil, err
	}
	report := Flatten(items)
	report.Query = q
	fetchedAt := time.Now()

	if useCache {
		if _, err := cache.SaveReport(q, body, fetchedAt, report.RowCount(), report.GrandTotal()); err != nil {
			return nil, fmt.Errorf("caching report: %w", err)
		}
	}

	return &LoadResult{
		Report:    report,
		FetchedAt: fetchedAt,
		LoadTime:  time.Since(start),
	}, nil
}

// PlantResult is the outcome of loading one plant in LoadPlants.
type PlantResult struct {
	Query  model.Query
	Result *LoadResult
	Err    error
}

// LoadPlants loads several queries with a bounded worker pool. Results keep
// the order of qs; per-plant failures are reported in PlantResult.Err.
func LoadPlants(ctx context.Context, qs []model.Query, f Fetcher, cache *store.Cache, opts LoadOptions, progressFn ProgressFunc) []PlantResult {
	results := make([]PlantResult, len(qs))
	if len(qs) == 0 {
		return results
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(qs) {
		numWorkers = len(qs)
	}

	work := make(chan int, len(qs))
	for i := range qs {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	var processed atomic.Int64

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				res, err := Load(ctx, qs[idx], f, cache, opts)
				results[idx] = PlantResult{Query: qs[idx], Result: res, Err: err}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(qs))
				}
			}
		}()
	}

	wg.Wait()
	return results
}

func fromCache(q model.Query, cache *store.Cache) (*LoadResult, error) {
	entry, err := cache.LoadLatest(q)
	if err != nil {
		return nil, err
	}
	items, err := freightapi.Decode(entry.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding cached report: %w", err)
	}
	report := Flatten(items)
	report.Query = q
	return &LoadResult{
		Report:    report,
		FromCache: true,
		FetchedAt: entry.FetchedAt,
	}, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "freightdash")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "freightdash")
}

// CachePath returns the path to the report cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "reports.db")
}
