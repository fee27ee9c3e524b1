// Package store provides a SQLite-backed cache of fetched freight reports.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/freightdash/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNotCached is returned when no fetch is cached for a query.
var ErrNotCached = errors.New("store: report not cached")

// Cache provides SQLite-backed report caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Entry is one cached fetch.
type Entry struct {
	FetchID     string
	Query       model.Query
	InvoiceDate string
	FetchedAt   time.Time
	RowCount    int
	Total       decimal.Decimal
	Body        []byte
}

// SaveReport stores the raw body of a fetch together with its flattened
// row count and grand total, and returns the new fetch id.
func (c *Cache) SaveReport(q model.Query, body []byte, fetchedAt time.Time, rowCount int, total decimal.Decimal) (string, error) {
	id := uuid.NewString()
	q = q.Normalized()
	_, err := c.db.Exec(`INSERT INTO reports
		(fetch_id, query_key, client_id, invoice_date, report_type, plant,
		 fetched_at, row_count, total_amount, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, q.Key(), q.ClientID, q.InvoiceDate(), q.Type, q.Plant,
		fetchedAt.UTC().Format(time.RFC3339Nano), rowCount, total.String(), body,
	)
	if err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}
	return id, nil
}

// LoadLatest returns the most recent fetch cached for q.
func (c *Cache) LoadLatest(q model.Query) (Entry, error) {
	row := c.db.QueryRow(`SELECT
		fetch_id, client_id, invoice_date, report_type, plant,
		fetched_at, row_count, total_amount, body
		FROM reports WHERE query_key = ?
		ORDER BY fetched_at DESC LIMIT 1`, q.Key())

	e, err := scanEntry(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotCached
	}
	if err != nil {
		return Entry{}, err
	}
	e.Query.Month = q.Month
	return e, nil
}

// History returns cached fetches, newest first, without bodies.
// limit <= 0 returns everything.
func (c *Cache) History(limit int) ([]Entry, error) {
	query := `SELECT
		fetch_id, client_id, invoice_date, report_type, plant,
		fetched_at, row_count, total_amount
		FROM reports ORDER BY fetched_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune keeps the newest keep fetches per query and deletes the rest.
// It returns the number of deleted fetches.
func (c *Cache) Prune(keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := c.db.Exec(`DELETE FROM reports WHERE fetch_id IN (
		SELECT fetch_id FROM (
			SELECT fetch_id, ROW_NUMBER() OVER (
				PARTITION BY query_key ORDER BY fetched_at DESC
			) AS rn FROM reports
		) WHERE rn > ?
	)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning reports: %w", err)
	}
	return res.RowsAffected()
}

// ReportCount returns the number of cached fetches.
func (c *Cache) ReportCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

func scanEntry(scan func(dest ...any) error, withBody bool) (Entry, error) {
	var e Entry
	var fetchedAt, total string
	dest := []any{
		&e.FetchID, &e.Query.ClientID, &e.InvoiceDate, &e.Query.Type, &e.Query.Plant,
		&fetchedAt, &e.RowCount, &total,
	}
	if withBody {
		dest = append(dest, &e.Body)
	}
	if err := scan(dest...); err != nil {
		return Entry{}, err
	}

	e.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetchedAt)
	e.Total, _ = decimal.NewFromString(total)
	if d, err := time.Parse("2006-01-02", e.InvoiceDate); err == nil {
		e.Query.Month = model.MonthOf(d)
	}
	return e, nil
}
