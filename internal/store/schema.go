package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reports (
    fetch_id             TEXT PRIMARY KEY,
    query_key            TEXT NOT NULL,
    client_id            TEXT NOT NULL,
    invoice_date         TEXT NOT NULL,
    report_type          TEXT NOT NULL,
    plant                TEXT NOT NULL,
    fetched_at           TEXT NOT NULL,
    row_count            INTEGER NOT NULL DEFAULT 0,
    total_amount         TEXT NOT NULL DEFAULT '0',
    body                 BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_key ON reports(query_key, fetched_at);
CREATE INDEX IF NOT EXISTS idx_reports_fetched ON reports(fetched_at);
`
