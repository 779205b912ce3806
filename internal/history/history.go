// Package history records executed queries in a local sqlite database so
// past searches can be reviewed and frequent ones identified.
package history

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openclaw/memoranda/internal/errors"
	"github.com/openclaw/memoranda/internal/searcher"
)

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	query        TEXT NOT NULL,
	method       TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	top_id       TEXT NOT NULL DEFAULT '',
	duration_ms  INTEGER NOT NULL,
	at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_searches_query ON searches(query);
CREATE INDEX IF NOT EXISTS idx_searches_at ON searches(at);
`

// TopQuery is a query aggregated by how often it was executed.
type TopQuery struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// SQLiteRecorder persists query records to a sqlite database file.
// Recording is best effort: failures are logged, never surfaced into the
// query path.
type SQLiteRecorder struct {
	db *sql.DB
}

var _ searcher.Recorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (creating if needed) the history database at path.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.IOError(errors.ErrCodeArtifactUnwritable, "creating history dir", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeArtifactUnwritable, "opening history db "+path, err)
	}
	// sqlite handles one writer at a time; more connections just contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.IOError(errors.ErrCodeArtifactUnwritable, "initializing history schema", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Record stores one query record.
func (r *SQLiteRecorder) Record(ctx context.Context, rec searcher.QueryRecord) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO searches (query, method, result_count, top_id, duration_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Query, rec.Method, rec.ResultCount, rec.TopID,
		rec.Duration.Milliseconds(), rec.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		slog.Warn("recording query history failed", slog.String("error", err.Error()))
	}
}

// Recent returns up to n records, newest first.
func (r *SQLiteRecorder) Recent(ctx context.Context, n int) ([]searcher.QueryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT query, method, result_count, top_id, duration_ms, at
		 FROM searches ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeArtifactUnreadable, "reading history", err)
	}
	defer func() { _ = rows.Close() }()

	var out []searcher.QueryRecord
	for rows.Next() {
		var rec searcher.QueryRecord
		var durationMS int64
		var at string
		if err := rows.Scan(&rec.Query, &rec.Method, &rec.ResultCount, &rec.TopID, &durationMS, &at); err != nil {
			return nil, errors.IOError(errors.ErrCodeArtifactUnreadable, "scanning history row", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Top returns up to n distinct queries ordered by execution count.
func (r *SQLiteRecorder) Top(ctx context.Context, n int) ([]TopQuery, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT query, COUNT(*) AS uses, MAX(at) AS last_used
		 FROM searches GROUP BY query ORDER BY uses DESC, last_used DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.IOError(errors.ErrCodeArtifactUnreadable, "reading history", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TopQuery
	for rows.Next() {
		var tq TopQuery
		var lastUsed string
		if err := rows.Scan(&tq.Query, &tq.Count, &lastUsed); err != nil {
			return nil, errors.IOError(errors.ErrCodeArtifactUnreadable, "scanning history row", err)
		}
		tq.LastUsed, _ = time.Parse(time.RFC3339Nano, lastUsed)
		out = append(out, tq)
	}
	return out, rows.Err()
}

// Count returns the total number of recorded queries.
func (r *SQLiteRecorder) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches`).Scan(&n)
	if err != nil {
		return 0, errors.IOError(errors.ErrCodeArtifactUnreadable, "counting history", err)
	}
	return n, nil
}

// Close releases the database handle.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
