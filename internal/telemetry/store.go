package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// FileName is the telemetry database inside the data directory.
	FileName = "telemetry.db"

	// maxZeroQueries bounds the persisted zero-result queries.
	maxZeroQueries = 100

	zeroQueriesShown = 20
)

// SQLiteStore persists telemetry batches in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens or creates the database at path. An empty path
// opens an in-memory database.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA synchronous = NORMAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS query_mode_stats (
		date TEXT NOT NULL,
		mode TEXT NOT NULL,
		queries INTEGER NOT NULL DEFAULT 0,
		zero_results INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, mode)
	);
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0,
		last_seen TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// Save adds batch to the totals for date in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, date string, batch Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO query_mode_stats (date, mode, queries, zero_results)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, mode) DO UPDATE SET
			queries = queries + excluded.queries,
			zero_results = zero_results + excluded.zero_results`,
		date, batch.Mode, batch.Queries, batch.ZeroResults); err != nil {
		return fmt.Errorf("save mode counts: %w", err)
	}

	for bucket, count := range batch.Latencies {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO query_latency_stats (date, bucket, count)
			VALUES (?, ?, ?)
			ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count`,
			date, string(bucket), count); err != nil {
			return fmt.Errorf("save latency counts: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for term, count := range batch.Terms {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO query_terms (term, count, last_seen)
			VALUES (?, ?, ?)
			ON CONFLICT(term) DO UPDATE SET
				count = count + excluded.count,
				last_seen = excluded.last_seen`,
			term, count, now); err != nil {
			return fmt.Errorf("save term counts: %w", err)
		}
	}

	for _, zq := range batch.ZeroQueries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zero_result_queries (query, timestamp) VALUES (?, ?)`,
			zq.Query, zq.Timestamp.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("save zero-result query: %w", err)
		}
	}
	if len(batch.ZeroQueries) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM zero_result_queries
			WHERE id NOT IN (SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?)`,
			maxZeroQueries); err != nil {
			return fmt.Errorf("trim zero-result queries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Summary returns the all-time totals with at most topN terms.
func (s *SQLiteStore) Summary(ctx context.Context, topN int) (Snapshot, error) {
	snap := Snapshot{
		ModeCounts:          map[string]int64{},
		LatencyDistribution: map[LatencyBucket]int64{},
		TopTerms:            []TermCount{},
		ZeroResultQueries:   []string{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mode, SUM(queries), SUM(zero_results), MIN(date)
		FROM query_mode_stats GROUP BY mode`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query mode counts: %w", err)
	}
	var first string
	for rows.Next() {
		var mode, date string
		var queries, zero int64
		if err := rows.Scan(&mode, &queries, &zero, &date); err != nil {
			_ = rows.Close()
			return Snapshot{}, fmt.Errorf("scan mode counts: %w", err)
		}
		snap.ModeCounts[mode] = queries
		snap.TotalQueries += queries
		snap.ZeroResultCount += zero
		if first == "" || date < first {
			first = date
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	if first != "" {
		snap.Since, _ = time.Parse("2006-01-02", first)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT bucket, SUM(count) FROM query_latency_stats GROUP BY bucket`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query latency counts: %w", err)
	}
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			_ = rows.Close()
			return Snapshot{}, fmt.Errorf("scan latency counts: %w", err)
		}
		snap.LatencyDistribution[LatencyBucket(bucket)] = count
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	if topN <= 0 {
		topN = 10
	}
	rows, err = s.db.QueryContext(ctx, `SELECT term, count FROM query_terms ORDER BY count DESC, term LIMIT ?`, topN)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query top terms: %w", err)
	}
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			_ = rows.Close()
			return Snapshot{}, fmt.Errorf("scan top terms: %w", err)
		}
		snap.TopTerms = append(snap.TopTerms, tc)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT query FROM zero_result_queries ORDER BY id DESC LIMIT ?`, zeroQueriesShown)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query zero-result queries: %w", err)
	}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			_ = rows.Close()
			return Snapshot{}, fmt.Errorf("scan zero-result queries: %w", err)
		}
		snap.ZeroResultQueries = append(snap.ZeroResultQueries, q)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	// Oldest first, like the in-memory ring.
	for i, j := 0, len(snap.ZeroResultQueries)-1; i < j; i, j = i+1, j-1 {
		snap.ZeroResultQueries[i], snap.ZeroResultQueries[j] = snap.ZeroResultQueries[j], snap.ZeroResultQueries[i]
	}
	return snap, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
