package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteBM25Index is a BM25Index on an SQLite FTS5 table. Content is
// tokenized and stop-word filtered before it reaches FTS5 so queries and
// documents see the same terms.
type SQLiteBM25Index struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	closed    bool
	stopWords map[string]struct{}
}

// validateSQLiteIndex checks an existing database before it is opened
// read-write. A missing file is valid.
func validateSQLiteIndex(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteBM25Index opens or creates the database at path. An empty path
// creates an in-memory database.
func NewSQLiteBM25Index(path string, cfg BM25Config) (*SQLiteBM25Index, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if validErr := validateSQLiteIndex(path); validErr != nil {
			slog.Warn("sqlite_bm25_index_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("BM25 index corrupted at %s and cannot remove: %w", path, err)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database lives only as long as it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &SQLiteBM25Index{db: db, path: path, stopWords: BuildStopWordMap(cfg.StopWords)}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return idx, nil
}

func (s *SQLiteBM25Index) initSchema() error {
	_, err := s.db.Exec(`
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_content USING fts5(
		doc_id UNINDEXED,
		content,
		tokenize='unicode61'
	);
	CREATE TABLE IF NOT EXISTS doc_ids (
		doc_id TEXT PRIMARY KEY
	);`)
	return err
}

func (s *SQLiteBM25Index) terms(text string) []string {
	return FilterStopWords(TokenizeProse(text), s.stopWords)
}

func (s *SQLiteBM25Index) Index(ctx context.Context, docs []BM25Document) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FTS5 has no REPLACE, so existing rows are deleted first.
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fts_content WHERE doc_id = ?`, doc.ID); err != nil {
			return fmt.Errorf("failed to delete existing document %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO fts_content(doc_id, content) VALUES (?, ?)`,
			doc.ID, strings.Join(s.terms(doc.Content), " ")); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO doc_ids(doc_id) VALUES (?)`, doc.ID); err != nil {
			return fmt.Errorf("failed to track document ID %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

// Search OR-s the query terms. FTS5's bm25() is negative with lower being
// better, so scores are negated.
func (s *SQLiteBM25Index) Search(ctx context.Context, queryStr string, limit int) ([]BM25Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if limit <= 0 {
		return []BM25Result{}, nil
	}

	tokens := s.terms(queryStr)
	if len(tokens) == 0 {
		return []BM25Result{}, nil
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, bm25(fts_content) AS score
		FROM fts_content
		WHERE fts_content MATCH ?
		ORDER BY score
		LIMIT ?`, strings.Join(quoted, " OR "), limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []BM25Result{}
	for rows.Next() {
		var r BM25Result
		if err := rows.Scan(&r.DocID, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Score = -r.Score
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteBM25Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("index is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	in := strings.Join(placeholders, ",")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM fts_content WHERE doc_id IN (%s)", in), args...); err != nil {
		return fmt.Errorf("failed to delete from FTS: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM doc_ids WHERE doc_id IN (%s)", in), args...); err != nil {
		return fmt.Errorf("failed to delete from doc_ids: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteBM25Index) AllIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	rows, err := s.db.Query(`SELECT doc_id FROM doc_ids ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query IDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteBM25Index) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM doc_ids`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close checkpoints the WAL and closes the database. It is idempotent.
func (s *SQLiteBM25Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

var _ BM25Index = (*SQLiteBM25Index)(nil)
