package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// BM25 backends.
const (
	BM25BackendSQLite = "sqlite"
	BM25BackendBleve  = "bleve"
)

// NewBM25IndexWithBackend opens the named backend at basePath plus the
// backend's extension (.db or .bleve). An empty basePath stays in memory.
func NewBM25IndexWithBackend(basePath string, cfg BM25Config, backend string) (BM25Index, error) {
	switch strings.ToLower(backend) {
	case BM25BackendSQLite, "":
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLiteBM25Index(path, cfg)
	case BM25BackendBleve:
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveBM25Index(path, cfg)
	default:
		return nil, fmt.Errorf("unknown BM25 backend: %s (valid options: sqlite, bleve)", backend)
	}
}

// BM25IndexPath returns the on-disk location of a backend's index.
func BM25IndexPath(dataDir, backend string) string {
	base := filepath.Join(dataDir, "bm25")
	if strings.ToLower(backend) == BM25BackendBleve {
		return base + ".bleve"
	}
	return base + ".db"
}

// ValidBM25Backends lists the accepted backend names.
func ValidBM25Backends() []string {
	return []string{BM25BackendSQLite, BM25BackendBleve}
}
