package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	ProseTokenizerName  = "ragchat_prose_tokenizer"
	ProseStopFilterName = "ragchat_prose_stop"
	ProseAnalyzerName   = "ragchat_prose"
)

func init() {
	_ = registry.RegisterTokenizer(ProseTokenizerName, proseTokenizerConstructor)
	_ = registry.RegisterTokenFilter(ProseStopFilterName, proseStopFilterConstructor)
}

// BleveBM25Index is a BM25Index on a bleve v2 index.
type BleveBM25Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

type bleveDocument struct {
	Content string `json:"content"`
}

// validateBleveIndex checks that an existing index directory has readable
// metadata. A missing directory is valid.
func validateBleveIndex(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if err != nil {
		return fmt.Errorf("index_meta.json unreadable: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// NewBleveBM25Index opens or creates the index at path. An empty path
// creates an in-memory index. A corrupted index directory is removed and
// recreated empty; the owning store reindexes from its chunk snapshot.
// Stop words come from the registered analyzer, not from the config.
func NewBleveBM25Index(path string, _ BM25Config) (*BleveBM25Index, error) {
	indexMapping, err := proseIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if validErr := validateBleveIndex(path); validErr != nil {
			slog.Warn("bm25_index_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if err := os.RemoveAll(path); err != nil {
				return nil, fmt.Errorf("BM25 index corrupted at %s and cannot remove: %w", path, err)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}
	return &BleveBM25Index{index: idx, path: path}, nil
}

func proseIndexMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(ProseAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": ProseTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			ProseStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add prose analyzer: %w", err)
	}
	m.DefaultAnalyzer = ProseAnalyzerName
	return m, nil
}

func (b *BleveBM25Index) Index(ctx context.Context, docs []BM25Document) error {
	if len(docs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, bleveDocument{Content: doc.Content}); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search runs a match query over content. Terms are OR-ed.
func (b *BleveBM25Index) Search(ctx context.Context, queryStr string, limit int) ([]BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(queryStr) == "" || limit <= 0 {
		return []BM25Result{}, nil
	}

	q := bleve.NewMatchQuery(queryStr)
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	out := make([]BM25Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, BM25Result{DocID: hit.ID, Score: hit.Score})
	}
	return out, nil
}

func (b *BleveBM25Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (b *BleveBM25Index) AllIDs() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for all IDs: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

func (b *BleveBM25Index) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	n, _ := b.index.DocCount()
	return int(n)
}

func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

var _ BM25Index = (*BleveBM25Index)(nil)

func proseTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return proseTokenizer{}, nil
}

type proseTokenizer struct{}

func (proseTokenizer) Tokenize(input []byte) analysis.TokenStream {
	spans := proseSpans(string(input))
	stream := make(analysis.TokenStream, 0, len(spans))
	for i, s := range spans {
		stream = append(stream, &analysis.Token{
			Term:     []byte(s.term),
			Start:    s.start,
			End:      s.end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}

func proseStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return proseStopFilter{stopWords: BuildStopWordMap(DefaultProseStopWords)}, nil
}

type proseStopFilter struct {
	stopWords map[string]struct{}
}

func (f proseStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, stop := f.stopWords[string(tok.Term)]; !stop {
			out = append(out, tok)
		}
	}
	return out
}
