package store

import (
	"context"
	"unicode"
	"unicode/utf8"
)

// BM25Document is one unit of text in a BM25 index.
type BM25Document struct {
	ID      string
	Content string
}

// BM25Result is a BM25 hit. Higher scores are better.
type BM25Result struct {
	DocID string
	Score float64
}

// BM25Index ranks documents by BM25 relevance.
type BM25Index interface {
	// Index adds or replaces documents.
	Index(ctx context.Context, docs []BM25Document) error

	// Search returns up to limit documents, best first.
	Search(ctx context.Context, query string, limit int) ([]BM25Result, error)

	Delete(ctx context.Context, ids []string) error

	// AllIDs returns every indexed id, for consistency checks.
	AllIDs() ([]string, error)

	Count() int
	Close() error
}

// BM25Config configures tokenization shared by all BM25 backends.
type BM25Config struct {
	StopWords []string
}

// DefaultBM25Config filters common English function words.
func DefaultBM25Config() BM25Config {
	return BM25Config{StopWords: DefaultProseStopWords}
}

// proseSpan is a token with its byte offsets in the source text.
type proseSpan struct {
	term       string
	start, end int
}

// proseSpans splits text into letter/digit runs of at least two runes.
// Terms keep their original case.
func proseSpans(text string) []proseSpan {
	var spans []proseSpan
	start := -1
	runes := 0
	flush := func(end int) {
		if start >= 0 && runes >= 2 {
			spans = append(spans, proseSpan{term: text[start:end], start: start, end: end})
		}
		start, runes = -1, 0
	}
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			runes++
		} else {
			flush(i)
		}
		i += size
	}
	flush(len(text))
	return spans
}
