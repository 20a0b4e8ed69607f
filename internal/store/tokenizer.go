package store

import (
	"strings"
	"unicode"
)

// KeywordStopWords are dropped from keyword queries. Punctuation entries
// only match when they stand alone between spaces.
var KeywordStopWords = []string{
	"what", "is", "how", "are", "the", "a", "an", "and", "or", "but",
	"in", "on", "at", "to", "for", "of", "with", "by",
	"?", "!", ".", ",",
}

// DefaultProseStopWords are filtered out of BM25 documents and queries.
var DefaultProseStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"has", "have", "how", "in", "is", "it", "its", "of", "on", "or", "that",
	"the", "this", "to", "was", "were", "what", "when", "where", "which",
	"who", "why", "will", "with",
}

var keywordStopWordMap = BuildStopWordMap(KeywordStopWords)

// QueryTerms lower-cases query, splits it on whitespace and drops stop
// words and single-character tokens. Repeated terms are kept once, in
// first-seen order.
func QueryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := keywordStopWordMap[f]; stop {
			continue
		}
		if len([]rune(f)) <= 1 {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// TokenizeProse splits text on anything that is not a letter or digit and
// lower-cases the pieces. Tokens shorter than two characters are dropped.
func TokenizeProse(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		tokens = append(tokens, strings.ToLower(w))
	}
	return tokens
}

// FilterStopWords removes tokens present in stopWords.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[token]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap lower-cases stopWords into a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
