// Package telemetry records local retrieval statistics: query counts per
// retrieval mode, a latency histogram, frequent query terms and the recent
// queries that found nothing. Nothing leaves the machine.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// Buckets lists the histogram buckets in ascending order.
var Buckets = []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000}

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one search as seen by the retrieval service.
type QueryEvent struct {
	Query       string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the search returned nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot summarizes recorded searches.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	RepeatCount         int64                   `json:"repeat_count"`
	ModeCounts          map[string]int64        `json:"mode_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of searches that found nothing.
func (s Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// ExtractTerms lowercases query, strips surrounding punctuation and keeps
// words of at least three characters.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// hashQuery normalizes a query for repeat detection.
func hashQuery(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

func sortTerms(terms []TermCount) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
}

// Ring is a fixed-capacity FIFO that evicts its oldest item when full.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewRing creates a ring holding at most capacity items (100 when
// capacity is not positive).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Ring[T]{items: make([]T, capacity), capacity: capacity}
}

// Add appends item, evicting the oldest when full.
func (r *Ring[T]) Add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Items returns the contents oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	if r.size < r.capacity {
		copy(out, r.items[:r.size])
		return out
	}
	n := copy(out, r.items[r.head:])
	copy(out[n:], r.items[:r.head])
	return out
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}
