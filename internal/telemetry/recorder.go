package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Config configures a Recorder.
type Config struct {
	// Mode labels every recorded search with the retrieval mode.
	Mode string

	TopTermsCapacity    int
	ZeroResultsCapacity int
	RecentQueries       int

	// FlushInterval is how often pending counts are written to the store.
	// Zero disables the background flush; Close still flushes.
	FlushInterval time.Duration
}

// DefaultConfig returns the recorder defaults.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
		RecentQueries:       500,
		FlushInterval:       30 * time.Second,
	}
}

// Store persists flushed batches and summarizes everything it holds.
type Store interface {
	Save(ctx context.Context, date string, batch Batch) error
	Summary(ctx context.Context, topN int) (Snapshot, error)
	Close() error
}

// Batch is what a Recorder accumulated since its last flush.
type Batch struct {
	Mode        string
	Queries     int64
	ZeroResults int64
	Latencies   map[LatencyBucket]int64
	Terms       map[string]int64
	ZeroQueries []ZeroQuery
}

// ZeroQuery is a search that returned nothing.
type ZeroQuery struct {
	Query     string
	Timestamp time.Time
}

func newBatch(mode string) Batch {
	return Batch{Mode: mode, Latencies: make(map[LatencyBucket]int64), Terms: make(map[string]int64)}
}

func (b Batch) empty() bool { return b.Queries == 0 }

// Recorder aggregates search events in memory and flushes them to an
// optional Store. It is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	cfg   Config
	store Store

	total       int64
	zeroCount   int64
	repeatCount int64
	latencies   map[LatencyBucket]int64
	topTerms    *lru.Cache[string, int64]
	zeroResults *Ring[string]
	recent      *lru.Cache[string, struct{}]
	since       time.Time

	pending Batch

	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// NewRecorder creates a recorder. A nil store keeps statistics in memory.
func NewRecorder(store Store, cfg Config) *Recorder {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueries <= 0 {
		cfg.RecentQueries = def.RecentQueries
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueries)

	r := &Recorder{
		cfg:         cfg,
		store:       store,
		latencies:   make(map[LatencyBucket]int64),
		topTerms:    topTerms,
		zeroResults: NewRing[string](cfg.ZeroResultsCapacity),
		recent:      recent,
		since:       time.Now(),
		pending:     newBatch(cfg.Mode),
		stopCh:      make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		r.ticker = time.NewTicker(cfg.FlushInterval)
		go r.flushLoop()
	}
	return r
}

func (r *Recorder) flushLoop() {
	for {
		select {
		case <-r.ticker.C:
			if err := r.Flush(context.Background()); err != nil {
				slog.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
			}
		case <-r.stopCh:
			return
		}
	}
}

// Record adds one search. Calls after Close are ignored.
func (r *Recorder) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	terms := ExtractTerms(event.Query)
	bucket := LatencyToBucket(event.Latency)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.total++
	r.pending.Queries++
	r.latencies[bucket]++
	r.pending.Latencies[bucket]++

	for _, term := range terms {
		count, _ := r.topTerms.Get(term)
		r.topTerms.Add(term, count+1)
		r.pending.Terms[term]++
	}

	if event.IsZeroResult() {
		r.zeroCount++
		r.pending.ZeroResults++
		r.zeroResults.Add(event.Query)
		r.pending.ZeroQueries = append(r.pending.ZeroQueries, ZeroQuery{Query: event.Query, Timestamp: event.Timestamp})
	}

	key := hashQuery(event.Query)
	if _, seen := r.recent.Get(key); seen {
		r.repeatCount++
	}
	r.recent.Add(key, struct{}{})
}

// Snapshot returns the statistics recorded by this process.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	latencies := make(map[LatencyBucket]int64, len(r.latencies))
	for k, v := range r.latencies {
		latencies[k] = v
	}

	terms := make([]TermCount, 0, r.topTerms.Len())
	for _, key := range r.topTerms.Keys() {
		if count, ok := r.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sortTerms(terms)

	modes := map[string]int64{}
	if r.total > 0 {
		modes[r.cfg.Mode] = r.total
	}

	return Snapshot{
		TotalQueries:        r.total,
		ZeroResultCount:     r.zeroCount,
		RepeatCount:         r.repeatCount,
		ModeCounts:          modes,
		LatencyDistribution: latencies,
		TopTerms:            terms,
		ZeroResultQueries:   r.zeroResults.Items(),
		Since:               r.since,
	}
}

// Flush writes the counts accumulated since the last flush. On failure
// the batch is dropped and the error returned.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.mu.Lock()
	batch := r.pending
	r.pending = newBatch(r.cfg.Mode)
	r.mu.Unlock()

	if batch.empty() {
		return nil
	}
	return r.store.Save(ctx, time.Now().Format("2006-01-02"), batch)
}

// Report flushes and returns the store's all-time summary, or the
// in-memory snapshot when there is no store.
func (r *Recorder) Report(ctx context.Context, topN int) (Snapshot, error) {
	if r.store == nil {
		snap := r.Snapshot()
		if topN > 0 && len(snap.TopTerms) > topN {
			snap.TopTerms = snap.TopTerms[:topN]
		}
		return snap, nil
	}
	if err := r.Flush(ctx); err != nil {
		return Snapshot{}, err
	}
	return r.store.Summary(ctx, topN)
}

// Close stops the background flush and writes what is pending.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.ticker != nil {
		r.ticker.Stop()
		close(r.stopCh)
	}
	return r.Flush(context.Background())
}
