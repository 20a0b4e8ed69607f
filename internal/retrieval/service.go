// Package retrieval wires extraction, chunking, the configured document
// store and answer synthesis into the operations the CLI, HTTP API and MCP
// server expose.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/briany/genai-rag-chatbot/internal/answer"
	"github.com/briany/genai-rag-chatbot/internal/chunk"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
	"github.com/briany/genai-rag-chatbot/internal/store"
	"github.com/briany/genai-rag-chatbot/internal/telemetry"
)

const (
	DefaultK = 5
	MaxK     = 50

	// UnknownDocument names results whose chunks carry no source.
	UnknownDocument = "Unknown"

	defaultIngestWorkers = 4
)

// Result is one retrieved chunk with its display name. For stores without
// a native score Score is 1.0.
type Result struct {
	Chunk        chunk.Chunk `json:"chunk"`
	DocumentID   string      `json:"document_id"`
	DocumentName string      `json:"document_name"`
	Score        float64     `json:"score"`
}

// IngestResult reports one registered document.
type IngestResult struct {
	Filename    string `json:"filename"`
	DocumentID  string `json:"document_id"`
	ChunksCount int    `json:"chunks_count"`
}

// Service is the retrieval orchestrator. It holds no chunk state of its
// own; the store serializes mutations.
type Service struct {
	store         store.DocumentStore
	chunker       *chunk.Chunker
	synth         *answer.Synthesizer
	metrics       *telemetry.Recorder
	ingestWorkers int
}

// Option configures a Service.
type Option func(*Service)

// WithIngestWorkers bounds how many files IngestFiles processes at once.
func WithIngestWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.ingestWorkers = n
		}
	}
}

// WithTelemetry records every search in rec.
func WithTelemetry(rec *telemetry.Recorder) Option {
	return func(s *Service) {
		s.metrics = rec
	}
}

// NewService returns a Service over st. A nil synth answers in mock mode.
func NewService(st store.DocumentStore, chunker *chunk.Chunker, synth *answer.Synthesizer, opts ...Option) *Service {
	if synth == nil {
		synth = answer.NewSynthesizer(nil)
	}
	s := &Service{store: st, chunker: chunker, synth: synth, ingestWorkers: defaultIngestWorkers}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeK maps non-positive values to DefaultK and caps at MaxK.
func NormalizeK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

// Search queries the store and decorates each hit with its document name.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Result, error) {
	k = NormalizeK(k)

	start := time.Now()
	hits, err := s.store.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		score := 1.0
		if h.HasScore {
			score = h.Score
		}
		name := h.Chunk.Metadata.Source
		if name == "" {
			name = UnknownDocument
		}
		results = append(results, Result{
			Chunk:        h.Chunk,
			DocumentID:   h.Chunk.DocumentID,
			DocumentName: name,
			Score:        score,
		})
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.Record(telemetry.QueryEvent{Query: query, ResultCount: len(results), Latency: elapsed, Timestamp: start})
	}

	slog.Debug("search_completed",
		slog.String("query", query),
		slog.Int("k", k),
		slog.Int("results", len(results)),
		slog.Duration("duration", elapsed))
	return results, nil
}

// Stats reports the recorded search statistics with at most topTerms
// terms. It fails when telemetry is disabled.
func (s *Service) Stats(ctx context.Context, topTerms int) (telemetry.Snapshot, error) {
	if s.metrics == nil {
		return telemetry.Snapshot{}, ragerrors.New(ragerrors.ErrCodeConfigInvalid, "telemetry is disabled", nil).
			WithSuggestion("set telemetry.enabled: true or RAGCHAT_TELEMETRY=true")
	}
	return s.metrics.Report(ctx, topTerms)
}

// Sources converts results to the passages shown with an answer.
func Sources(results []Result) []answer.Source {
	out := make([]answer.Source, len(results))
	for i, r := range results {
		out[i] = answer.Source{DocumentName: r.DocumentName, ChunkText: r.Chunk.Content, Score: r.Score}
	}
	return out
}

// Ask retrieves DefaultK passages for question and synthesizes an answer.
// Only retrieval errors are returned; provider failures are in the answer.
func (s *Service) Ask(ctx context.Context, question string) (answer.Answer, error) {
	results, err := s.Search(ctx, question, DefaultK)
	if err != nil {
		return answer.Answer{}, err
	}
	return s.synth.Answer(ctx, question, Sources(results)), nil
}

// Ingest extracts, chunks and registers the file at path under its base name.
func (s *Service) Ingest(ctx context.Context, path string) (IngestResult, error) {
	return s.ingest(ctx, path, filepath.Base(path))
}

func (s *Service) ingest(ctx context.Context, path, filename string) (IngestResult, error) {
	start := time.Now()
	text, err := chunk.Extract(path)
	if err != nil {
		return IngestResult{}, err
	}

	chunks := s.chunker.Chunk(text, filename)
	if len(chunks) == 0 {
		return IngestResult{}, ragerrors.ValidationError(fmt.Sprintf("%s has no extractable text", filename), nil)
	}

	docID, err := s.store.Add(ctx, filename, chunks)
	if err != nil {
		return IngestResult{}, err
	}

	slog.Info("document_ingested",
		slog.String("filename", filename),
		slog.String("document_id", docID),
		slog.Int("chunks", len(chunks)),
		slog.Duration("duration", time.Since(start)))
	return IngestResult{Filename: filename, DocumentID: docID, ChunksCount: len(chunks)}, nil
}

// IngestReader stores r in a temporary file, ingests it as filename and
// removes the file. Unsupported extensions are rejected before anything
// is written.
func (s *Service) IngestReader(ctx context.Context, filename string, r io.Reader) (IngestResult, error) {
	filename = filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !chunk.IsSupported(filename) {
		return IngestResult{}, ragerrors.New(ragerrors.ErrCodeUnsupportedFile,
			fmt.Sprintf("Unsupported file type: %s", ext), chunk.ErrUnsupportedFileType)
	}

	tmp, err := os.CreateTemp("", "ragchat-upload-*"+ext)
	if err != nil {
		return IngestResult{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return IngestResult{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return IngestResult{}, fmt.Errorf("close temp file: %w", err)
	}
	return s.ingest(ctx, tmp.Name(), filename)
}

// IngestFiles ingests paths concurrently. Results keep the input order.
// The first failure cancels the remaining files and is returned.
func (s *Service) IngestFiles(ctx context.Context, paths []string) ([]IngestResult, error) {
	results := make([]IngestResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.ingestWorkers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Ingest(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// List returns the registered documents.
func (s *Service) List(ctx context.Context) ([]store.DocumentSummary, error) {
	return s.store.List(ctx)
}

// Delete removes a document. It reports false for unknown ids.
func (s *Service) Delete(ctx context.Context, documentID string) (bool, error) {
	ok, err := s.store.Delete(ctx, documentID)
	if err != nil {
		return false, err
	}
	if ok {
		slog.Info("document_deleted", slog.String("document_id", documentID))
	}
	return ok, nil
}

// Chunks lists every stored chunk.
func (s *Service) Chunks(ctx context.Context) ([]chunk.Chunk, error) {
	return s.store.Chunks(ctx)
}

// MockMode reports whether answers are produced without a model.
func (s *Service) MockMode() bool { return s.synth.MockMode() }

// Close closes the underlying store.
func (s *Service) Close() error { return s.store.Close() }
