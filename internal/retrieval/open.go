package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/briany/genai-rag-chatbot/internal/answer"
	"github.com/briany/genai-rag-chatbot/internal/chunk"
	"github.com/briany/genai-rag-chatbot/internal/config"
	"github.com/briany/genai-rag-chatbot/internal/embed"
	"github.com/briany/genai-rag-chatbot/internal/llm"
	"github.com/briany/genai-rag-chatbot/internal/store"
	"github.com/briany/genai-rag-chatbot/internal/telemetry"
)

// Open builds the Service described by cfg. It takes the data directory
// lock for the life of the service; the returned cleanup closes the store
// and providers and releases the lock.
func Open(ctx context.Context, cfg *config.Config) (*Service, func(), error) {
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	lock := store.NewDataLock(cfg.Data.Dir)
	if err := lock.TryLock(); err != nil {
		return nil, nil, err
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("cleanup_failed", slog.String("error", err.Error()))
			}
		}
		_ = lock.Unlock()
	}

	chunker, err := chunk.New(chunk.WithChunkSize(cfg.Chunking.Size), chunk.WithOverlap(cfg.Chunking.Overlap))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	st, err := openStore(ctx, cfg, &closers)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, st.Close)

	provider, err := llm.New(ctx, llm.Config{
		Provider:          cfg.LLM.Provider,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if c, ok := provider.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	var synth *answer.Synthesizer
	if provider != nil {
		synth = answer.NewSynthesizer(provider,
			answer.WithTemperature(cfg.LLM.Temperature),
			answer.WithMaxTokens(cfg.LLM.MaxTokens))
	}

	opts := []Option{WithIngestWorkers(cfg.Retrieval.IngestWorkers)}
	if cfg.Telemetry.Enabled {
		rec, err := openTelemetry(ctx, cfg, &closers)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, WithTelemetry(rec))
	}

	svc := NewService(st, chunker, synth, opts...)
	slog.Info("retrieval_opened",
		slog.String("mode", cfg.Retrieval.Mode),
		slog.String("data_dir", cfg.Data.Dir),
		slog.Bool("mock_answers", svc.MockMode()))
	return svc, cleanup, nil
}

// openStore builds the DocumentStore for cfg.Retrieval.Mode. The embedder,
// when one is needed, is registered in closers.
func openStore(ctx context.Context, cfg *config.Config, closers *[]func() error) (store.DocumentStore, error) {
	switch strings.ToLower(cfg.Retrieval.Mode) {
	case config.ModeKeyword, "":
		return store.NewKeywordIndex(cfg.Data.Dir, store.WithPersistChunks(cfg.Keyword.PersistChunks)), nil

	case config.ModeEmbedding:
		embedder, err := embed.NewEmbedder(ctx, embed.Config{
			Provider:   embed.ParseProvider(cfg.Embeddings.Provider),
			Model:      cfg.Embeddings.Model,
			Host:       cfg.Embeddings.Host,
			APIKey:     cfg.Embeddings.APIKey,
			Dimensions: cfg.Embeddings.Dimensions,
			BatchSize:  cfg.Embeddings.BatchSize,
			Timeout:    cfg.Embeddings.Timeout,
			CacheSize:  cfg.Embeddings.CacheSize,
		})
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, embedder.Close)
		idx, err := store.NewEmbeddingIndex(ctx, cfg.Data.Dir, embedder,
			store.WithIndexBackend(cfg.Embeddings.IndexBackend))
		if err != nil {
			return nil, err
		}
		return idx, nil

	case config.ModeBM25:
		lex, err := store.NewLexicalStore(ctx, cfg.Data.Dir, cfg.Retrieval.BM25Backend)
		if err != nil {
			return nil, err
		}
		return lex, nil

	default:
		return nil, fmt.Errorf("unknown retrieval mode %q", cfg.Retrieval.Mode)
	}
}

// openTelemetry opens the statistics database in the data directory. The
// recorder is closed before its store so the last batch is written.
func openTelemetry(ctx context.Context, cfg *config.Config, closers *[]func() error) (*telemetry.Recorder, error) {
	ts, err := telemetry.OpenSQLiteStore(ctx, filepath.Join(cfg.Data.Dir, telemetry.FileName))
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, ts.Close)

	tcfg := telemetry.DefaultConfig()
	tcfg.Mode = strings.ToLower(cfg.Retrieval.Mode)
	if tcfg.Mode == "" {
		tcfg.Mode = config.ModeKeyword
	}
	tcfg.FlushInterval = cfg.Telemetry.FlushInterval
	rec := telemetry.NewRecorder(ts, tcfg)
	*closers = append(*closers, rec.Close)
	return rec, nil
}
