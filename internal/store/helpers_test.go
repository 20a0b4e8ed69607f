package store

import (
	"context"
	"errors"
	"sync"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
	"github.com/briany/genai-rag-chatbot/internal/embed"
)

const testDims = 32

// fakeEmbedder wraps the static embedder with call counting and failure
// switches.
type fakeEmbedder struct {
	inner *embed.StaticEmbedder

	mu        sync.Mutex
	calls     int
	fail      bool
	wrongDims bool
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{inner: embed.NewStaticEmbedder(testDims)}
}

func (f *fakeEmbedder) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmbedder) before() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errors.New("provider unavailable")
	}
	return nil
}

func (f *fakeEmbedder) shape(v []float32) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wrongDims {
		return v[:len(v)-1]
	}
	return v
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := f.before(); err != nil {
		return nil, err
	}
	v, err := f.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return f.shape(v), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := f.before(); err != nil {
		return nil, err
	}
	vecs, err := f.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range vecs {
		vecs[i] = f.shape(vecs[i])
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dimensions() int                  { return testDims }
func (f *fakeEmbedder) ModelName() string                { return "fake" }
func (f *fakeEmbedder) Available(_ context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                     { return nil }

func makeChunks(source string, contents ...string) []chunk.Chunk {
	out := make([]chunk.Chunk, len(contents))
	for i, c := range contents {
		out[i] = chunk.Chunk{
			ID:      source + "-" + string(rune('a'+i)),
			Content: c,
			Metadata: chunk.Metadata{
				Source:     source,
				ChunkIndex: i,
				StartPos:   i * 10,
				EndPos:     i*10 + len(c),
			},
		}
	}
	return out
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}

func contents(hits []ScoredChunk) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk.Content
	}
	return out
}
