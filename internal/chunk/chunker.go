package chunk

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

// ErrInvalidChunkConfig is returned for window geometry that cannot make progress.
var ErrInvalidChunkConfig = ragerrors.New(ragerrors.ErrCodeInvalidInput, "invalid chunk configuration", nil)

// Chunker splits text into fixed-size windows that prefer to end on a
// sentence or line boundary near the end of the window.
type Chunker struct {
	size    int
	overlap int
	newID   func() string
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the window length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) { c.size = size }
}

// WithOverlap sets how many characters consecutive windows share.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

// WithIDFunc replaces the UUID generator.
func WithIDFunc(fn func() string) Option {
	return func(c *Chunker) { c.newID = fn }
}

// New returns a Chunker. An overlap that is not strictly smaller than the
// size would stop the window from advancing and is rejected.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, ragerrors.New(ragerrors.ErrCodeInvalidInput, "invalid chunk configuration", ErrInvalidChunkConfig).
			WithDetail("chunk_size", strconv.Itoa(c.size)).
			WithDetail("chunk_overlap", strconv.Itoa(c.overlap)).
			WithSuggestion("chunk_overlap must be at least 0 and smaller than chunk_size")
	}
	return c, nil
}

// Size returns the window length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the shared length between consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into chunks labelled with source. Offsets are rune
// positions. Windows that trim to nothing are dropped, so ChunkIndex
// counts emitted chunks only.
func (c *Chunker) Chunk(text, source string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	var chunks []Chunk

	start := 0
	for start < n {
		end := start + c.size
		if end < n {
			end = c.boundary(runes[start:end], start, end)
		}

		stop := end
		if stop > n {
			stop = n
		}

		content := strings.TrimSpace(string(runes[start:stop]))
		if content != "" {
			chunks = append(chunks, Chunk{
				ID:      c.newID(),
				Content: content,
				Metadata: Metadata{
					Source:     source,
					ChunkIndex: len(chunks),
					StartPos:   start,
					EndPos:     stop,
				},
			})
		}

		if end >= n {
			break
		}

		// A boundary cut shorter than the overlap would step backwards, so
		// that window is followed without overlap instead.
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// boundary moves end back to just after the last '.' or, failing that,
// the last '\n' when either falls in the final fifth of window.
func (c *Chunker) boundary(window []rune, start, end int) int {
	threshold := float64(len(window)) * boundaryFraction
	if i := lastIndex(window, '.'); i >= 0 && float64(i) > threshold {
		return start + i + 1
	}
	if i := lastIndex(window, '\n'); i >= 0 && float64(i) > threshold {
		return start + i + 1
	}
	return end
}

func lastIndex(r []rune, target rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == target {
			return i
		}
	}
	return -1
}
