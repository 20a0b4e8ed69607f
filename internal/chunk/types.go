// Package chunk turns extracted document text into overlapping character
// windows that the stores index.
package chunk

// Default window geometry, counted in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	// boundaryFraction is how far into a window a sentence or line break
	// must sit before the window is cut there.
	boundaryFraction = 0.8
)

// Metadata locates a chunk inside its source document.
type Metadata struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	StartPos   int    `json:"start_pos"`
	EndPos     int    `json:"end_pos"`
}

// Chunk is a retrievable unit of text.
type Chunk struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	Content    string   `json:"content"`
	Metadata   Metadata `json:"metadata"`
}

// Preview returns at most n characters of the content followed by "..."
// when truncated.
func (c Chunk) Preview(n int) string {
	r := []rune(c.Content)
	if len(r) <= n {
		return c.Content
	}
	return string(r[:n]) + "..."
}
