package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/coder/hnsw"
)

// HNSWIndex is an approximate SimilarityIndex on a coder/hnsw graph. Node
// keys are insertion positions. Nodes are never deleted from a graph;
// Reset builds a new one.
type HNSWIndex struct {
	dims  int
	graph *hnsw.Graph[uint64]
}

// NewHNSWIndex returns an empty graph using Euclidean distance.
func NewHNSWIndex(dims int) *HNSWIndex {
	return &HNSWIndex{dims: dims, graph: newGraph()}
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.EuclideanDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return g
}

func (h *HNSWIndex) Add(vectors [][]float32) error {
	if err := checkDimensions(h.dims, vectors); err != nil {
		return err
	}
	next := uint64(h.graph.Len())
	for i, v := range vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		h.graph.Add(hnsw.MakeNode(next+uint64(i), vec))
	}
	return nil
}

// Search scores graph candidates by squared L2 so results share the flat
// backend's scale.
func (h *HNSWIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != h.dims {
		return nil, ErrDimensionMismatch{Expected: h.dims, Got: len(query)}
	}
	if k <= 0 || h.graph.Len() == 0 {
		return []Neighbor{}, nil
	}

	nodes := h.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, Neighbor{Position: int(node.Key), Distance: squaredL2(query, node.Value)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func (h *HNSWIndex) Reset(vectors [][]float32) error {
	if err := checkDimensions(h.dims, vectors); err != nil {
		return err
	}
	h.graph = newGraph()
	return h.Add(vectors)
}

func (h *HNSWIndex) Len() int { return h.graph.Len() }

func (h *HNSWIndex) Dimensions() int { return h.dims }

// Save exports the graph through a temp file.
func (h *HNSWIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	if err := h.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename index file: %w", err)
	}
	return nil
}

func (h *HNSWIndex) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	g := newGraph()
	// Import needs an io.ByteReader.
	if err := g.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}
	h.graph = g
	return nil
}

var _ SimilarityIndex = (*HNSWIndex)(nil)
