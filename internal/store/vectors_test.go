package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Flat search is exact and ordered by squared L2
func TestFlatIndex_Search_ExactOrder(t *testing.T) {
	// Given: three 2-d vectors
	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([][]float32{{0, 0}, {3, 4}, {1, 0}}))

	// When: searching with k larger than the index
	got, err := idx.Search([]float32{0, 0}, 5)

	// Then: every vector comes back once, nearest first, no padding
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{{Position: 0, Distance: 0}, {Position: 2, Distance: 1}, {Position: 1, Distance: 25}}, got)

	got, err = idx.Search([]float32{3, 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{{Position: 1, Distance: 1}}, got)
}

func TestFlatIndex_DimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([][]float32{{1, 1}}))

	err := idx.Add([][]float32{{1, 2}, {1, 2, 3}})

	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Got)
	assert.Equal(t, 1, idx.Len())

	_, err = idx.Search([]float32{1}, 1)
	assert.Error(t, err)
}

func TestFlatIndex_ResetAndEmpty(t *testing.T) {
	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([][]float32{{1, 1}, {2, 2}}))

	require.NoError(t, idx.Reset([][]float32{{5, 5}}))
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Reset(nil))
	got, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFlatIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector_index.flat")
	idx := NewFlatIndex(3)
	require.NoError(t, idx.Add([][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, idx.Save(path))

	loaded := NewFlatIndex(3)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Len())
	got, err := loaded.Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Position)

	wrong := NewFlatIndex(4)
	assert.Error(t, wrong.Load(path))
	assert.Equal(t, 0, wrong.Len())
}

// TS02: HNSW returns positions with squared-L2 distances
func TestHNSWIndex_Search(t *testing.T) {
	idx := NewHNSWIndex(2)
	require.NoError(t, idx.Add([][]float32{{0, 0}, {10, 10}}))
	require.NoError(t, idx.Add([][]float32{{1, 0}}))
	assert.Equal(t, 3, idx.Len())

	got, err := idx.Search([]float32{1, 0}, 1)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Position)
	assert.InDelta(t, 0.0, got[0].Distance, 1e-6)

	got, err = idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

func TestHNSWIndex_ResetAndSaveLoad(t *testing.T) {
	idx := NewHNSWIndex(2)
	require.NoError(t, idx.Add([][]float32{{0, 0}, {5, 5}}))
	require.NoError(t, idx.Reset([][]float32{{2, 2}, {7, 1}, {3, 9}}))
	assert.Equal(t, 3, idx.Len())

	path := filepath.Join(t.TempDir(), "vector_index.hnsw")
	require.NoError(t, idx.Save(path))

	loaded := NewHNSWIndex(2)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 3, loaded.Len())
	got, err := loaded.Search([]float32{7, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Position)
}

func TestNewSimilarityIndex(t *testing.T) {
	flat, err := NewSimilarityIndex("", 4)
	require.NoError(t, err)
	assert.IsType(t, &FlatIndex{}, flat)

	hnsw, err := NewSimilarityIndex("HNSW", 4)
	require.NoError(t, err)
	assert.IsType(t, &HNSWIndex{}, hnsw)

	_, err = NewSimilarityIndex("faiss", 4)
	assert.Error(t, err)
	_, err = NewSimilarityIndex("flat", 0)
	assert.Error(t, err)
}
