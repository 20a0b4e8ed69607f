package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FlatIndex is an exact squared-L2 scan over one contiguous arena.
type FlatIndex struct {
	dims  int
	arena []float32
}

type flatSnapshot struct {
	Dims  int
	Arena []float32
}

// NewFlatIndex returns an empty flat index.
func NewFlatIndex(dims int) *FlatIndex {
	return &FlatIndex{dims: dims}
}

func (f *FlatIndex) Add(vectors [][]float32) error {
	if err := checkDimensions(f.dims, vectors); err != nil {
		return err
	}
	for _, v := range vectors {
		f.arena = append(f.arena, v...)
	}
	return nil
}

// Search returns min(k, Len()) neighbors. Equal distances keep position order.
func (f *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dims {
		return nil, ErrDimensionMismatch{Expected: f.dims, Got: len(query)}
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Neighbor{}, nil
	}

	all := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		all[i] = Neighbor{Position: i, Distance: squaredL2(query, f.arena[i*f.dims:(i+1)*f.dims])}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })
	if k < n {
		all = all[:k]
	}
	return all, nil
}

func (f *FlatIndex) Reset(vectors [][]float32) error {
	if err := checkDimensions(f.dims, vectors); err != nil {
		return err
	}
	arena := make([]float32, 0, len(vectors)*f.dims)
	for _, v := range vectors {
		arena = append(arena, v...)
	}
	f.arena = arena
	return nil
}

func (f *FlatIndex) Len() int { return len(f.arena) / f.dims }

func (f *FlatIndex) Dimensions() int { return f.dims }

// Save writes a gob snapshot through a temp file.
func (f *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(flatSnapshot{Dims: f.dims, Arena: f.arena}); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode flat index: %w", err)
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

func (f *FlatIndex) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var snap flatSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("decode flat index: %w", err)
	}
	if snap.Dims != f.dims {
		return ErrDimensionMismatch{Expected: f.dims, Got: snap.Dims}
	}
	if len(snap.Arena)%f.dims != 0 {
		return fmt.Errorf("flat index arena length %d is not a multiple of %d", len(snap.Arena), f.dims)
	}
	f.arena = snap.Arena
	return nil
}

var _ SimilarityIndex = (*FlatIndex)(nil)
