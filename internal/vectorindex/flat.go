package vectorindex

import (
	"fmt"
	"sort"
)

// FlatIndex is an exhaustive inner-product index. Rows are numbered in
// insertion order. Search is safe for concurrent use once building is done.
type FlatIndex struct {
	dim  int
	data []float32
}

func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	return &FlatIndex{dim: dim}, nil
}

func (f *FlatIndex) Dim() int {
	return f.dim
}

func (f *FlatIndex) Len() int {
	return len(f.data) / f.dim
}

// Add appends vectors as new rows
func (f *FlatIndex) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d values, index has %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Row returns the stored vector for row i
func (f *FlatIndex) Row(i int) []float32 {
	return f.data[i*f.dim : (i+1)*f.dim]
}

// Search returns the k best rows by inner product, best first. When k is
// larger than the index the tail is padded with row -1.
func (f *FlatIndex) Search(query []float32, k int) ([]float32, []int64, error) {
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return []float32{}, []int64{}, nil
	}

	type scored struct {
		row   int64
		score float32
	}

	n := f.Len()
	candidates := make([]scored, n)
	for i := 0; i < n; i++ {
		candidates[i] = scored{row: int64(i), score: dot(query, f.Row(i))}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	scores := make([]float32, k)
	rows := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < n {
			scores[i] = candidates[i].score
			rows[i] = candidates[i].row
			continue
		}
		rows[i] = -1
	}

	return scores, rows, nil
}
