package datasets

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Array is a dense row-major float32 buffer with its shape. It is the host
// side representation used while reading files and before building gomlx
// tensors.
type Array struct {
	Data  []float32
	Shape []int
}

// NewArray checks that data holds exactly prod(shape) values.
func NewArray(data []float32, shape ...int) (*Array, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, errors.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, errors.Errorf("shape %v wants %d values, got %d", shape, n, len(data))
	}
	return &Array{Data: data, Shape: append([]int(nil), shape...)}, nil
}

// MatrixArray flattens rows into a [len(rows), width] array. Every row must
// have exactly width values.
func MatrixArray(rows [][]float32, width int) (*Array, error) {
	data := make([]float32, 0, len(rows)*width)
	for i, r := range rows {
		if len(r) != width {
			return nil, errors.Errorf("row %d has %d values, want %d", i, len(r), width)
		}
		data = append(data, r...)
	}
	return &Array{Data: data, Shape: []int{len(rows), width}}, nil
}

// Rank is the number of dimensions.
func (a *Array) Rank() int { return len(a.Shape) }

// Dim returns dimension i, or 0 when the array has fewer dimensions.
func (a *Array) Dim(i int) int {
	if i < 0 || i >= len(a.Shape) {
		return 0
	}
	return a.Shape[i]
}

// Rows splits the buffer along its last dimension. A rank-1 array is a single
// row.
func (a *Array) Rows() [][]float32 {
	if len(a.Shape) == 0 {
		return [][]float32{a.Data}
	}
	width := a.Shape[len(a.Shape)-1]
	if width == 0 {
		return nil
	}
	rows := make([][]float32, 0, len(a.Data)/width)
	for start := 0; start+width <= len(a.Data); start += width {
		rows = append(rows, a.Data[start:start+width])
	}
	return rows
}

// Batched returns a copy of the array with a leading dimension of 1.
func (a *Array) Batched() *Array {
	data := make([]float32, len(a.Data))
	copy(data, a.Data)
	return &Array{Data: data, Shape: append([]int{1}, a.Shape...)}
}

// Tensor converts the array into a gomlx tensor of the same shape.
func (a *Array) Tensor() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(a.Data, a.Shape...)
}

// FromTensor copies a float32 gomlx tensor back into host memory.
func FromTensor(t *tensors.Tensor) (*Array, error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	dims := t.Shape().Dimensions
	return NewArray(tensors.CopyFlatData[float32](t), dims...)
}

// ArgMax returns the index of the largest value of each row (last
// dimension). Ties resolve to the lowest index.
func (a *Array) ArgMax() []int {
	rows := a.Rows()
	out := make([]int, len(rows))
	for i, r := range rows {
		best := 0
		for j := 1; j < len(r); j++ {
			if r[j] > r[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}
