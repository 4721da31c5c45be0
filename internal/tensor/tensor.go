// Package tensor implements the small dense n-dimensional array needed by the
// distribution algebra: one axis per node, row-major layout, broadcasting over
// singleton axes. Operations return new values; a Dense is never mutated after
// construction except through Set during initial fill.
package tensor

import (
	"fmt"
	"math"
)

// #region dense

// Dense is a row-major n-dimensional float64 array.
type Dense struct {
	shape   []int
	strides []int
	data    []float64
}

// New returns a zero-filled Dense with the given shape. A rank-0 tensor holds
// a single scalar element.
func New(shape ...int) *Dense {
	size := 1
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("tensor: invalid axis length %d", s))
		}
		size *= s
	}
	return &Dense{
		shape:   append([]int(nil), shape...),
		strides: stridesFor(shape),
		data:    make([]float64, size),
	}
}

// FromData wraps a flat row-major slice in a Dense of the given shape.
// The slice is copied.
func FromData(data []float64, shape ...int) (*Dense, error) {
	t := New(shape...)
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v", len(data), shape)
	}
	copy(t.data, data)
	return t, nil
}

func stridesFor(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// #endregion dense

// #region accessors

// Rank returns the number of axes.
func (t *Dense) Rank() int { return len(t.shape) }

// Size returns the total number of elements.
func (t *Dense) Size() int { return len(t.data) }

// Shape returns a copy of the axis lengths.
func (t *Dense) Shape() []int { return append([]int(nil), t.shape...) }

// At returns the element at the given multi-index.
func (t *Dense) At(index ...int) float64 {
	return t.data[t.offset(index)]
}

// Set assigns the element at the given multi-index.
func (t *Dense) Set(v float64, index ...int) {
	t.data[t.offset(index)] = v
}

func (t *Dense) offset(index []int) int {
	if len(index) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d against shape %v", len(index), t.shape))
	}
	off := 0
	for i, x := range index {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", index, t.shape))
		}
		off += x * t.strides[i]
	}
	return off
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	c := New(t.shape...)
	copy(c.data, t.data)
	return c
}

// Ravel returns the elements as a flat row-major slice copy.
func (t *Dense) Ravel() []float64 {
	return append([]float64(nil), t.data...)
}

// Sum returns the total of all elements.
func (t *Dense) Sum() float64 {
	total := 0.0
	for _, v := range t.data {
		total += v
	}
	return total
}

// #endregion accessors

// #region ops

// Scale returns a new tensor with every element multiplied by f.
func (t *Dense) Scale(f float64) *Dense {
	c := t.Clone()
	for i := range c.data {
		c.data[i] *= f
	}
	return c
}

// SumAxis sums over one axis. With keepdims the axis is retained with
// length 1 so the result still broadcasts against the input shape.
func (t *Dense) SumAxis(axis int, keepdims bool) *Dense {
	if axis < 0 || axis >= len(t.shape) {
		panic(fmt.Sprintf("tensor: axis %d out of range for shape %v", axis, t.shape))
	}
	outShape := t.Shape()
	outShape[axis] = 1
	out := New(outShape...)
	index := make([]int, len(t.shape))
	for off, v := range t.data {
		t.unravel(off, index)
		index[axis] = 0
		out.data[out.offset(index)] += v
	}
	if keepdims {
		return out
	}
	return out.dropAxis(axis)
}

// Fix slices the tensor at the given value on one axis, keeping the axis as
// a singleton so rank is preserved.
func (t *Dense) Fix(axis, value int) *Dense {
	if axis < 0 || axis >= len(t.shape) {
		panic(fmt.Sprintf("tensor: axis %d out of range for shape %v", axis, t.shape))
	}
	if value < 0 || value >= t.shape[axis] {
		panic(fmt.Sprintf("tensor: value %d out of range for axis %d of shape %v", value, axis, t.shape))
	}
	outShape := t.Shape()
	outShape[axis] = 1
	out := New(outShape...)
	index := make([]int, len(t.shape))
	for off := range out.data {
		out.unravel(off, index)
		index[axis] = value
		out.data[off] = t.data[t.offset(index)]
	}
	return out
}

// Mul returns the broadcast elementwise product. Both operands must have the
// same rank; each axis pair must be equal or contain a singleton.
func (t *Dense) Mul(o *Dense) (*Dense, error) {
	if len(t.shape) != len(o.shape) {
		return nil, fmt.Errorf("tensor: rank mismatch %v vs %v", t.shape, o.shape)
	}
	outShape := make([]int, len(t.shape))
	for i := range t.shape {
		a, b := t.shape[i], o.shape[i]
		switch {
		case a == b:
			outShape[i] = a
		case a == 1:
			outShape[i] = b
		case b == 1:
			outShape[i] = a
		default:
			return nil, fmt.Errorf("tensor: axis %d not broadcastable: %v vs %v", i, t.shape, o.shape)
		}
	}
	out := New(outShape...)
	index := make([]int, len(outShape))
	ai := make([]int, len(outShape))
	bi := make([]int, len(outShape))
	for off := range out.data {
		out.unravel(off, index)
		for i, x := range index {
			ai[i], bi[i] = x, x
			if t.shape[i] == 1 {
				ai[i] = 0
			}
			if o.shape[i] == 1 {
				bi[i] = 0
			}
		}
		out.data[off] = t.data[t.offset(ai)] * o.data[o.offset(bi)]
	}
	return out, nil
}

// Apply returns a new tensor with f applied to every element.
func (t *Dense) Apply(f func(float64) float64) *Dense {
	c := t.Clone()
	for i := range c.data {
		c.data[i] = f(c.data[i])
	}
	return c
}

// Squeeze returns a tensor with all singleton axes removed. Squeezing a
// tensor whose axes are all singletons yields a rank-0 scalar.
func (t *Dense) Squeeze() *Dense {
	var shape []int
	for _, s := range t.shape {
		if s != 1 {
			shape = append(shape, s)
		}
	}
	out := New(shape...)
	copy(out.data, t.data)
	return out
}

func (t *Dense) dropAxis(axis int) *Dense {
	shape := make([]int, 0, len(t.shape)-1)
	for i, s := range t.shape {
		if i != axis {
			shape = append(shape, s)
		}
	}
	out := New(shape...)
	copy(out.data, t.data)
	return out
}

func (t *Dense) unravel(off int, index []int) {
	for i := range t.shape {
		index[i] = off / t.strides[i]
		off %= t.strides[i]
	}
}

// #endregion ops

// #region compare

// AllClose reports whether two tensors have identical shapes and elementwise
// differences within tol.
func AllClose(a, b *Dense, tol float64) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	for i := range a.data {
		if math.Abs(a.data[i]-b.data[i]) > tol {
			return false
		}
	}
	return true
}

// #endregion compare
