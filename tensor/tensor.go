// Package tensor implements a small CPU tensor engine with reverse-mode
// automatic differentiation. Tensors hold float32 data in row-major order.
package tensor

import (
	"fmt"
	"math"
)

// Tensor is a dense row-major float32 array with an optional gradient.
type Tensor struct {
	Shape   []int
	Strides []int
	Data    []float32

	requiresGrad bool
	grad         *Tensor
	creator      Operation
}

// New creates a tensor wrapping data with the given shape. The data slice
// is used directly, not copied.
func New(data []float32, shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(data), shape, n)
	}
	return &Tensor{
		Shape:   append([]int(nil), shape...),
		Strides: calcStrides(shape),
		Data:    data,
	}, nil
}

// FromFloat64 creates a float32 tensor from float64 data.
func FromFloat64(data []float64, shape ...int) (*Tensor, error) {
	conv := make([]float32, len(data))
	for i, v := range data {
		conv[i] = float32(v)
	}
	return New(conv, shape...)
}

// NumElems returns the number of elements.
func (t *Tensor) NumElems() int {
	return len(t.Data)
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int {
	return len(t.Shape)
}

// RequiresGrad marks the tensor as a leaf that accumulates gradients.
func (t *Tensor) RequiresGrad(v bool) *Tensor {
	t.requiresGrad = v
	return t
}

// NeedsGrad reports whether the tensor participates in autodiff.
func (t *Tensor) NeedsGrad() bool {
	return t.requiresGrad
}

// Grad returns the accumulated gradient, or nil.
func (t *Tensor) Grad() *Tensor {
	return t.grad
}

// ZeroGrad clears the accumulated gradient.
func (t *Tensor) ZeroGrad() {
	t.grad = nil
}

// Clone returns a deep copy. The copy carries no gradient or graph history.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &Tensor{
		Shape:        append([]int(nil), t.Shape...),
		Strides:      append([]int(nil), t.Strides...),
		Data:         data,
		requiresGrad: t.requiresGrad,
	}
}

// Detach returns a view of the same data cut off from the graph.
func (t *Tensor) Detach() *Tensor {
	return &Tensor{
		Shape:   append([]int(nil), t.Shape...),
		Strides: append([]int(nil), t.Strides...),
		Data:    t.Data,
	}
}

// CopyFrom overwrites the tensor's data in place with src's data.
// Shapes must match exactly.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !shapesEqual(t.Shape, src.Shape) {
		return fmt.Errorf("shape mismatch: %v vs %v", t.Shape, src.Shape)
	}
	copy(t.Data, src.Data)
	return nil
}

// Item returns the value of a single-element tensor.
func (t *Tensor) Item() (float32, error) {
	if len(t.Data) != 1 {
		return 0, fmt.Errorf("Item requires a single-element tensor, got shape %v", t.Shape)
	}
	return t.Data[0], nil
}

// At returns the element at the given multi-index.
func (t *Tensor) At(idx ...int) (float32, error) {
	off, err := t.offset(idx)
	if err != nil {
		return 0, err
	}
	return t.Data[off], nil
}

// Set assigns the element at the given multi-index.
func (t *Tensor) Set(v float32, idx ...int) error {
	off, err := t.offset(idx)
	if err != nil {
		return err
	}
	t.Data[off] = v
	return nil
}

func (t *Tensor) offset(idx []int) (int, error) {
	if len(idx) != len(t.Shape) {
		return 0, fmt.Errorf("index %v has wrong rank for shape %v", idx, t.Shape)
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.Shape[i] {
			return 0, fmt.Errorf("index %v out of range for shape %v", idx, t.Shape)
		}
		off += x * t.Strides[i]
	}
	return off, nil
}

// Float64s returns the data converted to float64.
func (t *Tensor) Float64s() []float64 {
	out := make([]float64, len(t.Data))
	for i, v := range t.Data {
		out[i] = float64(v)
	}
	return out
}

// HasNaN reports whether any element is NaN or infinite.
func (t *Tensor) HasNaN() bool {
	for _, v := range t.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
	}
	return false
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, %d elems)", t.Shape, len(t.Data))
}

func calcStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func checkShape(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("shape must have at least one dimension")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("invalid dimension %d in shape %v", d, shape)
		}
		n *= d
	}
	return n, nil
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
