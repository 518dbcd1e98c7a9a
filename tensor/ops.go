package tensor

import (
	"fmt"
	"math"
)

type binaryOp struct {
	a, b     *Tensor
	backward func(grad *Tensor) (*Tensor, *Tensor, error)
}

func (op *binaryOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *binaryOp) Backward(grad *Tensor) ([]*Tensor, error) {
	ga, gb, err := op.backward(grad)
	if err != nil {
		return nil, err
	}
	if ga, err = reduceToShape(ga, op.a.Shape); err != nil {
		return nil, err
	}
	if gb, err = reduceToShape(gb, op.b.Shape); err != nil {
		return nil, err
	}
	return []*Tensor{ga, gb}, nil
}

// Add returns a + b with broadcasting.
func Add(a, b *Tensor) (*Tensor, error) {
	out, err := binaryBroadcast(a, b, func(x, y float32) float32 { return x + y })
	if err != nil {
		return nil, err
	}
	record(out, &binaryOp{a: a, b: b, backward: func(g *Tensor) (*Tensor, *Tensor, error) {
		return g, g, nil
	}})
	return out, nil
}

// Sub returns a - b with broadcasting.
func Sub(a, b *Tensor) (*Tensor, error) {
	out, err := binaryBroadcast(a, b, func(x, y float32) float32 { return x - y })
	if err != nil {
		return nil, err
	}
	record(out, &binaryOp{a: a, b: b, backward: func(g *Tensor) (*Tensor, *Tensor, error) {
		gb, err := Zeros(g.Shape...)
		if err != nil {
			return nil, nil, err
		}
		for i, v := range g.Data {
			gb.Data[i] = -v
		}
		return g, gb, nil
	}})
	return out, nil
}

// Mul returns the elementwise product a * b with broadcasting.
func Mul(a, b *Tensor) (*Tensor, error) {
	out, err := binaryBroadcast(a, b, func(x, y float32) float32 { return x * y })
	if err != nil {
		return nil, err
	}
	ad, bd := a.Detach(), b.Detach()
	record(out, &binaryOp{a: a, b: b, backward: func(g *Tensor) (*Tensor, *Tensor, error) {
		ga, err := binaryBroadcast(g, bd, func(x, y float32) float32 { return x * y })
		if err != nil {
			return nil, nil, err
		}
		gb, err := binaryBroadcast(g, ad, func(x, y float32) float32 { return x * y })
		if err != nil {
			return nil, nil, err
		}
		return ga, gb, nil
	}})
	return out, nil
}

// Div returns the elementwise quotient a / b with broadcasting.
func Div(a, b *Tensor) (*Tensor, error) {
	out, err := binaryBroadcast(a, b, func(x, y float32) float32 { return x / y })
	if err != nil {
		return nil, err
	}
	ad, bd := a.Detach(), b.Detach()
	record(out, &binaryOp{a: a, b: b, backward: func(g *Tensor) (*Tensor, *Tensor, error) {
		ga, err := binaryBroadcast(g, bd, func(x, y float32) float32 { return x / y })
		if err != nil {
			return nil, nil, err
		}
		// d/db (a/b) = -a / b^2
		gb, err := binaryBroadcast(g, ad, func(x, y float32) float32 { return x * y })
		if err != nil {
			return nil, nil, err
		}
		gb, err = binaryBroadcast(gb, bd, func(x, y float32) float32 { return -x / (y * y) })
		if err != nil {
			return nil, nil, err
		}
		return ga, gb, nil
	}})
	return out, nil
}

// Scale returns t * s.
func Scale(t *Tensor, s float32) (*Tensor, error) {
	return Mul(t, FromScalar(s))
}

type unaryOp struct {
	in       *Tensor
	backward func(grad *Tensor) (*Tensor, error)
}

func (op *unaryOp) Inputs() []*Tensor { return []*Tensor{op.in} }

func (op *unaryOp) Backward(grad *Tensor) ([]*Tensor, error) {
	g, err := op.backward(grad)
	if err != nil {
		return nil, err
	}
	return []*Tensor{g}, nil
}

// ReLU returns max(t, 0).
func ReLU(t *Tensor) (*Tensor, error) {
	out, err := Zeros(t.Shape...)
	if err != nil {
		return nil, err
	}
	for i, v := range t.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	mask := t.Detach()
	record(out, &unaryOp{in: t, backward: func(g *Tensor) (*Tensor, error) {
		gi, err := Zeros(t.Shape...)
		if err != nil {
			return nil, err
		}
		for i, v := range mask.Data {
			if v > 0 {
				gi.Data[i] = g.Data[i]
			}
		}
		return gi, nil
	}})
	return out, nil
}

// Sigmoid returns 1 / (1 + exp(-t)).
func Sigmoid(t *Tensor) (*Tensor, error) {
	out, err := Zeros(t.Shape...)
	if err != nil {
		return nil, err
	}
	for i, v := range t.Data {
		out.Data[i] = float32(1.0 / (1.0 + math.Exp(-float64(v))))
	}
	y := out.Detach()
	record(out, &unaryOp{in: t, backward: func(g *Tensor) (*Tensor, error) {
		gi, err := Zeros(t.Shape...)
		if err != nil {
			return nil, err
		}
		for i, v := range y.Data {
			gi.Data[i] = g.Data[i] * v * (1 - v)
		}
		return gi, nil
	}})
	return out, nil
}

// Sum reduces the tensor to a scalar sum. The sum runs in float64 to
// keep large reductions stable.
func Sum(t *Tensor) (*Tensor, error) {
	var acc float64
	for _, v := range t.Data {
		acc += float64(v)
	}
	out := FromScalar(float32(acc))
	record(out, &unaryOp{in: t, backward: func(g *Tensor) (*Tensor, error) {
		return Full(g.Data[0], t.Shape...)
	}})
	return out, nil
}

// Mean reduces the tensor to its scalar arithmetic mean.
func Mean(t *Tensor) (*Tensor, error) {
	n := float32(len(t.Data))
	var acc float64
	for _, v := range t.Data {
		acc += float64(v)
	}
	out := FromScalar(float32(acc / float64(n)))
	record(out, &unaryOp{in: t, backward: func(g *Tensor) (*Tensor, error) {
		return Full(g.Data[0]/n, t.Shape...)
	}})
	return out, nil
}

// Reshape returns a tensor with the same data and a new shape.
func Reshape(t *Tensor, shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if n != len(t.Data) {
		return nil, fmt.Errorf("cannot reshape %v to %v", t.Shape, shape)
	}
	out, err := New(t.Data, shape...)
	if err != nil {
		return nil, err
	}
	record(out, &unaryOp{in: t, backward: func(g *Tensor) (*Tensor, error) {
		return Reshape(g.Detach(), t.Shape...)
	}})
	return out, nil
}

type matMulOp struct {
	a, b *Tensor
}

func (op *matMulOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *matMulOp) Backward(grad *Tensor) ([]*Tensor, error) {
	// dA = dOut @ B^T, dB = A^T @ dOut
	bt, err := transpose2D(op.b)
	if err != nil {
		return nil, err
	}
	ga, err := matMul2D(grad, bt)
	if err != nil {
		return nil, err
	}
	at, err := transpose2D(op.a)
	if err != nil {
		return nil, err
	}
	gb, err := matMul2D(at, grad)
	if err != nil {
		return nil, err
	}
	return []*Tensor{ga, gb}, nil
}

// MatMul returns the 2-D matrix product a @ b.
func MatMul(a, b *Tensor) (*Tensor, error) {
	out, err := matMul2D(a, b)
	if err != nil {
		return nil, err
	}
	record(out, &matMulOp{a: a, b: b})
	return out, nil
}

func matMul2D(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("MatMul requires 2-D tensors, got %v and %v", a.Shape, b.Shape)
	}
	m, k := a.Shape[0], a.Shape[1]
	k2, n := b.Shape[0], b.Shape[1]
	if k != k2 {
		return nil, fmt.Errorf("MatMul inner dimensions do not match: %v and %v", a.Shape, b.Shape)
	}
	out, err := Zeros(m, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m; i++ {
		for kk := 0; kk < k; kk++ {
			av := a.Data[i*k+kk]
			if av == 0 {
				continue
			}
			row := b.Data[kk*n : kk*n+n]
			outRow := out.Data[i*n : i*n+n]
			for j, bv := range row {
				outRow[j] += av * bv
			}
		}
	}
	return out, nil
}

func transpose2D(t *Tensor) (*Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("transpose requires a 2-D tensor, got %v", t.Shape)
	}
	r, c := t.Shape[0], t.Shape[1]
	out, err := Zeros(c, r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Data[j*r+i] = t.Data[i*c+j]
		}
	}
	return out, nil
}
