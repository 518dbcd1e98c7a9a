package tensor

import "fmt"

// broadcastShapes computes the right-aligned broadcast shape of a and b.
func broadcastShapes(a, b []int) ([]int, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]int, n)
	for i := 1; i <= n; i++ {
		da, db := 1, 1
		if i <= len(a) {
			da = a[len(a)-i]
		}
		if i <= len(b) {
			db = b[len(b)-i]
		}
		switch {
		case da == db:
			out[n-i] = da
		case da == 1:
			out[n-i] = db
		case db == 1:
			out[n-i] = da
		default:
			return nil, fmt.Errorf("shapes %v and %v are not broadcast-compatible", a, b)
		}
	}
	return out, nil
}

// broadcastStrides returns strides for iterating a tensor of the given
// shape as if expanded to the broadcast shape out. Broadcast dimensions
// get stride zero.
func broadcastStrides(shape, out []int) []int {
	base := calcStrides(shape)
	res := make([]int, len(out))
	pad := len(out) - len(shape)
	for i := range out {
		if i < pad {
			continue
		}
		if shape[i-pad] == 1 && out[i] != 1 {
			continue
		}
		res[i] = base[i-pad]
	}
	return res
}

// binaryBroadcast applies f elementwise over a and b with broadcasting.
func binaryBroadcast(a, b *Tensor, f func(x, y float32) float32) (*Tensor, error) {
	shape, err := broadcastShapes(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	out, err := Zeros(shape...)
	if err != nil {
		return nil, err
	}
	sa := broadcastStrides(a.Shape, shape)
	sb := broadcastStrides(b.Shape, shape)
	coords := make([]int, len(shape))
	offA, offB := 0, 0
	for i := range out.Data {
		out.Data[i] = f(a.Data[offA], b.Data[offB])
		for d := len(shape) - 1; d >= 0; d-- {
			coords[d]++
			offA += sa[d]
			offB += sb[d]
			if coords[d] < shape[d] {
				break
			}
			coords[d] = 0
			offA -= sa[d] * shape[d]
			offB -= sb[d] * shape[d]
		}
	}
	return out, nil
}

// reduceToShape sums grad over broadcast dimensions so the result has
// the given target shape. grad's shape must be a broadcast of target.
func reduceToShape(grad *Tensor, target []int) (*Tensor, error) {
	if shapesEqual(grad.Shape, target) {
		return grad, nil
	}
	out, err := Zeros(target...)
	if err != nil {
		return nil, err
	}
	st := broadcastStrides(target, grad.Shape)
	coords := make([]int, len(grad.Shape))
	off := 0
	for i := range grad.Data {
		out.Data[off] += grad.Data[i]
		for d := len(grad.Shape) - 1; d >= 0; d-- {
			coords[d]++
			off += st[d]
			if coords[d] < grad.Shape[d] {
				break
			}
			coords[d] = 0
			off -= st[d] * grad.Shape[d]
		}
	}
	return out, nil
}
