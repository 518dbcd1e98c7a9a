package tensor

import "fmt"

// Operation is one node in the autodiff graph. Backward receives the
// gradient of the operation's output and returns one gradient per input
// (nil for inputs that need no gradient).
type Operation interface {
	Inputs() []*Tensor
	Backward(gradOut *Tensor) ([]*Tensor, error)
}

// gradEnabled gates graph recording. Toggled by NoGrad; not safe for
// concurrent use, matching the single-goroutine training loop.
var gradEnabled = true

// NoGrad runs fn with graph recording disabled. Used on validation and
// inference paths where gradients are never needed.
func NoGrad(fn func() error) error {
	prev := gradEnabled
	gradEnabled = false
	defer func() { gradEnabled = prev }()
	return fn()
}

// record attaches op as out's creator when autodiff is active and at
// least one input participates in the graph.
func record(out *Tensor, op Operation) {
	if !gradEnabled {
		return
	}
	for _, in := range op.Inputs() {
		if in.requiresGrad {
			out.requiresGrad = true
			out.creator = op
			return
		}
	}
}

// Backward runs reverse-mode autodiff from a scalar tensor, accumulating
// gradients into every reachable tensor with RequiresGrad set.
func (t *Tensor) Backward() error {
	if len(t.Data) != 1 {
		return fmt.Errorf("Backward requires a scalar tensor, got shape %v", t.Shape)
	}
	if t.creator == nil && !t.requiresGrad {
		return fmt.Errorf("tensor is not part of an autodiff graph")
	}

	var topo []*Tensor
	seen := make(map[*Tensor]bool)
	var visit func(n *Tensor)
	visit = func(n *Tensor) {
		if seen[n] {
			return
		}
		seen[n] = true
		if n.creator != nil {
			for _, in := range n.creator.Inputs() {
				visit(in)
			}
		}
		topo = append(topo, n)
	}
	visit(t)

	seed, err := Ones(t.Shape...)
	if err != nil {
		return err
	}
	t.accumulateGrad(seed)

	for i := len(topo) - 1; i >= 0; i-- {
		n := topo[i]
		if n.creator == nil || n.grad == nil {
			continue
		}
		grads, err := n.creator.Backward(n.grad)
		if err != nil {
			return fmt.Errorf("backward failed at %v: %v", n.Shape, err)
		}
		ins := n.creator.Inputs()
		if len(grads) != len(ins) {
			return fmt.Errorf("operation returned %d gradients for %d inputs", len(grads), len(ins))
		}
		for j, in := range ins {
			if grads[j] == nil || !in.requiresGrad {
				continue
			}
			if !shapesEqual(grads[j].Shape, in.Shape) {
				return fmt.Errorf("gradient shape %v does not match input shape %v", grads[j].Shape, in.Shape)
			}
			in.accumulateGrad(grads[j])
		}
	}
	return nil
}

func (t *Tensor) accumulateGrad(g *Tensor) {
	if t.grad == nil {
		t.grad = g.Clone()
		t.grad.requiresGrad = false
		return
	}
	for i := range t.grad.Data {
		t.grad.Data[i] += g.Data[i]
	}
}

// ZeroGrads clears gradients on a parameter slice.
func ZeroGrads(params []*Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
