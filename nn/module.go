// Package nn provides neural network modules and the model contract
// consumed by the training package.
package nn

import (
	"fmt"
	"math"

	"github.com/tilecoder/tilecoder/tensor"
)

// Module is a composable network component.
type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
	Train()
	Eval()
}

// NamedParam pairs a parameter tensor with its hierarchical name.
type NamedParam struct {
	Name   string
	Tensor *tensor.Tensor
}

// paramNamer is implemented by modules that expose named parameters.
type paramNamer interface {
	NamedParameters(prefix string) []NamedParam
}

// Linear is a fully connected layer computing x @ W + b.
type Linear struct {
	InputSize  int
	OutputSize int
	Weight     *tensor.Tensor
	Bias       *tensor.Tensor
}

// NewLinear creates a Linear layer with Xavier-uniform initialized
// weights and zero bias.
func NewLinear(inputSize, outputSize int) (*Linear, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return nil, fmt.Errorf("invalid linear layer size %dx%d", inputSize, outputSize)
	}
	limit := float32(math.Sqrt(6.0 / float64(inputSize+outputSize)))
	w, err := tensor.Rand(inputSize, outputSize)
	if err != nil {
		return nil, err
	}
	for i := range w.Data {
		w.Data[i] = (w.Data[i]*2 - 1) * limit
	}
	b, err := tensor.Zeros(outputSize)
	if err != nil {
		return nil, err
	}
	w.RequiresGrad(true)
	b.RequiresGrad(true)
	return &Linear{
		InputSize:  inputSize,
		OutputSize: outputSize,
		Weight:     w,
		Bias:       b,
	}, nil
}

func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input.Dims() != 2 {
		return nil, fmt.Errorf("linear layer expects a 2-D input, got shape %v", input.Shape)
	}
	if input.Shape[1] != l.InputSize {
		return nil, fmt.Errorf("linear layer expects %d input features, got %d", l.InputSize, input.Shape[1])
	}
	out, err := tensor.MatMul(input, l.Weight)
	if err != nil {
		return nil, err
	}
	return tensor.Add(out, l.Bias)
}

func (l *Linear) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{l.Weight, l.Bias}
}

func (l *Linear) NamedParameters(prefix string) []NamedParam {
	return []NamedParam{
		{Name: prefix + "weight", Tensor: l.Weight},
		{Name: prefix + "bias", Tensor: l.Bias},
	}
}

func (l *Linear) Train() {}
func (l *Linear) Eval()  {}

// ReLU applies the rectified linear activation.
type ReLU struct{}

func NewReLU() *ReLU { return &ReLU{} }

func (r *ReLU) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.ReLU(input)
}

func (r *ReLU) Parameters() []*tensor.Tensor { return nil }
func (r *ReLU) Train()                       {}
func (r *ReLU) Eval()                        {}

// Sigmoid applies the logistic activation.
type Sigmoid struct{}

func NewSigmoid() *Sigmoid { return &Sigmoid{} }

func (s *Sigmoid) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Sigmoid(input)
}

func (s *Sigmoid) Parameters() []*tensor.Tensor { return nil }
func (s *Sigmoid) Train()                       {}
func (s *Sigmoid) Eval()                        {}

// Flatten collapses all dimensions after the batch dimension.
type Flatten struct{}

func NewFlatten() *Flatten { return &Flatten{} }

func (f *Flatten) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input.Dims() < 2 {
		return nil, fmt.Errorf("flatten expects a batched input, got shape %v", input.Shape)
	}
	batch := input.Shape[0]
	return tensor.Reshape(input, batch, input.NumElems()/batch)
}

func (f *Flatten) Parameters() []*tensor.Tensor { return nil }
func (f *Flatten) Train()                       {}
func (f *Flatten) Eval()                        {}

// Reshape restores a per-item shape after the batch dimension.
type Reshape struct {
	ItemShape []int
}

func NewReshape(itemShape ...int) *Reshape {
	return &Reshape{ItemShape: append([]int(nil), itemShape...)}
}

func (r *Reshape) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	shape := append([]int{input.Shape[0]}, r.ItemShape...)
	return tensor.Reshape(input, shape...)
}

func (r *Reshape) Parameters() []*tensor.Tensor { return nil }
func (r *Reshape) Train()                       {}
func (r *Reshape) Eval()                        {}

// Sequential chains modules, feeding each output into the next.
type Sequential struct {
	Layers   []Module
	training bool
}

func NewSequential(layers ...Module) *Sequential {
	return &Sequential{Layers: layers, training: true}
}

func (s *Sequential) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	out := input
	var err error
	for i, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %v", i, err)
		}
	}
	return out, nil
}

func (s *Sequential) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, layer := range s.Layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

func (s *Sequential) NamedParameters(prefix string) []NamedParam {
	var params []NamedParam
	for i, layer := range s.Layers {
		if pn, ok := layer.(paramNamer); ok {
			params = append(params, pn.NamedParameters(fmt.Sprintf("%s%d.", prefix, i))...)
		}
	}
	return params
}

func (s *Sequential) Train() {
	s.training = true
	for _, layer := range s.Layers {
		layer.Train()
	}
}

func (s *Sequential) Eval() {
	s.training = false
	for _, layer := range s.Layers {
		layer.Eval()
	}
}

// IsTraining reports the current mode.
func (s *Sequential) IsTraining() bool { return s.training }
