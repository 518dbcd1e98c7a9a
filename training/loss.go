package training

import (
	"fmt"

	"github.com/tilecoder/tilecoder/nn"
	"github.com/tilecoder/tilecoder/tensor"
)

// Loss computes one scalar tensor per configured metric name. The first
// term is the one backpropagated; any further terms are tracked as
// additional metrics. A term with more than one element is recorded as
// a list-valued metric.
type Loss interface {
	Compute(output *nn.Output, target *tensor.Tensor) ([]*tensor.Tensor, error)
}

// MSELoss is the default reconstruction loss: the mean squared error
// between the reconstruction and the target.
type MSELoss struct{}

func NewMSELoss() *MSELoss { return &MSELoss{} }

func (l *MSELoss) Compute(output *nn.Output, target *tensor.Tensor) ([]*tensor.Tensor, error) {
	if output == nil || output.Reconstruction == nil {
		return nil, fmt.Errorf("%w: model output has no reconstruction", ErrInvalidInput)
	}
	diff, err := tensor.Sub(output.Reconstruction, target)
	if err != nil {
		return nil, err
	}
	sq, err := tensor.Mul(diff, diff)
	if err != nil {
		return nil, err
	}
	mse, err := tensor.Mean(sq)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{mse}, nil
}
