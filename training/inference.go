package training

import (
	"fmt"

	"github.com/tilecoder/tilecoder/tensor"
)

// InferEmbeddings runs the encoder stage over data. data may be a Loader
// (batched, outputs concatenated along the first axis) or a raw
// *tensor.Tensor batch. Labels are returned only for loaders whose every
// batch carried labels.
func (t *BaseTrainer) InferEmbeddings(data interface{}) (*tensor.Tensor, *tensor.Tensor, error) {
	return t.infer(data, func(images *tensor.Tensor) (*tensor.Tensor, error) {
		return t.model.Encoder().Forward(images)
	})
}

// InferReconstruction runs the full model over data, returning only the
// reconstruction regardless of auxiliary heads. Input handling matches
// InferEmbeddings.
func (t *BaseTrainer) InferReconstruction(data interface{}) (*tensor.Tensor, *tensor.Tensor, error) {
	return t.infer(data, func(images *tensor.Tensor) (*tensor.Tensor, error) {
		out, err := t.model.Forward(images)
		if err != nil {
			return nil, err
		}
		if out == nil || out.Reconstruction == nil {
			return nil, fmt.Errorf("%w: model output has no reconstruction", ErrInvalidInput)
		}
		return out.Reconstruction, nil
	})
}

func (t *BaseTrainer) infer(data interface{}, forward func(*tensor.Tensor) (*tensor.Tensor, error)) (*tensor.Tensor, *tensor.Tensor, error) {
	if t.model == nil {
		return nil, nil, fmt.Errorf("%w: no model bound", ErrNotInitialized)
	}
	if data == nil {
		return nil, nil, fmt.Errorf("%w: data is required", ErrInvalidInput)
	}
	t.model.Eval()

	switch v := data.(type) {
	case *tensor.Tensor:
		var out *tensor.Tensor
		err := tensor.NoGrad(func() error {
			var e error
			out, e = forward(v)
			return e
		})
		if err != nil {
			return nil, nil, err
		}
		return out, nil, nil
	case Loader:
		return t.inferLoader(v, forward)
	default:
		return nil, nil, fmt.Errorf("%w: unsupported data type %T", ErrInvalidInput, data)
	}
}

// inferLoader drains the loader, concatenating per-batch outputs along
// the first axis. Labels are stacked only when every batch has them;
// otherwise nil is returned for the label side.
func (t *BaseTrainer) inferLoader(loader Loader, forward func(*tensor.Tensor) (*tensor.Tensor, error)) (*tensor.Tensor, *tensor.Tensor, error) {
	loader.Reset()
	var outs, labels []*tensor.Tensor
	for {
		batch, err := loader.Next()
		if err != nil {
			return nil, nil, err
		}
		if batch == nil {
			break
		}
		var out *tensor.Tensor
		err = tensor.NoGrad(func() error {
			var e error
			out, e = forward(batch.Images)
			return e
		})
		if err != nil {
			return nil, nil, err
		}
		outs = append(outs, out)
		if batch.Labels != nil {
			labels = append(labels, batch.Labels)
		}
	}
	if len(outs) == 0 {
		return nil, nil, fmt.Errorf("%w: loader produced no batches", ErrInvalidInput)
	}
	stacked, err := stackFirstAxis(outs)
	if err != nil {
		return nil, nil, err
	}
	if len(labels) != len(outs) {
		return stacked, nil, nil
	}
	stackedLabels, err := stackFirstAxis(labels)
	if err != nil {
		return nil, nil, err
	}
	return stacked, stackedLabels, nil
}

// stackFirstAxis concatenates tensors along axis 0. All inputs must
// share trailing dimensions.
func stackFirstAxis(parts []*tensor.Tensor) (*tensor.Tensor, error) {
	first := parts[0]
	rows := first.Shape[0]
	var data []float32
	data = append(data, first.Data...)
	for _, p := range parts[1:] {
		if len(p.Shape) != len(first.Shape) {
			return nil, fmt.Errorf("rank mismatch stacking %v and %v", first.Shape, p.Shape)
		}
		for d := 1; d < len(first.Shape); d++ {
			if p.Shape[d] != first.Shape[d] {
				return nil, fmt.Errorf("trailing dimension mismatch stacking %v and %v", first.Shape, p.Shape)
			}
		}
		rows += p.Shape[0]
		data = append(data, p.Data...)
	}
	shape := append([]int{rows}, first.Shape[1:]...)
	return tensor.New(data, shape...)
}
