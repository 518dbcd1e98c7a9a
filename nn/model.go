package nn

import (
	"fmt"

	"github.com/tilecoder/tilecoder/tensor"
)

// Output is the result of a model forward pass. Reconstruction is always
// present; Aux carries any additional head outputs (quantization
// histograms, auxiliary losses inputs) in model-defined order. Callers
// that only care about the reconstruction never inspect Aux.
type Output struct {
	Reconstruction *tensor.Tensor
	Aux            []*tensor.Tensor
}

// Model is the trainable collaborator consumed by the trainer: a network
// with a reconstruction head and an addressable encoder stage.
type Model interface {
	Forward(images *tensor.Tensor) (*Output, error)
	Encoder() Module
	Parameters() []*tensor.Tensor
	StateDict() []NamedParam
	LoadStateDict(params []NamedParam) error
	Train()
	Eval()
}

// CloneStateDict deep-copies a state dict so a snapshot survives further
// parameter updates.
func CloneStateDict(params []NamedParam) []NamedParam {
	out := make([]NamedParam, len(params))
	for i, p := range params {
		out[i] = NamedParam{Name: p.Name, Tensor: p.Tensor.Clone()}
	}
	return out
}

// loadStateDict copies values from src into the live parameters dst, in
// place, matching by name. Parameter tensor identity is preserved so
// optimizer bindings stay valid.
func loadStateDict(dst, src []NamedParam) error {
	byName := make(map[string]*tensor.Tensor, len(src))
	for _, p := range src {
		byName[p.Name] = p.Tensor
	}
	for _, p := range dst {
		s, ok := byName[p.Name]
		if !ok {
			return fmt.Errorf("state dict is missing parameter %q", p.Name)
		}
		if err := p.Tensor.CopyFrom(s); err != nil {
			return fmt.Errorf("parameter %q: %v", p.Name, err)
		}
	}
	return nil
}
