package nn

import (
	"fmt"

	"github.com/tilecoder/tilecoder/tensor"
)

// Autoencoder is a generic encoder/decoder pair. The encoder maps batched
// images to embeddings of shape [batch, embeddingDim]; the decoder maps
// embeddings back to the input shape.
type Autoencoder struct {
	Enc *Sequential
	Dec *Sequential
}

// NewDenseAutoencoder builds a fully connected autoencoder over items of
// itemShape, with one hidden layer on each side.
func NewDenseAutoencoder(itemShape []int, hiddenDim, embeddingDim int) (*Autoencoder, error) {
	if hiddenDim <= 0 || embeddingDim <= 0 {
		return nil, fmt.Errorf("invalid autoencoder dims hidden=%d embedding=%d", hiddenDim, embeddingDim)
	}
	inputDim := 1
	for _, d := range itemShape {
		if d <= 0 {
			return nil, fmt.Errorf("invalid item shape %v", itemShape)
		}
		inputDim *= d
	}

	encIn, err := NewLinear(inputDim, hiddenDim)
	if err != nil {
		return nil, err
	}
	encOut, err := NewLinear(hiddenDim, embeddingDim)
	if err != nil {
		return nil, err
	}
	decIn, err := NewLinear(embeddingDim, hiddenDim)
	if err != nil {
		return nil, err
	}
	decOut, err := NewLinear(hiddenDim, inputDim)
	if err != nil {
		return nil, err
	}

	return &Autoencoder{
		Enc: NewSequential(NewFlatten(), encIn, NewReLU(), encOut),
		Dec: NewSequential(decIn, NewReLU(), decOut, NewReshape(itemShape...)),
	}, nil
}

// Forward encodes then decodes a batch, returning the reconstruction.
func (a *Autoencoder) Forward(images *tensor.Tensor) (*Output, error) {
	emb, err := a.Enc.Forward(images)
	if err != nil {
		return nil, fmt.Errorf("encoder: %v", err)
	}
	rec, err := a.Dec.Forward(emb)
	if err != nil {
		return nil, fmt.Errorf("decoder: %v", err)
	}
	return &Output{Reconstruction: rec}, nil
}

// Encoder exposes the embedding stage for inference.
func (a *Autoencoder) Encoder() Module { return a.Enc }

func (a *Autoencoder) Parameters() []*tensor.Tensor {
	return append(a.Enc.Parameters(), a.Dec.Parameters()...)
}

func (a *Autoencoder) StateDict() []NamedParam {
	params := a.Enc.NamedParameters("encoder.")
	return append(params, a.Dec.NamedParameters("decoder.")...)
}

func (a *Autoencoder) LoadStateDict(params []NamedParam) error {
	return loadStateDict(a.StateDict(), params)
}

func (a *Autoencoder) Train() {
	a.Enc.Train()
	a.Dec.Train()
}

func (a *Autoencoder) Eval() {
	a.Enc.Eval()
	a.Dec.Eval()
}
