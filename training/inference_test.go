package training

import (
	"errors"
	"testing"

	"github.com/tilecoder/tilecoder/dataset"
	"github.com/tilecoder/tilecoder/nn"
	"github.com/tilecoder/tilecoder/tensor"
)

func TestInferRejectsNilAndUnknownTypes(t *testing.T) {
	tr := makeTrainer(t, Config{})
	if _, _, err := tr.InferEmbeddings(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := tr.InferReconstruction(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := tr.InferEmbeddings("images"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("string err = %v, want ErrInvalidInput", err)
	}
}

func TestInferRawTensor(t *testing.T) {
	tr := makeTrainer(t, Config{})
	x, _ := tensor.Rand(3, 2, 2)

	emb, labels, err := tr.InferEmbeddings(x)
	if err != nil {
		t.Fatalf("InferEmbeddings failed: %v", err)
	}
	if labels != nil {
		t.Errorf("raw input should yield no labels")
	}
	if emb.Shape[0] != 3 || emb.Shape[1] != 2 {
		t.Errorf("embedding shape = %v, want [3 2]", emb.Shape)
	}

	rec, _, err := tr.InferReconstruction(x)
	if err != nil {
		t.Fatalf("InferReconstruction failed: %v", err)
	}
	if len(rec.Shape) != 3 || rec.Shape[0] != 3 || rec.Shape[1] != 2 || rec.Shape[2] != 2 {
		t.Errorf("reconstruction shape = %v, want [3 2 2]", rec.Shape)
	}
}

func TestInferLoaderConcatenatesAndStacksLabels(t *testing.T) {
	tr := makeTrainer(t, Config{})
	images := make([][]float32, 7)
	labels := make([][]float32, 7)
	for i := range images {
		images[i] = []float32{1, 2, 3, float32(i)}
		labels[i] = []float32{float32(i), 0}
	}
	ds, err := dataset.NewInMemoryDataset(images, labels, testItemShape)
	if err != nil {
		t.Fatalf("NewInMemoryDataset failed: %v", err)
	}
	loader, err := dataset.NewDataLoader(ds, testItemShape, 3, false, 0)
	if err != nil {
		t.Fatalf("NewDataLoader failed: %v", err)
	}

	emb, stacked, err := tr.InferEmbeddings(loader)
	if err != nil {
		t.Fatalf("InferEmbeddings failed: %v", err)
	}
	if emb.Shape[0] != 7 {
		t.Errorf("embedding rows = %d, want 7", emb.Shape[0])
	}
	if stacked == nil || stacked.Shape[0] != 7 || stacked.Shape[1] != 2 {
		t.Fatalf("label shape = %v, want [7 2]", stacked)
	}
	if v, _ := stacked.At(6, 0); v != 6 {
		t.Errorf("labels[6][0] = %v, want 6", v)
	}
}

// fakeLoader yields a fixed batch sequence, for exercising uneven label
// coverage.
type fakeLoader struct {
	batches []*dataset.Batch
	i       int
}

func (f *fakeLoader) Reset() { f.i = 0 }

func (f *fakeLoader) Next() (*dataset.Batch, error) {
	if f.i >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.i]
	f.i++
	return b, nil
}

func (f *fakeLoader) Len() int { return len(f.batches) }

func TestInferLoaderPartialLabelsDropped(t *testing.T) {
	tr := makeTrainer(t, Config{})
	img1, _ := tensor.Rand(2, 2, 2)
	img2, _ := tensor.Rand(2, 2, 2)
	lab1, _ := tensor.New([]float32{1, 2}, 2, 1)
	loader := &fakeLoader{batches: []*dataset.Batch{
		{Images: img1, Labels: lab1},
		{Images: img2},
	}}

	emb, labels, err := tr.InferEmbeddings(loader)
	if err != nil {
		t.Fatalf("InferEmbeddings failed: %v", err)
	}
	if emb.Shape[0] != 4 {
		t.Errorf("embedding rows = %d, want 4", emb.Shape[0])
	}
	if labels != nil {
		t.Errorf("partial labels must be dropped, got %v", labels.Shape)
	}
}

// auxModel adds an auxiliary head output on top of a plain autoencoder.
type auxModel struct {
	*nn.Autoencoder
}

func (m *auxModel) Forward(x *tensor.Tensor) (*nn.Output, error) {
	out, err := m.Autoencoder.Forward(x)
	if err != nil {
		return nil, err
	}
	hist, err := tensor.New([]float32{1, 2, 3}, 1, 3)
	if err != nil {
		return nil, err
	}
	out.Aux = append(out.Aux, hist)
	return out, nil
}

func TestInferReconstructionIgnoresAuxOutputs(t *testing.T) {
	tensor.SetRandomSeed(5)
	ae, err := nn.NewDenseAutoencoder(testItemShape, 4, 2)
	if err != nil {
		t.Fatalf("NewDenseAutoencoder failed: %v", err)
	}
	tr, err := New(&auxModel{Autoencoder: ae}, Config{}, t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	x, _ := tensor.Rand(2, 2, 2)
	rec, _, err := tr.InferReconstruction(x)
	if err != nil {
		t.Fatalf("InferReconstruction failed: %v", err)
	}
	if rec.Shape[0] != 2 || rec.Shape[1] != 2 || rec.Shape[2] != 2 {
		t.Errorf("reconstruction shape = %v, want [2 2 2]", rec.Shape)
	}
}
