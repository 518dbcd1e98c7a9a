package checkpoints

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/tilecoder/tilecoder/nn"
	"github.com/tilecoder/tilecoder/tensor"
)

func sampleCheckpoint() *Checkpoint {
	return &Checkpoint{
		Weights: []WeightTensor{
			{Name: "encoder.1.weight", Shape: []int{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}},
			{Name: "encoder.1.bias", Shape: []int{3}, Data: []float32{0.1, 0.2, 0.3}},
		},
		TrainingState: TrainingState{
			Epoch:            7,
			LearningRate:     1e-4,
			BestLoss:         0.125,
			LRNoImproveCount: 2,
			EarlyStopCount:   3,
			TotalEpochsLimit: 100,
		},
		Metadata: Metadata{
			CreatedAt: time.Now().UTC(),
			Framework: "tilecoder",
		},
	}
}

func checkRoundTrip(t *testing.T, path string) {
	t.Helper()
	saver := NewSaver(FormatJSON)
	want := sampleCheckpoint()
	if err := saver.Save(want, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := saver.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Weights) != len(want.Weights) {
		t.Fatalf("weights count = %d, want %d", len(got.Weights), len(want.Weights))
	}
	for i, w := range want.Weights {
		g := got.Weights[i]
		if g.Name != w.Name {
			t.Errorf("weight %d name = %q, want %q", i, g.Name, w.Name)
		}
		for j := range w.Data {
			if math.Abs(float64(g.Data[j]-w.Data[j])) > 1e-6 {
				t.Errorf("weight %d data[%d] = %v, want %v", i, j, g.Data[j], w.Data[j])
			}
		}
	}
	if got.TrainingState.Epoch != 7 || got.TrainingState.BestLoss != 0.125 {
		t.Errorf("training state = %+v", got.TrainingState)
	}
	if got.TrainingState.LRNoImproveCount != 2 || got.TrainingState.EarlyStopCount != 3 {
		t.Errorf("plateau counters = %+v", got.TrainingState)
	}
}

func TestSaveLoadJSON(t *testing.T) {
	checkRoundTrip(t, filepath.Join(t.TempDir(), "model_7.json"))
}

func TestSaveLoadPB(t *testing.T) {
	checkRoundTrip(t, filepath.Join(t.TempDir(), "model_7.pb"))
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"model_3.json", FormatJSON},
		{"model_3.pb", FormatPB},
		{"model_3.ckpt", FormatPB},
	}
	for _, tt := range tests {
		if got := formatForPath(tt.path, FormatPB); got != tt.want {
			t.Errorf("formatForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFromStateDict(t *testing.T) {
	w, _ := tensor.New([]float32{1, 2, 3, 4}, 2, 2)
	params := []nn.NamedParam{{Name: "decoder.0.weight", Tensor: w}}
	weights := FromStateDict(params)
	if len(weights) != 1 || weights[0].Name != "decoder.0.weight" {
		t.Fatalf("unexpected weights %+v", weights)
	}
	// Converted weights must not alias the live tensor.
	weights[0].Data[0] = 99
	if w.Data[0] == 99 {
		t.Errorf("checkpoint weights alias model parameters")
	}
}

func TestSaveNil(t *testing.T) {
	saver := NewSaver(FormatJSON)
	if err := saver.Save(nil, filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Errorf("expected error for nil checkpoint")
	}
}
