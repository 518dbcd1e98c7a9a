// Package checkpoints persists model weights and training state.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tilecoder/tilecoder/nn"
	"github.com/tilecoder/tilecoder/optimizer"
)

// Format selects the on-disk encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatPB
)

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatPB:
		return ".pb"
	default:
		return ".json"
	}
}

// WeightTensor is one named parameter in a checkpoint.
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// TrainingState captures where a run stopped.
type TrainingState struct {
	Epoch            int     `json:"epoch"`
	LearningRate     float64 `json:"learning_rate"`
	BestLoss         float64 `json:"best_loss"`
	LRNoImproveCount int     `json:"lr_no_improve_count"`
	EarlyStopCount   int     `json:"early_stop_count"`
	TotalEpochsLimit int     `json:"total_epochs_limit"`
	EarlyStopped     bool    `json:"early_stopped"`
}

// Metadata is free-form run information.
type Metadata struct {
	CreatedAt   time.Time         `json:"created_at"`
	Framework   string            `json:"framework"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Checkpoint bundles weights, training state, and optimizer state.
type Checkpoint struct {
	Weights        []WeightTensor   `json:"weights"`
	TrainingState  TrainingState    `json:"training_state"`
	OptimizerState *optimizer.State `json:"optimizer_state,omitempty"`
	Metadata       Metadata         `json:"metadata"`
}

// FromStateDict converts a model state dict into checkpoint weights.
func FromStateDict(params []nn.NamedParam) []WeightTensor {
	weights := make([]WeightTensor, len(params))
	for i, p := range params {
		weights[i] = WeightTensor{
			Name:  p.Name,
			Shape: append([]int(nil), p.Tensor.Shape...),
			Data:  append([]float32(nil), p.Tensor.Data...),
		}
	}
	return weights
}

// Saver reads and writes checkpoints.
type Saver struct {
	format Format
}

// NewSaver creates a Saver with the given default format.
func NewSaver(format Format) *Saver {
	return &Saver{format: format}
}

// Format returns the saver's default format.
func (s *Saver) Format() Format { return s.format }

// Save writes cp to path. The encoding follows the path's extension when
// recognized, otherwise the saver's default format.
func (s *Saver) Save(cp *Checkpoint, path string) error {
	if cp == nil {
		return fmt.Errorf("nil checkpoint")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %v", err)
	}
	switch formatForPath(path, s.format) {
	case FormatPB:
		return savePB(cp, path)
	default:
		return saveJSON(cp, path)
	}
}

// Load reads a checkpoint from path.
func (s *Saver) Load(path string) (*Checkpoint, error) {
	switch formatForPath(path, s.format) {
	case FormatPB:
		return loadPB(path)
	default:
		return loadJSON(path)
	}
}

func formatForPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pb":
		return FormatPB
	case ".json":
		return FormatJSON
	default:
		return def
	}
}

func saveJSON(cp *Checkpoint, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating checkpoint file: %v", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cp); err != nil {
		return fmt.Errorf("encoding checkpoint: %v", err)
	}
	return nil
}

func loadJSON(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint file: %v", err)
	}
	defer f.Close()
	var cp Checkpoint
	if err := json.NewDecoder(f).Decode(&cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %v", err)
	}
	return &cp, nil
}
