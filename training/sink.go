package training

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives per-epoch scalar metrics for external visualization.
type Sink interface {
	PushScalars(scope string, epoch int, values map[string]float64) error
	Close() error
}

// FileSink appends metrics as JSON lines under a log directory.
type FileSink struct {
	f   *os.File
	enc *json.Encoder
}

// NewFileSink opens (creating if needed) dir/metrics.jsonl for append.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating metrics directory: %v", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "metrics.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening metrics log: %v", err)
	}
	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

type sinkRecord struct {
	Scope  string             `json:"scope"`
	Epoch  int                `json:"epoch"`
	Values map[string]float64 `json:"values"`
}

func (s *FileSink) PushScalars(scope string, epoch int, values map[string]float64) error {
	return s.enc.Encode(sinkRecord{Scope: scope, Epoch: epoch, Values: values})
}

func (s *FileSink) Close() error {
	return s.f.Close()
}
