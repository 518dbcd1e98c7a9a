package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// The binary format stores the checkpoint as a protobuf Struct. It is
// smaller than indented JSON and safe to stream between tools that speak
// protobuf without sharing Go types.

func savePB(cp *Checkpoint, path string) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("normalizing checkpoint: %v", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("building checkpoint struct: %v", err)
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint file: %v", err)
	}
	return nil
}

func loadPB(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint file: %v", err)
	}
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshaling checkpoint: %v", err)
	}
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return nil, fmt.Errorf("normalizing checkpoint: %v", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %v", err)
	}
	return &cp, nil
}
