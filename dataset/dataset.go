// Package dataset provides datasets, batching, and the train/validation
// data manager consumed by the trainer.
package dataset

import (
	"fmt"

	"github.com/tilecoder/tilecoder/tensor"
)

// Dataset is an indexable collection of image tiles with optional
// per-item label rows.
type Dataset interface {
	Len() int
	// Get returns the flattened image data and label row for item i.
	// The label may be nil when the dataset is unlabeled.
	Get(i int) (image []float32, label []float32, err error)
}

// Batch is one unit of work for the training loop: a batched image
// tensor and, when the dataset carries labels, a matching label tensor.
type Batch struct {
	Images *tensor.Tensor
	Labels *tensor.Tensor
}

// InMemoryDataset holds image tiles as flat float32 rows.
type InMemoryDataset struct {
	ItemShape []int
	images    [][]float32
	labels    [][]float32
}

// NewInMemoryDataset creates a dataset over images of itemShape. labels
// may be nil for an unlabeled dataset; otherwise it must be parallel to
// images with a fixed row width.
func NewInMemoryDataset(images [][]float32, labels [][]float32, itemShape []int) (*InMemoryDataset, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("dataset requires at least one image")
	}
	itemLen := 1
	for _, d := range itemShape {
		if d <= 0 {
			return nil, fmt.Errorf("invalid item shape %v", itemShape)
		}
		itemLen *= d
	}
	for i, img := range images {
		if len(img) != itemLen {
			return nil, fmt.Errorf("image %d has %d values, item shape %v requires %d", i, len(img), itemShape, itemLen)
		}
	}
	if labels != nil {
		if len(labels) != len(images) {
			return nil, fmt.Errorf("%d labels for %d images", len(labels), len(images))
		}
		width := len(labels[0])
		for i, l := range labels {
			if len(l) != width {
				return nil, fmt.Errorf("label %d has width %d, expected %d", i, len(l), width)
			}
		}
	}
	return &InMemoryDataset{
		ItemShape: append([]int(nil), itemShape...),
		images:    images,
		labels:    labels,
	}, nil
}

func (d *InMemoryDataset) Len() int { return len(d.images) }

func (d *InMemoryDataset) Get(i int) ([]float32, []float32, error) {
	if i < 0 || i >= len(d.images) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", i, len(d.images))
	}
	if d.labels == nil {
		return d.images[i], nil, nil
	}
	return d.images[i], d.labels[i], nil
}

// Labeled reports whether the dataset carries label rows.
func (d *InMemoryDataset) Labeled() bool { return d.labels != nil }
