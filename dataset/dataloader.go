package dataset

import (
	"fmt"
	"math/rand"

	"github.com/tilecoder/tilecoder/tensor"
)

// DataLoader iterates a dataset in batches. It is restartable: Reset
// rewinds iteration (and reshuffles when shuffling is enabled).
type DataLoader struct {
	ds        Dataset
	itemShape []int
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	indices   []int
	position  int
}

// NewDataLoader creates a loader over ds. itemShape is the per-item
// image shape used to build batched tensors.
func NewDataLoader(ds Dataset, itemShape []int, batchSize int, shuffle bool, seed int64) (*DataLoader, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("data loader requires a non-empty dataset")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	dl := &DataLoader{
		ds:        ds,
		itemShape: append([]int(nil), itemShape...),
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		indices:   make([]int, ds.Len()),
	}
	for i := range dl.indices {
		dl.indices[i] = i
	}
	dl.Reset()
	return dl, nil
}

// Reset rewinds the loader to the first batch, reshuffling if enabled.
func (dl *DataLoader) Reset() {
	dl.position = 0
	if dl.shuffle {
		dl.rng.Shuffle(len(dl.indices), func(i, j int) {
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		})
	}
}

// Len returns the number of batches per pass.
func (dl *DataLoader) Len() int {
	return (dl.ds.Len() + dl.batchSize - 1) / dl.batchSize
}

// BatchSize returns the configured batch size.
func (dl *DataLoader) BatchSize() int { return dl.batchSize }

// Next returns the next batch, or (nil, nil) when the pass is exhausted.
func (dl *DataLoader) Next() (*Batch, error) {
	if dl.position >= len(dl.indices) {
		return nil, nil
	}
	end := dl.position + dl.batchSize
	if end > len(dl.indices) {
		end = len(dl.indices)
	}
	idx := dl.indices[dl.position:end]
	dl.position = end

	n := len(idx)
	itemLen := 1
	for _, d := range dl.itemShape {
		itemLen *= d
	}
	imgData := make([]float32, 0, n*itemLen)
	var labelRows [][]float32
	for _, i := range idx {
		img, label, err := dl.ds.Get(i)
		if err != nil {
			return nil, err
		}
		if len(img) != itemLen {
			return nil, fmt.Errorf("item %d has %d values, expected %d", i, len(img), itemLen)
		}
		imgData = append(imgData, img...)
		if label != nil {
			labelRows = append(labelRows, label)
		}
	}

	shape := append([]int{n}, dl.itemShape...)
	images, err := tensor.New(imgData, shape...)
	if err != nil {
		return nil, err
	}
	batch := &Batch{Images: images}
	if len(labelRows) == n {
		width := len(labelRows[0])
		labelData := make([]float32, 0, n*width)
		for _, row := range labelRows {
			labelData = append(labelData, row...)
		}
		if batch.Labels, err = tensor.New(labelData, n, width); err != nil {
			return nil, err
		}
	}
	return batch, nil
}
