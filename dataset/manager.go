package dataset

import "fmt"

// Manager holds the train and validation loaders for one run.
type Manager struct {
	train *DataLoader
	val   *DataLoader
}

// NewManager wraps pre-built loaders.
func NewManager(train, val *DataLoader) (*Manager, error) {
	if train == nil || val == nil {
		return nil, fmt.Errorf("manager requires both train and validation loaders")
	}
	return &Manager{train: train, val: val}, nil
}

func (m *Manager) TrainLoader() *DataLoader { return m.train }
func (m *Manager) ValLoader() *DataLoader   { return m.val }

// Split partitions ds into train and validation loaders. valFraction is
// the share of items held out for validation; the split is taken from
// the tail of the dataset order.
func Split(ds *InMemoryDataset, valFraction float64, batchSize int, shuffle bool, seed int64) (*Manager, error) {
	if valFraction <= 0 || valFraction >= 1 {
		return nil, fmt.Errorf("validation fraction must be in (0, 1), got %g", valFraction)
	}
	n := ds.Len()
	nVal := int(float64(n) * valFraction)
	if nVal == 0 {
		nVal = 1
	}
	nTrain := n - nVal
	if nTrain == 0 {
		return nil, fmt.Errorf("split leaves no training items (%d items, fraction %g)", n, valFraction)
	}

	trainImgs := ds.images[:nTrain]
	valImgs := ds.images[nTrain:]
	var trainLabels, valLabels [][]float32
	if ds.labels != nil {
		trainLabels = ds.labels[:nTrain]
		valLabels = ds.labels[nTrain:]
	}

	trainDS, err := NewInMemoryDataset(trainImgs, trainLabels, ds.ItemShape)
	if err != nil {
		return nil, err
	}
	valDS, err := NewInMemoryDataset(valImgs, valLabels, ds.ItemShape)
	if err != nil {
		return nil, err
	}
	train, err := NewDataLoader(trainDS, ds.ItemShape, batchSize, shuffle, seed)
	if err != nil {
		return nil, err
	}
	val, err := NewDataLoader(valDS, ds.ItemShape, batchSize, false, seed)
	if err != nil {
		return nil, err
	}
	return NewManager(train, val)
}
