package tensor

import (
	"math/rand"
	"sync"
)

var (
	rngMu     sync.Mutex
	globalRng = rand.New(rand.NewSource(42))
)

// SetRandomSeed reseeds the package RNG used for random tensor creation
// and weight initialization.
func SetRandomSeed(seed int64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	globalRng = rand.New(rand.NewSource(seed))
}

// Zeros creates a zero-filled tensor.
func Zeros(shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	return New(make([]float32, n), shape...)
}

// Ones creates a tensor filled with ones.
func Ones(shape ...int) (*Tensor, error) {
	return Full(1, shape...)
}

// Full creates a tensor filled with value.
func Full(value float32, shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = value
	}
	return New(data, shape...)
}

// FromScalar creates a single-element tensor of shape [1].
func FromScalar(value float32) *Tensor {
	t, _ := New([]float32{value}, 1)
	return t
}

// Rand creates a tensor of uniform values in [0, 1).
func Rand(shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	data := make([]float32, n)
	rngMu.Lock()
	for i := range data {
		data[i] = globalRng.Float32()
	}
	rngMu.Unlock()
	return New(data, shape...)
}

// RandNorm creates a tensor of normally distributed values with the
// given mean and standard deviation.
func RandNorm(mean, std float32, shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	data := make([]float32, n)
	rngMu.Lock()
	for i := range data {
		data[i] = mean + std*float32(globalRng.NormFloat64())
	}
	rngMu.Unlock()
	return New(data, shape...)
}
