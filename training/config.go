package training

import "github.com/tilecoder/tilecoder/optimizer"

// Config holds the trainer's hyperparameters. Zero fields are filled by
// ApplyDefaults; explicitly set values are never overridden.
type Config struct {
	// LR seeds the optimizer's learning rate. Zero defers to the
	// optimizer's own default.
	LR float64

	MaxEpochs         int
	ReduceLRPatience  int
	ReduceLRFactor    float64
	EarlyStopPatience int
	MinLR             float64

	// Optimizer selects the optimizer kind (Adam by default).
	// OptimizerArgs are filtered per kind at construction.
	Optimizer     optimizer.Kind
	OptimizerArgs map[string]float64

	// MetricsNames names the loss terms in the order the loss function
	// returns them.
	MetricsNames []string
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields in place. Calling it again is a
// no-op.
func (c *Config) ApplyDefaults() {
	if c.ReduceLRPatience == 0 {
		c.ReduceLRPatience = 4
	}
	if c.ReduceLRFactor == 0 {
		c.ReduceLRFactor = 0.1
	}
	if c.EarlyStopPatience == 0 {
		c.EarlyStopPatience = 12
	}
	if c.MinLR == 0 {
		c.MinLR = 1e-8
	}
	if c.MaxEpochs == 0 {
		c.MaxEpochs = 100
	}
	if len(c.MetricsNames) == 0 {
		c.MetricsNames = []string{"loss"}
	}
}
