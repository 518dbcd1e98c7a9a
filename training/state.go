package training

import (
	"math"

	"github.com/tilecoder/tilecoder/nn"
)

// TrainerState collects the mutable training-progress fields in one
// place: the epoch cursor, the best validation loss seen, and the
// snapshot of the weights that produced it.
type TrainerState struct {
	// Epoch is the number of completed epochs. During Fit it points at
	// the epoch about to run; after Fit it names the final epoch.
	Epoch int

	// BestLoss is the lowest validation loss observed so far.
	BestLoss float64

	// BestState is a deep snapshot of the model weights at BestLoss.
	// Nil until the first improvement.
	BestState []nn.NamedParam

	// EarlyStopped reports whether the last Fit ended early.
	EarlyStopped bool
}

func newTrainerState() TrainerState {
	return TrainerState{BestLoss: math.Inf(1)}
}
