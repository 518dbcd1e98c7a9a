package training

import "github.com/tilecoder/tilecoder/optimizer"

// PlateauController tracks validation-loss plateaus and drives both
// learning-rate decay and early stopping.
//
// The decay counter is reset only when a decay fires, not when the loss
// improves. An improvement therefore does not forgive earlier stall
// epochs; only an actual learning-rate cut does. The early-stop counter
// is never reset.
type PlateauController struct {
	reducePatience int
	factor         float64
	minLR          float64
	stopPatience   int

	lrNoImprove int
	earlyStop   int
}

// NewPlateauController builds a controller from a defaulted config.
func NewPlateauController(cfg Config) *PlateauController {
	return &PlateauController{
		reducePatience: cfg.ReduceLRPatience,
		factor:         cfg.ReduceLRFactor,
		minLR:          cfg.MinLR,
		stopPatience:   cfg.EarlyStopPatience,
	}
}

// Observe records one epoch's outcome. Non-improving epochs advance both
// counters.
func (p *PlateauController) Observe(improved bool) {
	if !improved {
		p.lrNoImprove++
		p.earlyStop++
	}
}

// MaybeReduceLR cuts the learning rate when the decay counter has
// reached its patience and the rate is still above the floor. The new
// rate is clamped at the floor. Returns the rate in effect and whether a
// cut fired.
func (p *PlateauController) MaybeReduceLR(opt optimizer.Optimizer) (float64, bool) {
	lr := opt.LR()
	if p.lrNoImprove < p.reducePatience || lr <= p.minLR {
		return lr, false
	}
	lr *= p.factor
	if lr < p.minLR {
		lr = p.minLR
	}
	opt.SetLR(lr)
	p.lrNoImprove = 0
	return lr, true
}

// ShouldStop reports whether the early-stop patience is exhausted.
func (p *PlateauController) ShouldStop() bool {
	return p.earlyStop >= p.stopPatience
}

// Counts returns the current decay and early-stop counters.
func (p *PlateauController) Counts() (lrNoImprove, earlyStop int) {
	return p.lrNoImprove, p.earlyStop
}

// Restore reinstates counters from a checkpoint.
func (p *PlateauController) Restore(lrNoImprove, earlyStop int) {
	p.lrNoImprove = lrNoImprove
	p.earlyStop = earlyStop
}
