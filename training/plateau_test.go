package training

import (
	"math"
	"testing"

	"github.com/tilecoder/tilecoder/optimizer"
	"github.com/tilecoder/tilecoder/tensor"
)

func newTestOptimizer(t *testing.T, lr float64) optimizer.Optimizer {
	t.Helper()
	x := tensor.FromScalar(1).RequiresGrad(true)
	opt, err := optimizer.New(optimizer.SGD, []*tensor.Tensor{x}, map[string]float64{"lr": lr})
	if err != nil {
		t.Fatalf("optimizer.New failed: %v", err)
	}
	return opt
}

func TestDecayFiresAtPatience(t *testing.T) {
	cfg := Config{ReduceLRPatience: 3, ReduceLRFactor: 0.1, MinLR: 1e-8, EarlyStopPatience: 100}
	cfg.ApplyDefaults()
	p := NewPlateauController(cfg)
	opt := newTestOptimizer(t, 0.1)

	for i := 0; i < 2; i++ {
		p.Observe(false)
		if _, reduced := p.MaybeReduceLR(opt); reduced {
			t.Fatalf("decay fired after %d non-improving epochs", i+1)
		}
	}
	p.Observe(false)
	lr, reduced := p.MaybeReduceLR(opt)
	if !reduced {
		t.Fatalf("decay did not fire at patience")
	}
	if math.Abs(lr-0.01) > 1e-12 {
		t.Errorf("lr = %v, want 0.01", lr)
	}
	// The decay counter resets after a cut.
	if lrCount, _ := p.Counts(); lrCount != 0 {
		t.Errorf("lr counter = %d, want 0 after decay", lrCount)
	}
}

func TestImprovementDoesNotResetDecayCounter(t *testing.T) {
	cfg := Config{ReduceLRPatience: 2, EarlyStopPatience: 100}
	cfg.ApplyDefaults()
	p := NewPlateauController(cfg)

	p.Observe(false)
	p.Observe(true) // improvement leaves the counter at 1
	if lrCount, _ := p.Counts(); lrCount != 1 {
		t.Fatalf("lr counter = %d after improvement, want 1", lrCount)
	}
	p.Observe(false)
	opt := newTestOptimizer(t, 0.1)
	if _, reduced := p.MaybeReduceLR(opt); !reduced {
		t.Errorf("decay should fire: stall epochs accumulate across improvements")
	}
}

func TestDecayClampsAtMinLR(t *testing.T) {
	cfg := Config{ReduceLRPatience: 1, ReduceLRFactor: 0.1, MinLR: 1e-8, EarlyStopPatience: 100}
	cfg.ApplyDefaults()
	p := NewPlateauController(cfg)
	opt := newTestOptimizer(t, 2e-8)

	p.Observe(false)
	lr, reduced := p.MaybeReduceLR(opt)
	if !reduced || lr != 1e-8 {
		t.Fatalf("lr = %v, reduced = %v; want clamp at 1e-8", lr, reduced)
	}

	// At the floor, no further cuts fire.
	p.Observe(false)
	if _, reduced := p.MaybeReduceLR(opt); reduced {
		t.Errorf("decay fired below the floor")
	}
	if opt.LR() != 1e-8 {
		t.Errorf("lr = %v, want 1e-8", opt.LR())
	}
}

func TestShouldStop(t *testing.T) {
	cfg := Config{EarlyStopPatience: 3, ReduceLRPatience: 100}
	cfg.ApplyDefaults()
	p := NewPlateauController(cfg)

	for i := 0; i < 2; i++ {
		p.Observe(false)
		if p.ShouldStop() {
			t.Fatalf("ShouldStop true after %d epochs", i+1)
		}
	}
	p.Observe(true) // improvements never rewind the early-stop counter
	p.Observe(false)
	if !p.ShouldStop() {
		t.Errorf("ShouldStop false after patience exhausted")
	}
}

func TestRestoreCounters(t *testing.T) {
	cfg := DefaultConfig()
	p := NewPlateauController(cfg)
	p.Restore(3, 7)
	lrCount, stopCount := p.Counts()
	if lrCount != 3 || stopCount != 7 {
		t.Errorf("Counts = (%d, %d), want (3, 7)", lrCount, stopCount)
	}
}
