package optimizer

import (
	"fmt"
	"math"

	"github.com/tilecoder/tilecoder/tensor"
)

// adam implements the Adam optimizer with bias-corrected first and
// second moment estimates.
type adam struct {
	params      []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	step        int
	m           [][]float32
	v           [][]float32
}

func newAdam(params []*tensor.Tensor, args map[string]float64) (*adam, error) {
	lr := argOr(args, "lr", 1e-3)
	if lr <= 0 {
		return nil, fmt.Errorf("adam: learning rate must be positive, got %g", lr)
	}
	beta1 := argOr(args, "beta1", 0.9)
	beta2 := argOr(args, "beta2", 0.999)
	if beta1 < 0 || beta1 >= 1 || beta2 < 0 || beta2 >= 1 {
		return nil, fmt.Errorf("adam: betas must be in [0, 1), got %g and %g", beta1, beta2)
	}
	a := &adam{
		params:      params,
		lr:          lr,
		beta1:       beta1,
		beta2:       beta2,
		eps:         argOr(args, "eps", 1e-8),
		weightDecay: argOr(args, "weight_decay", 0),
	}
	a.m = make([][]float32, len(params))
	a.v = make([][]float32, len(params))
	for i, p := range params {
		a.m[i] = make([]float32, p.NumElems())
		a.v[i] = make([]float32, p.NumElems())
	}
	return a, nil
}

func (a *adam) Step() error {
	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))
	for i, p := range a.params {
		g := p.Grad()
		if g == nil {
			continue
		}
		grad := applyWeightDecay(p, g.Data, a.weightDecay)
		m, v := a.m[i], a.v[i]
		for j, gj := range grad {
			m[j] = float32(a.beta1)*m[j] + float32(1-a.beta1)*gj
			v[j] = float32(a.beta2)*v[j] + float32(1-a.beta2)*gj*gj
			mHat := float64(m[j]) / bc1
			vHat := float64(v[j]) / bc2
			p.Data[j] -= float32(a.lr * mHat / (math.Sqrt(vHat) + a.eps))
		}
	}
	return nil
}

func (a *adam) ZeroGrad()        { tensor.ZeroGrads(a.params) }
func (a *adam) LR() float64      { return a.lr }
func (a *adam) SetLR(lr float64) { a.lr = lr }
func (a *adam) Name() string     { return Adam.String() }

func (a *adam) State() State {
	return State{
		Kind: a.Name(),
		LR:   a.lr,
		Step: a.step,
		Hyper: map[string]float64{
			"beta1":        a.beta1,
			"beta2":        a.beta2,
			"eps":          a.eps,
			"weight_decay": a.weightDecay,
		},
		Slots: map[string][][]float32{
			"m": slotCopy(a.m),
			"v": slotCopy(a.v),
		},
	}
}

func (a *adam) LoadState(st State) error {
	if st.Kind != a.Name() {
		return fmt.Errorf("state kind %q does not match %q", st.Kind, a.Name())
	}
	a.lr = st.LR
	a.step = st.Step
	if m, ok := st.Slots["m"]; ok {
		if err := loadSlot(a.m, m, "m"); err != nil {
			return err
		}
	}
	if v, ok := st.Slots["v"]; ok {
		if err := loadSlot(a.v, v, "v"); err != nil {
			return err
		}
	}
	return nil
}
