package optimizer

import (
	"fmt"
	"math"

	"github.com/tilecoder/tilecoder/tensor"
)

// rmsprop implements RMSProp with an exponentially decaying average of
// squared gradients and optional momentum.
type rmsprop struct {
	params      []*tensor.Tensor
	lr          float64
	alpha       float64
	eps         float64
	momentum    float64
	weightDecay float64
	sq          [][]float32
	buf         [][]float32
}

func newRMSProp(params []*tensor.Tensor, args map[string]float64) (*rmsprop, error) {
	lr := argOr(args, "lr", 1e-3)
	if lr <= 0 {
		return nil, fmt.Errorf("rmsprop: learning rate must be positive, got %g", lr)
	}
	alpha := argOr(args, "alpha", 0.99)
	if alpha < 0 || alpha >= 1 {
		return nil, fmt.Errorf("rmsprop: alpha must be in [0, 1), got %g", alpha)
	}
	r := &rmsprop{
		params:      params,
		lr:          lr,
		alpha:       alpha,
		eps:         argOr(args, "eps", 1e-8),
		momentum:    argOr(args, "momentum", 0),
		weightDecay: argOr(args, "weight_decay", 0),
	}
	r.sq = make([][]float32, len(params))
	r.buf = make([][]float32, len(params))
	for i, p := range params {
		r.sq[i] = make([]float32, p.NumElems())
		r.buf[i] = make([]float32, p.NumElems())
	}
	return r, nil
}

func (r *rmsprop) Step() error {
	for i, p := range r.params {
		g := p.Grad()
		if g == nil {
			continue
		}
		grad := applyWeightDecay(p, g.Data, r.weightDecay)
		sq, buf := r.sq[i], r.buf[i]
		for j, gj := range grad {
			sq[j] = float32(r.alpha)*sq[j] + float32(1-r.alpha)*gj*gj
			upd := float64(gj) / (math.Sqrt(float64(sq[j])) + r.eps)
			if r.momentum > 0 {
				buf[j] = float32(r.momentum)*buf[j] + float32(upd)
				p.Data[j] -= float32(r.lr) * buf[j]
			} else {
				p.Data[j] -= float32(r.lr * upd)
			}
		}
	}
	return nil
}

func (r *rmsprop) ZeroGrad()        { tensor.ZeroGrads(r.params) }
func (r *rmsprop) LR() float64      { return r.lr }
func (r *rmsprop) SetLR(lr float64) { r.lr = lr }
func (r *rmsprop) Name() string     { return RMSProp.String() }

func (r *rmsprop) State() State {
	return State{
		Kind: r.Name(),
		LR:   r.lr,
		Hyper: map[string]float64{
			"alpha":        r.alpha,
			"eps":          r.eps,
			"momentum":     r.momentum,
			"weight_decay": r.weightDecay,
		},
		Slots: map[string][][]float32{
			"sq":  slotCopy(r.sq),
			"buf": slotCopy(r.buf),
		},
	}
}

func (r *rmsprop) LoadState(st State) error {
	if st.Kind != r.Name() {
		return fmt.Errorf("state kind %q does not match %q", st.Kind, r.Name())
	}
	r.lr = st.LR
	if sq, ok := st.Slots["sq"]; ok {
		if err := loadSlot(r.sq, sq, "sq"); err != nil {
			return err
		}
	}
	if buf, ok := st.Slots["buf"]; ok {
		if err := loadSlot(r.buf, buf, "buf"); err != nil {
			return err
		}
	}
	return nil
}
