package optimizer

import (
	"fmt"

	"github.com/tilecoder/tilecoder/tensor"
)

// sgd implements stochastic gradient descent with optional momentum.
type sgd struct {
	params      []*tensor.Tensor
	lr          float64
	momentum    float64
	dampening   float64
	weightDecay float64
	velocities  [][]float32
}

func newSGD(params []*tensor.Tensor, args map[string]float64) (*sgd, error) {
	lr := argOr(args, "lr", 1e-3)
	if lr <= 0 {
		return nil, fmt.Errorf("sgd: learning rate must be positive, got %g", lr)
	}
	s := &sgd{
		params:      params,
		lr:          lr,
		momentum:    argOr(args, "momentum", 0),
		dampening:   argOr(args, "dampening", 0),
		weightDecay: argOr(args, "weight_decay", 0),
	}
	s.velocities = make([][]float32, len(params))
	for i, p := range params {
		s.velocities[i] = make([]float32, p.NumElems())
	}
	return s, nil
}

func (s *sgd) Step() error {
	for i, p := range s.params {
		g := p.Grad()
		if g == nil {
			continue
		}
		grad := applyWeightDecay(p, g.Data, s.weightDecay)
		if s.momentum != 0 {
			v := s.velocities[i]
			for j := range grad {
				v[j] = float32(s.momentum)*v[j] + float32(1-s.dampening)*grad[j]
			}
			grad = v
		}
		for j := range p.Data {
			p.Data[j] -= float32(s.lr) * grad[j]
		}
	}
	return nil
}

func (s *sgd) ZeroGrad()        { tensor.ZeroGrads(s.params) }
func (s *sgd) LR() float64      { return s.lr }
func (s *sgd) SetLR(lr float64) { s.lr = lr }
func (s *sgd) Name() string     { return SGD.String() }

func (s *sgd) State() State {
	return State{
		Kind: s.Name(),
		LR:   s.lr,
		Hyper: map[string]float64{
			"momentum":     s.momentum,
			"dampening":    s.dampening,
			"weight_decay": s.weightDecay,
		},
		Slots: map[string][][]float32{"velocity": slotCopy(s.velocities)},
	}
}

func (s *sgd) LoadState(st State) error {
	if st.Kind != s.Name() {
		return fmt.Errorf("state kind %q does not match %q", st.Kind, s.Name())
	}
	s.lr = st.LR
	if v, ok := st.Slots["velocity"]; ok {
		if err := loadSlot(s.velocities, v, "velocity"); err != nil {
			return err
		}
	}
	return nil
}
