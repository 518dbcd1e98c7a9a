// Package optimizer implements gradient-descent optimizers over
// parameter tensors.
package optimizer

import (
	"fmt"
	"sort"

	"github.com/tilecoder/tilecoder/tensor"
)

// Optimizer updates bound parameter tensors from their accumulated
// gradients.
type Optimizer interface {
	Step() error
	ZeroGrad()
	LR() float64
	SetLR(lr float64)
	Name() string
	State() State
	LoadState(s State) error
}

// Kind selects an optimizer implementation.
type Kind int

// Adam is the zero value so an unset configuration gets the default
// optimizer.
const (
	Adam Kind = iota
	SGD
	RMSProp
)

func (k Kind) String() string {
	switch k {
	case SGD:
		return "sgd"
	case Adam:
		return "adam"
	case RMSProp:
		return "rmsprop"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindFromName maps an optimizer name back to its Kind.
func KindFromName(name string) (Kind, error) {
	switch name {
	case "sgd":
		return SGD, nil
	case "adam":
		return Adam, nil
	case "rmsprop":
		return RMSProp, nil
	default:
		return 0, fmt.Errorf("unknown optimizer %q", name)
	}
}

// State is a serializable optimizer snapshot: hyperparameters plus any
// per-parameter slot vectors (moments, velocities), keyed by slot name
// and indexed by parameter position.
type State struct {
	Kind  string                 `json:"kind"`
	LR    float64                `json:"lr"`
	Step  int                    `json:"step,omitempty"`
	Hyper map[string]float64     `json:"hyper,omitempty"`
	Slots map[string][][]float32 `json:"slots,omitempty"`
}

// allowedArgs maps each Kind to the hyperparameter names its
// constructor accepts. Construction filters the caller's argument map
// against this table: recognized keys are applied, everything else is
// dropped. This keeps one shared training-argument map usable across
// optimizer kinds.
var allowedArgs = map[Kind]map[string]bool{
	SGD: {
		"lr":           true,
		"momentum":     true,
		"weight_decay": true,
		"dampening":    true,
	},
	Adam: {
		"lr":           true,
		"beta1":        true,
		"beta2":        true,
		"eps":          true,
		"weight_decay": true,
	},
	RMSProp: {
		"lr":           true,
		"alpha":        true,
		"eps":          true,
		"momentum":     true,
		"weight_decay": true,
	},
}

// AllowedArgs returns the sorted hyperparameter names accepted by kind.
func AllowedArgs(kind Kind) []string {
	var names []string
	for name := range allowedArgs[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// filterArgs drops argument keys the kind does not accept.
func filterArgs(kind Kind, args map[string]float64) map[string]float64 {
	allowed := allowedArgs[kind]
	out := make(map[string]float64, len(args))
	for k, v := range args {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}

func argOr(args map[string]float64, key string, def float64) float64 {
	if v, ok := args[key]; ok {
		return v
	}
	return def
}

// New constructs an optimizer of the given kind over params. Unsupported
// keys in args are ignored.
func New(kind Kind, params []*tensor.Tensor, args map[string]float64) (Optimizer, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("optimizer requires at least one parameter")
	}
	a := filterArgs(kind, args)
	switch kind {
	case SGD:
		return newSGD(params, a)
	case Adam:
		return newAdam(params, a)
	case RMSProp:
		return newRMSProp(params, a)
	default:
		return nil, fmt.Errorf("unknown optimizer kind %v", kind)
	}
}

// applyWeightDecay folds L2 regularization into the gradient view.
func applyWeightDecay(p *tensor.Tensor, grad []float32, wd float64) []float32 {
	if wd == 0 {
		return grad
	}
	out := make([]float32, len(grad))
	for i, g := range grad {
		out[i] = g + float32(wd)*p.Data[i]
	}
	return out
}

func slotCopy(src [][]float32) [][]float32 {
	out := make([][]float32, len(src))
	for i, s := range src {
		out[i] = append([]float32(nil), s...)
	}
	return out
}

func loadSlot(dst [][]float32, src [][]float32, name string) error {
	if len(src) != len(dst) {
		return fmt.Errorf("slot %q has %d entries, expected %d", name, len(src), len(dst))
	}
	for i := range dst {
		if len(src[i]) != len(dst[i]) {
			return fmt.Errorf("slot %q entry %d has %d values, expected %d", name, i, len(src[i]), len(dst[i]))
		}
		copy(dst[i], src[i])
	}
	return nil
}
