package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// MetricValue is one observed metric: either a plain scalar or an
// ordered list of components. List values are recorded as separate
// series with 1-based suffixes.
type MetricValue struct {
	Scalar     float64
	Components []float64
}

// Scalar wraps a plain metric value.
func Scalar(v float64) MetricValue {
	return MetricValue{Scalar: v}
}

// List wraps a multi-component metric value.
func List(vs ...float64) MetricValue {
	return MetricValue{Components: vs}
}

// History is the trainer's metrics ledger. Metric names are fixed at
// construction; series keys are derived as "{phase}_{name}" (scalars) or
// "{phase}_{name}{i+1}" (list components) and appear in first-recorded
// order.
type History struct {
	names  []string
	order  []string
	series map[string][]float64
}

// NewHistory creates a ledger over the given metric names.
func NewHistory(names []string) *History {
	return &History{
		names:  append([]string(nil), names...),
		series: make(map[string][]float64),
	}
}

// Names returns the configured metric names.
func (h *History) Names() []string {
	return append([]string(nil), h.names...)
}

// Record appends one epoch's values under the given phase. values must
// be parallel to the configured metric names.
func (h *History) Record(phase string, values []MetricValue) error {
	if phase == "" {
		return fmt.Errorf("%w: empty phase", ErrInvalidInput)
	}
	if len(values) != len(h.names) {
		return fmt.Errorf("%w: %d values for %d metric names", ErrInvalidInput, len(values), len(h.names))
	}
	for i, v := range values {
		name := h.names[i]
		if v.Components != nil {
			for j, c := range v.Components {
				h.append(fmt.Sprintf("%s_%s%d", phase, name, j+1), c)
			}
			continue
		}
		h.append(fmt.Sprintf("%s_%s", phase, name), v.Scalar)
	}
	return nil
}

func (h *History) append(key string, v float64) {
	if _, ok := h.series[key]; !ok {
		h.order = append(h.order, key)
	}
	h.series[key] = append(h.series[key], v)
}

// Keys returns all series keys in first-recorded order.
func (h *History) Keys() []string {
	return append([]string(nil), h.order...)
}

// Series returns the recorded values for key.
func (h *History) Series(key string) []float64 {
	return h.series[key]
}

// Last returns the most recent value for key.
func (h *History) Last(key string) (float64, bool) {
	s := h.series[key]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// Best returns the minimum recorded value for key.
func (h *History) Best(key string) (float64, bool) {
	s := h.series[key]
	if len(s) == 0 {
		return 0, false
	}
	best := s[0]
	for _, v := range s[1:] {
		if v < best {
			best = v
		}
	}
	return best, true
}

// LastExcludingPrefix returns the latest value of every key that does
// not start with prefix. Used to push non-validation metrics to a sink.
func (h *History) LastExcludingPrefix(prefix string) map[string]float64 {
	out := make(map[string]float64)
	for _, key := range h.order {
		if strings.HasPrefix(key, prefix) {
			continue
		}
		if v, ok := h.Last(key); ok {
			out[key] = v
		}
	}
	return out
}

// WriteCSV writes the ledger as a table, one row per epoch. Series
// shorter than the longest are padded with NaN.
func (h *History) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(h.order); err != nil {
		return err
	}
	rows := 0
	for _, key := range h.order {
		if n := len(h.series[key]); n > rows {
			rows = n
		}
	}
	record := make([]string, len(h.order))
	for r := 0; r < rows; r++ {
		for i, key := range h.order {
			s := h.series[key]
			if r < len(s) {
				record[i] = strconv.FormatFloat(s[r], 'g', -1, 64)
			} else {
				record[i] = strconv.FormatFloat(math.NaN(), 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
