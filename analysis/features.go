// Package analysis computes summary statistics over inferred embeddings
// for downstream feature analysis.
package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tilecoder/tilecoder/tensor"
)

// FeatureStat summarizes one embedding dimension across a dataset.
type FeatureStat struct {
	Dim  int
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// FeatureStats computes per-dimension statistics over a [rows, dims]
// embedding tensor.
func FeatureStats(embeddings *tensor.Tensor) ([]FeatureStat, error) {
	if embeddings == nil {
		return nil, fmt.Errorf("nil embeddings")
	}
	if embeddings.Dims() != 2 {
		return nil, fmt.Errorf("embeddings must be 2-D, got shape %v", embeddings.Shape)
	}
	rows, dims := embeddings.Shape[0], embeddings.Shape[1]
	m := mat.NewDense(rows, dims, embeddings.Float64s())

	stats := make([]FeatureStat, dims)
	col := make([]float64, rows)
	for j := 0; j < dims; j++ {
		mat.Col(col, j, m)
		mean, std := stat.MeanStdDev(col, nil)
		stats[j] = FeatureStat{
			Dim:  j,
			Mean: mean,
			Std:  std,
			Min:  floats.Min(col),
			Max:  floats.Max(col),
		}
	}
	return stats, nil
}

// WriteCSV writes feature statistics as a table.
func WriteCSV(stats []FeatureStat, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"dim", "mean", "std", "min", "max"}); err != nil {
		return err
	}
	for _, s := range stats {
		record := []string{
			strconv.Itoa(s.Dim),
			strconv.FormatFloat(s.Mean, 'g', -1, 64),
			strconv.FormatFloat(s.Std, 'g', -1, 64),
			strconv.FormatFloat(s.Min, 'g', -1, 64),
			strconv.FormatFloat(s.Max, 'g', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
