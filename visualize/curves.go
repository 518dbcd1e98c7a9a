// Package visualize renders training metrics as plots and pushes them to
// external visualization services.
package visualize

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/tilecoder/tilecoder/training"
)

// LossCurves renders every recorded series in the history as a line per
// key and writes the plot to path (format chosen by extension, e.g.
// .png or .svg).
func LossCurves(h *training.History, title, path string) error {
	keys := h.Keys()
	if len(keys) == 0 {
		return fmt.Errorf("history has no recorded series")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, key := range keys {
		series := h.Series(key)
		xys := make(plotter.XYs, len(series))
		for j, v := range series {
			xys[j] = plotter.XY{X: float64(j + 1), Y: v}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("series %q: %v", key, err)
		}
		line.Width = vg.Points(1.2)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(key, line)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %v", err)
	}
	return nil
}
