package charts

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
)

var (
	panelWidth  = vg.Points(360)
	panelHeight = vg.Points(240)
)

// histogramPlot builds one column's histogram. Columns without finite
// values get a placeholder panel.
func histogramPlot(name string, vals []float64, bins int) (*plot.Plot, error) {
	vals = finite(vals)
	if len(vals) == 0 {
		return placeholder(name, "no data"), nil
	}
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", name, err)
	}
	h.FillColor = barColor
	h.LineStyle.Color = barColor

	p := plot.New()
	p.Title.Text = truncate(name, 40)
	p.Y.Label.Text = "count"
	p.X.Tick.Label.Font.Size = vg.Points(8)
	p.Y.Tick.Label.Font.Size = vg.Points(8)
	p.Add(h)
	return p, nil
}

// renderHistograms tiles one histogram per numeric column into a single figure.
func renderHistograms(t *analysis.Table, cls analysis.Classification, bins int) ([]byte, error) {
	n := len(cls.Numeric)
	if n == 0 {
		return nil, fmt.Errorf("no numeric columns")
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
	}
	for i, name := range cls.Numeric {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		p, err := histogramPlot(name, col.Floats(), bins)
		if err != nil {
			return nil, err
		}
		plots[i/cols][i%cols] = p
	}

	fig := newFigure(vg.Length(cols)*panelWidth, vg.Length(rows)*panelHeight+vg.Points(30))
	body := fig.title("Distributions")
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Points(12), PadY: vg.Points(12),
		PadTop: vg.Points(4), PadBottom: vg.Points(8),
		PadLeft: vg.Points(8), PadRight: vg.Points(12),
	}
	canvases := plot.Align(plots, tiles, body)
	for r := range plots {
		for c, p := range plots[r] {
			if p != nil {
				p.Draw(canvases[r][c])
			}
		}
	}
	return fig.png()
}
