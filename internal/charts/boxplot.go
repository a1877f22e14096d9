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

// boxes returns one Tukey box per numeric column, located at the column's
// index. Columns without finite values have a nil entry.
func boxes(t *analysis.Table, cls analysis.Classification) ([]*plotter.BoxPlot, error) {
	out := make([]*plotter.BoxPlot, len(cls.Numeric))
	drawn := 0
	for i, name := range cls.Numeric {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		vals := finite(col.Floats())
		if len(vals) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(vg.Points(28), float64(i), plotter.Values(vals))
		if err != nil {
			return nil, fmt.Errorf("box plot %q: %w", name, err)
		}
		b.FillColor = barColor
		b.MedianStyle.Width = vg.Points(2)
		b.GlyphStyle.Shape = draw.CircleGlyph{}
		out[i] = b
		drawn++
	}
	if drawn == 0 {
		return nil, fmt.Errorf("no finite values to plot")
	}
	return out, nil
}

// renderBoxplots draws one box per numeric column on a shared axis. Columns
// without finite values keep their slot but draw nothing.
func renderBoxplots(t *analysis.Table, cls analysis.Classification) ([]byte, error) {
	n := len(cls.Numeric)
	if n == 0 {
		return nil, fmt.Errorf("no numeric columns")
	}
	bs, err := boxes(t, cls)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Box plots"
	for _, b := range bs {
		if b != nil {
			p.Add(b)
		}
	}
	names := make([]string, n)
	for i, name := range cls.Numeric {
		names[i] = truncate(name, 18)
	}
	p.NominalX(names...)
	p.X.Min = math.Min(p.X.Min, -0.5)
	p.X.Max = math.Max(p.X.Max, float64(n)-0.5)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	width := vg.Points(math.Max(360, float64(120+70*n)))
	fig := newFigure(width, vg.Points(360))
	p.Draw(fig.dc)
	return fig.png()
}
