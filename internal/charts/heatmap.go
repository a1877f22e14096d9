package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
)

// corrGrid exposes a correlation matrix as a heat map grid. Row 0 of the
// grid is the last matrix row so the first column reads at the top.
type corrGrid struct {
	m *analysis.CorrMatrix
}

func (g corrGrid) Dims() (c, r int) {
	n := len(g.m.Columns)
	return n, n
}

func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }
func (g corrGrid) Min() float64       { return -1 }
func (g corrGrid) Max() float64       { return 1 }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(len(g.m.Columns)-1-r, c) }

// coolwarm is the diverging map used for coefficients in [-1, 1].
func coolwarm() palette.DivergingColorMap {
	cm := moreland.SmoothBlueRed()
	cm.SetMax(1)
	cm.SetMin(-1)
	return cm
}

// annotations labels every cell with its coefficient, or "nan".
func annotations(g corrGrid) (*plotter.Labels, error) {
	cols, rows := g.Dims()
	xyl := plotter.XYLabels{XYs: make(plotter.XYs, 0, cols*rows)}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.Z(c, r)
			label := "nan"
			if !math.IsNaN(v) {
				label = fmt.Sprintf("%.2f", v)
			}
			xyl.XYs = append(xyl.XYs, plotter.XY{X: g.X(c), Y: g.Y(r)})
			xyl.Labels = append(xyl.Labels, label)
		}
	}
	l, err := plotter.NewLabels(xyl)
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
		l.TextStyle[i].Font.Size = vg.Points(9)
		if v := g.Z(i%cols, i/cols); math.Abs(v) > 0.6 {
			l.TextStyle[i].Color = color.White
		}
	}
	return l, nil
}

// renderHeatmap draws an annotated correlation matrix with a colour bar.
func renderHeatmap(m *analysis.CorrMatrix) ([]byte, error) {
	n := len(m.Columns)
	if n == 0 {
		return nil, fmt.Errorf("empty correlation matrix")
	}
	g := corrGrid{m: m}
	cm := coolwarm()
	pal := cm.Palette(255)
	colors := pal.Colors()

	hm := plotter.NewHeatMap(g, pal)
	hm.NaN = nanGray
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]
	labels, err := annotations(g)
	if err != nil {
		return nil, fmt.Errorf("annotate correlation: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.Add(hm, labels)
	xnames := make([]string, n)
	ynames := make([]string, n)
	for i, c := range m.Columns {
		xnames[i] = truncate(c, 14)
		ynames[n-1-i] = truncate(c, 16)
	}
	p.NominalX(xnames...)
	p.NominalY(ynames...)
	if n > 4 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	bar.HideX()
	bar.Y.Tick.Label.Font.Size = vg.Points(8)

	cell := math.Min(72, math.Max(32, 420/float64(n)))
	side := vg.Points(cell*float64(n) + 140)
	barWidth := vg.Points(70)
	fig := newFigure(side+barWidth, side)
	p.Draw(draw.Crop(fig.dc, 0, -barWidth, 0, 0))
	bar.Draw(draw.Crop(fig.dc, side+vg.Points(10), -vg.Points(20), vg.Points(60), -vg.Points(30)))
	return fig.png()
}
