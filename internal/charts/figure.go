package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	barColor = color.RGBA{R: 76, G: 114, B: 176, A: 255}
	nanGray  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// figure is a white raster canvas holding one or more plots.
type figure struct {
	img *vgimg.Canvas
	dc  draw.Canvas
}

func newFigure(w, h vg.Length) *figure {
	img := vgimg.New(w, h)
	return &figure{img: img, dc: draw.New(img)}
}

// title writes a centered heading and returns the canvas left below it.
func (f *figure) title(s string) draw.Canvas {
	sty := text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, 14),
		XAlign:  draw.XCenter,
		YAlign:  draw.YTop,
		Handler: plot.DefaultTextHandler,
	}
	c := f.dc
	c.FillText(sty, vg.Point{X: c.Center().X, Y: c.Max.Y - vg.Points(6)}, s)
	return draw.Crop(c, 0, 0, 0, -(sty.Height(s) + vg.Points(12)))
}

func (f *figure) png() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: f.img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// placeholder is an axis-less plot whose title explains why nothing is drawn.
func placeholder(name, msg string) *plot.Plot {
	p := plot.New()
	p.Title.Text = truncate(name, 40) + " (" + msg + ")"
	p.Title.TextStyle.Color = color.Gray{Y: 90}
	p.HideAxes()
	return p
}

// truncate shortens s to at most n runes, marking the cut with "..".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 3 {
		return s
	}
	return string(r[:n-2]) + ".."
}

func finite(vals []float64) []float64 {
	out := vals[:0:0]
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
