package analysis

import "math"

// CorrMatrix is a square Pearson correlation matrix over named columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"-"`
}

// At returns the coefficient for columns i and j.
func (m *CorrMatrix) At(i, j int) float64 { return m.Values[i][j] }

// Correlate computes pairwise Pearson coefficients using, for every pair,
// only the rows where both values are present. A pair with fewer than two
// common rows or zero variance yields NaN.
func Correlate(t *Table, names []string) *CorrMatrix {
	cols := make([]*Column, 0, len(names))
	kept := make([]string, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok || !c.Kind.Numeric() {
			continue
		}
		cols = append(cols, c)
		kept = append(kept, n)
	}
	k := len(cols)
	m := &CorrMatrix{Columns: kept, Values: make([][]float64, k)}
	for i := range m.Values {
		m.Values[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r := pearson(cols[i], cols[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func usable(c Cell) bool {
	return !c.Missing && !math.IsNaN(c.Num) && !math.IsInf(c.Num, 0)
}

func pearson(a, b *Column) float64 {
	n := len(a.Cells)
	if len(b.Cells) < n {
		n = len(b.Cells)
	}
	var cnt int
	var sx, sy float64
	for i := 0; i < n; i++ {
		if usable(a.Cells[i]) && usable(b.Cells[i]) {
			cnt++
			sx += a.Cells[i].Num
			sy += b.Cells[i].Num
		}
	}
	if cnt < 2 {
		return math.NaN()
	}
	mx, my := sx/float64(cnt), sy/float64(cnt)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		if usable(a.Cells[i]) && usable(b.Cells[i]) {
			dx := a.Cells[i].Num - mx
			dy := b.Cells[i].Num - my
			sxy += dx * dy
			sxx += dx * dx
			syy += dy * dy
		}
	}
	den := math.Sqrt(sxx * syy)
	if den == 0 || math.IsNaN(den) {
		return math.NaN()
	}
	r := sxy / den
	return math.Max(-1, math.Min(1, r))
}
