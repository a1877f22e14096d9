package charts

import (
	"bytes"
	"fmt"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
)

// maxSlices bounds how many categories get their own slice; the remainder
// is folded into "Other".
const maxSlices = 11

// Share is one category's frequency within a column.
type Share struct {
	Label string
	Count int
}

// valueCounts tallies non-missing values, most frequent first, ties by label.
func valueCounts(col *analysis.Column) []Share {
	counts := make(map[string]int)
	for _, c := range col.Cells {
		if c.Missing {
			continue
		}
		counts[c.Str]++
	}
	out := make([]Share, 0, len(counts))
	for k, v := range counts {
		out = append(out, Share{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func foldShares(shares []Share, limit int) []Share {
	if len(shares) <= limit {
		return shares
	}
	rest := 0
	for _, s := range shares[limit:] {
		rest += s.Count
	}
	out := append([]Share(nil), shares[:limit]...)
	return append(out, Share{Label: "Other", Count: rest})
}

// renderPie draws the value-frequency distribution of one categorical column.
func renderPie(col *analysis.Column) ([]byte, error) {
	shares := foldShares(valueCounts(col), maxSlices)
	total := 0
	for _, s := range shares {
		total += s.Count
	}
	if total == 0 {
		return nil, fmt.Errorf("column %q has no values", col.Name)
	}
	values := make([]chart.Value, len(shares))
	for i, s := range shares {
		pct := 100 * float64(s.Count) / float64(total)
		values[i] = chart.Value{
			Value: float64(s.Count),
			Label: fmt.Sprintf("%s %.1f%%", truncate(s.Label, 16), pct),
		}
	}
	pc := chart.PieChart{
		Title:      truncate("Distribution of "+col.Name, 48),
		Width:      512,
		Height:     512,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 24, Right: 24, Bottom: 24}},
		Values:     values,
	}
	var buf bytes.Buffer
	if err := pc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie %q: %w", col.Name, err)
	}
	return buf.Bytes(), nil
}
