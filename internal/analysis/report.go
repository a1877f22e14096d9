package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Markdown renders the summary as a compact plain-text report, suitable for
// pasting into notes or tickets.
func (s *Summary) Markdown(name string) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		fmt.Fprintf(&b, "File: %s\n", name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", s.RowCount)
	fmt.Fprintf(&b, "Columns: %d (%d numeric, %d categorical)\n\n", s.ColumnCount, len(s.Numeric), len(s.Categorical))

	b.WriteString("[SCHEMA]\n")
	for _, col := range s.ColumnTypes.Keys() {
		kind, _ := s.ColumnTypes.Get(col)
		missing, _ := s.MissingValues.Get(col)
		missPct := 0.0
		if s.RowCount > 0 {
			missPct = float64(missing) * 100 / float64(s.RowCount)
		}
		fmt.Fprintf(&b, "- %s: %s (missing %d, %.1f%%)", safeCell(col), kind, missing, missPct)
		if d, ok := s.Statistics.Get(col); ok {
			fmt.Fprintf(&b, "; min %s, max %s, mean %s, std %s", d.Min, d.Max, d.Mean, d.Std)
		}
		b.WriteString("\n")
	}

	if s.Preview.Len() > 0 {
		b.WriteString("\n[PREVIEW]\n")
		cols := s.Preview.Keys()
		head := make([]string, len(cols))
		for i, c := range cols {
			head[i] = safeCell(c)
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(head, " | "))
		fmt.Fprintf(&b, "|%s\n", strings.Repeat(" --- |", len(cols)))
		rows := 0
		if first, ok := s.Preview.Get(cols[0]); ok {
			rows = len(first)
		}
		for r := 0; r < rows; r++ {
			cells := make([]string, len(cols))
			for i, c := range cols {
				vals, _ := s.Preview.Get(c)
				cells[i] = previewCell(vals, r)
			}
			fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
		}
	}
	return b.String()
}

// String formats a statistic for reports; invalid values read as "n/a".
func (s Stat) String() string {
	if !s.Valid() {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", float64(s))
}

func previewCell(vals []any, r int) string {
	if r >= len(vals) || vals[r] == nil {
		return ""
	}
	switch v := vals[r].(type) {
	case Stat:
		if !v.Valid() {
			return ""
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case string:
		return safeCell(v)
	default:
		return fmt.Sprint(v)
	}
}

func safeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}
