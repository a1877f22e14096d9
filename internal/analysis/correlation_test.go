package analysis

import (
	"math"
	"testing"
)

func TestCorrelateSingleColumn(t *testing.T) {
	tbl := readRows(t, []string{"a,b", "1,x", "2,y", "3,x"}, DefaultOptions())
	m := Correlate(tbl, Classify(tbl).Numeric)
	if len(m.Columns) != 1 || m.At(0, 0) != 1 {
		t.Fatalf("matrix = %+v", m)
	}
}

func TestCorrelatePairwiseComplete(t *testing.T) {
	tbl := readRows(t, []string{
		"x,y,z,k",
		"1,2,5,1",
		"2,4,,1",
		"3,6,1,1",
		"4,,3,1",
	}, DefaultOptions())
	m := Correlate(tbl, []string{"x", "y", "z", "k", "missing"})
	if len(m.Columns) != 4 {
		t.Fatalf("columns = %v", m.Columns)
	}
	if !almostEqual(m.At(0, 1), 1, 1e-12) || m.At(0, 1) != m.At(1, 0) {
		t.Fatalf("r(x,y) = %v", m.At(0, 1))
	}
	// x,z over rows 1,3,4: (1,5),(3,1),(4,3)
	if !almostEqual(m.At(0, 2), -0.6546536707, 1e-9) {
		t.Fatalf("r(x,z) = %v", m.At(0, 2))
	}
	if !math.IsNaN(m.At(3, 3)) || !math.IsNaN(m.At(0, 3)) {
		t.Fatalf("constant column should give NaN: %v", m.Values[3])
	}
}
