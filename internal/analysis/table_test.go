package analysis

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var mixedRows = []string{
	"id;price;in_stock;city;note",
	"1;9,5;true;Paris;",
	"2;NA;false;Lyon;fragile",
	"3;12.25;true;Paris;n/a",
	"4;7;false;Nice;ok",
}

func readRows(t *testing.T, rows []string, opt Options) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(strings.Join(rows, "\n")), opt)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return tbl
}

func columnKind(t *Table, name string) Kind {
	c, ok := t.Column(name)
	if !ok {
		return ""
	}
	return c.Kind
}

func TestReadCSVInfersKinds(t *testing.T) {
	opt := DefaultOptions()
	opt.Delimiter = ';'
	tbl := readRows(t, mixedRows, opt)
	if tbl.Rows() != 4 {
		t.Fatalf("rows = %d, want 4", tbl.Rows())
	}
	want := map[string]Kind{
		"id":       KindInt,
		"price":    KindObject, // "9,5" is not a float
		"in_stock": KindBool,
		"city":     KindObject,
		"note":     KindObject,
	}
	for name, k := range want {
		if got := columnKind(tbl, name); got != k {
			t.Fatalf("kind(%s) = %q, want %q", name, got, k)
		}
	}
	note, _ := tbl.Column("note")
	if note.Missing() != 2 {
		t.Fatalf("note missing = %d, want 2", note.Missing())
	}
}

func TestReadCSVPromotesIntWithGapsToFloat(t *testing.T) {
	tbl := readRows(t, []string{"n,m", "1,1", ",2", "3,3"}, DefaultOptions())
	if k := columnKind(tbl, "n"); k != KindFloat {
		t.Fatalf("kind(n) = %q, want float64", k)
	}
	if k := columnKind(tbl, "m"); k != KindInt {
		t.Fatalf("kind(m) = %q, want int64", k)
	}
	n, _ := tbl.Column("n")
	if got := n.Floats(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("floats = %v", got)
	}
}

func TestReadCSVAllMissingIsFloat(t *testing.T) {
	tbl := readRows(t, []string{"score", "NaN", "NaN"}, DefaultOptions())
	if k := columnKind(tbl, "score"); k != KindFloat {
		t.Fatalf("kind = %q, want float64", k)
	}
}

func TestReadCSVSniffsDelimiter(t *testing.T) {
	opt := DefaultOptions()
	opt.Delimiter = 0
	tbl := readRows(t, []string{"a\tb\tc", "1\t2\t3"}, opt)
	if got := strings.Join(tbl.Names(), ","); got != "a,b,c" {
		t.Fatalf("names = %s", got)
	}
}

func TestReadCSVHeaderDedupe(t *testing.T) {
	tbl := readRows(t, []string{"\ufeffx,x,,x", "1,2,3,4"}, DefaultOptions())
	got := strings.Join(tbl.Names(), "|")
	if got != "x|x.1|Unnamed: 2|x.2" {
		t.Fatalf("names = %s", got)
	}
}

func TestReadCSVHeaderKeepsWhitespace(t *testing.T) {
	tbl := readRows(t, []string{" a ,a, ", "1,2,3"}, DefaultOptions())
	got := strings.Join(tbl.Names(), "|")
	if got != " a |a|Unnamed: 2" {
		t.Fatalf("names = %q", got)
	}
	if _, ok := tbl.Column(" a "); !ok {
		t.Fatalf("column %q not found", " a ")
	}
}

func TestIntColumnValueIsExact(t *testing.T) {
	tbl := readRows(t, []string{"id", "9007199254740993", "-9223372036854775808"}, DefaultOptions())
	col, _ := tbl.Column("id")
	if col.Kind != KindInt {
		t.Fatalf("kind = %s, want %s", col.Kind, KindInt)
	}
	if got := col.Value(0); got != int64(9007199254740993) {
		t.Fatalf("value(0) = %v", got)
	}
	if got := col.Value(1); got != int64(-9223372036854775808) {
		t.Fatalf("value(1) = %v", got)
	}
}

func TestReadCSVShortRowsPadded(t *testing.T) {
	tbl := readRows(t, []string{"a,b", "1", "2,z"}, DefaultOptions())
	b, _ := tbl.Column("b")
	if b.Missing() != 1 {
		t.Fatalf("b missing = %d, want 1", b.Missing())
	}
}

func TestReadCSVErrors(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"blank":       "\n\n",
		"header only": "a,b\n",
	}
	for name, in := range cases {
		_, err := ReadCSV(strings.NewReader(in), DefaultOptions())
		if !errors.Is(err, ErrEmptyTable) {
			t.Fatalf("%s: err = %v, want ErrEmptyTable", name, err)
		}
	}
	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n"), DefaultOptions())
	if err == nil || errors.Is(err, ErrEmptyTable) {
		t.Fatalf("wide row: err = %v, want parse error", err)
	}
	_, err = ReadCSV(strings.NewReader("a,b\n\"unterminated,2\n"), DefaultOptions())
	if err == nil {
		t.Fatalf("bad quote: expected error")
	}
}

func TestReadCSVMaxRows(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxRows = 2
	tbl := readRows(t, []string{"a", "1", "2", "3"}, opt)
	if tbl.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Rows())
	}
}

func TestReadCSVFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ab.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,x\n2,y\n3,x\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	tbl, err := ReadCSV(f, DefaultOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Rows() != 3 || len(tbl.Columns) != 2 {
		t.Fatalf("dims = %dx%d", tbl.Rows(), len(tbl.Columns))
	}
}

func TestParseFloatInfinity(t *testing.T) {
	f, ok := parseFloat("-inf")
	if !ok || !math.IsInf(f, -1) {
		t.Fatalf("parseFloat(-inf) = %v, %v", f, ok)
	}
	if _, ok := parseFloat("nan"); ok {
		t.Fatalf("nan must not parse as a value")
	}
}
