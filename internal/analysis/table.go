package analysis

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyTable is returned when the input has no header or no data rows.
var ErrEmptyTable = errors.New("csv has no data")

// Options controls loading and profiling of tabular data.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many leading rows go into the summary preview.
	SampleRows int
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t' from the header line.
	Delimiter rune
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		SampleRows: 5,
		Delimiter:  ',',
	}
}

// Kind is the inferred storage type of a column, named after the pandas dtype.
type Kind string

const (
	KindInt    Kind = "int64"
	KindFloat  Kind = "float64"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
)

// Numeric reports whether the kind counts as a number for classification.
// bool is deliberately excluded.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Cell is one value of a column. Num is only meaningful for numeric columns.
type Cell struct {
	Str     string
	Num     float64
	Int     int64 // exact value in int64 columns
	Missing bool
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Missing counts absent cells.
func (c *Column) Missing() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Missing {
			n++
		}
	}
	return n
}

// Floats returns the non-missing values of a numeric column in row order.
func (c *Column) Floats() []float64 {
	if !c.Kind.Numeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Missing || math.IsNaN(cell.Num) {
			continue
		}
		out = append(out, cell.Num)
	}
	return out
}

// Value returns the JSON-friendly representation of row i.
func (c *Column) Value(i int) any {
	cell := c.Cells[i]
	if cell.Missing {
		return nil
	}
	switch c.Kind {
	case KindInt:
		return cell.Int
	case KindFloat:
		return Stat(cell.Num)
	case KindBool:
		return cell.Str == "True"
	default:
		return cell.Str
	}
}

// Table is an immutable, column-oriented view of a loaded dataset.
type Table struct {
	Name    string
	Columns []*Column
	rows    int
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns column names in original order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// naTokens mirrors the default NA markers recognised by pandas.read_csv.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// ReadCSV parses CSV bytes from r into a Table. The first record is the header.
func ReadCSV(r io.Reader, opt Options) (*Table, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = sniffDelimiter(head)
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) == 1 && strings.TrimSpace(header[0]) == "" {
		return nil, ErrEmptyTable
	}
	names := dedupeHeader(header)
	ncol := len(names)

	raw := make([][]string, ncol)
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	rows := 0
	for rows < maxRows {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", rows+1, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("read row %d: expected %d fields, saw %d", rows+1, ncol, len(rec))
		}
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = rec[j]
			}
			raw[j] = append(raw[j], v)
		}
		rows++
	}
	if rows == 0 {
		return nil, ErrEmptyTable
	}

	t := &Table{Columns: make([]*Column, ncol), rows: rows}
	for j := range names {
		t.Columns[j] = buildColumn(names[j], raw[j])
	}
	return t, nil
}

// buildColumn infers a column kind with pandas-like rules: ints (promoted to
// float when values are missing), floats, booleans without gaps, else object.
func buildColumn(name string, values []string) *Column {
	col := &Column{Name: name, Cells: make([]Cell, len(values))}
	present := 0
	allInt, allFloat, allBool := true, true, true
	for i, v := range values {
		if isNA(v) {
			col.Cells[i] = Cell{Missing: true, Num: math.NaN()}
			continue
		}
		present++
		col.Cells[i] = Cell{Str: v}
		s := strings.TrimSpace(v)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := parseFloat(s); !ok {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(s); !ok {
				allBool = false
			}
		}
	}
	missing := len(values) - present

	switch {
	case len(values) == 0:
		col.Kind = KindObject
	case present == 0:
		col.Kind = KindFloat
	case allInt && missing == 0:
		col.Kind = KindInt
	case allInt || allFloat:
		col.Kind = KindFloat
	case allBool && missing == 0:
		col.Kind = KindBool
	default:
		col.Kind = KindObject
	}

	for i := range col.Cells {
		c := &col.Cells[i]
		if c.Missing {
			continue
		}
		s := strings.TrimSpace(c.Str)
		switch col.Kind {
		case KindInt:
			c.Int, _ = strconv.ParseInt(s, 10, 64)
			c.Num = float64(c.Int)
		case KindFloat:
			c.Num, _ = parseFloat(s)
		case KindBool:
			b, _ := parseBool(s)
			c.Str = "False"
			if b {
				c.Str = "True"
			}
		}
	}
	return col
}

func parseFloat(s string) (float64, bool) {
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), true
	case "-inf", "-infinity":
		return math.Inf(-1), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// dedupeHeader names blank headers "Unnamed: i" and suffixes repeats with
// ".1", ".2", ... so column lookups stay unambiguous.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(h) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				cand := fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[cand]; !taken {
					seen[base] = n
					name = cand
					break
				}
			}
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// sniffDelimiter picks the most frequent candidate separator on the first line.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(head, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
