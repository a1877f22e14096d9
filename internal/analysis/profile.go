package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Stat is a float that encodes NaN and ±Inf as JSON null.
type Stat float64

// Valid reports whether the value is finite.
func (s Stat) Valid() bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(s), 'f', -1, 64), nil
}

func (s *Stat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Stat(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("decode stat: %w", err)
	}
	*s = Stat(f)
	return nil
}

// Columns is a column-keyed mapping that marshals in insertion order.
type Columns[V any] struct {
	keys []string
	vals map[string]V
}

// Set inserts or replaces a value, keeping first-insertion order.
func (c *Columns[V]) Set(name string, v V) {
	if c.vals == nil {
		c.vals = make(map[string]V)
	}
	if _, ok := c.vals[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.vals[name] = v
}

// Get returns the value stored for name.
func (c *Columns[V]) Get(name string) (V, bool) {
	v, ok := c.vals[name]
	return v, ok
}

// Keys returns names in insertion order.
func (c *Columns[V]) Keys() []string { return append([]string(nil), c.keys...) }

// Len returns the number of entries.
func (c *Columns[V]) Len() int { return len(c.keys) }

func (c Columns[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(c.vals[k])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Columns[V]) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	*c = Columns[V]{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		c.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

// Describe holds the descriptive statistics of one numeric column.
type Describe struct {
	Count Stat `json:"count"`
	Mean  Stat `json:"mean"`
	Std   Stat `json:"std"`
	Min   Stat `json:"min"`
	P25   Stat `json:"25%"`
	P50   Stat `json:"50%"`
	P75   Stat `json:"75%"`
	Max   Stat `json:"max"`
}

// Classification partitions column names into numeric and categorical sets.
type Classification struct {
	Numeric     []string `json:"numeric_columns"`
	Categorical []string `json:"categorical_columns"`
}

// IsNumeric reports whether name was classified as numeric.
func (c Classification) IsNumeric(name string) bool {
	for _, n := range c.Numeric {
		if n == name {
			return true
		}
	}
	return false
}

// Classify derives the numeric/categorical partition from column kinds.
func Classify(t *Table) Classification {
	cls := Classification{Numeric: []string{}, Categorical: []string{}}
	for _, c := range t.Columns {
		if c.Kind.Numeric() {
			cls.Numeric = append(cls.Numeric, c.Name)
		} else {
			cls.Categorical = append(cls.Categorical, c.Name)
		}
	}
	return cls
}

// Summary is the JSON report produced for one table.
type Summary struct {
	Preview       Columns[[]any]    `json:"preview"`
	ColumnTypes   Columns[string]   `json:"column_types"`
	Statistics    Columns[Describe] `json:"statistics"`
	MissingValues Columns[int]      `json:"missing_values"`
	RowCount      int               `json:"row_count"`
	ColumnCount   int               `json:"column_count"`
	Classification
}

// Profile computes the summary of t. It never fails: a column whose
// statistics cannot be computed is reported with null values.
func Profile(t *Table, opt Options) *Summary {
	sample := opt.SampleRows
	if sample <= 0 {
		sample = 5
	}
	if sample > t.Rows() {
		sample = t.Rows()
	}
	s := &Summary{
		RowCount:       t.Rows(),
		ColumnCount:    len(t.Columns),
		Classification: Classify(t),
	}
	for _, c := range t.Columns {
		head := make([]any, sample)
		for i := 0; i < sample; i++ {
			head[i] = c.Value(i)
		}
		s.Preview.Set(c.Name, head)
		s.ColumnTypes.Set(c.Name, string(c.Kind))
		s.MissingValues.Set(c.Name, c.Missing())
	}
	for _, name := range s.Numeric {
		c, _ := t.Column(name)
		s.Statistics.Set(name, describeSafe(c))
	}
	return s
}

func nullDescribe() Describe {
	nan := Stat(math.NaN())
	return Describe{Count: nan, Mean: nan, Std: nan, Min: nan, P25: nan, P50: nan, P75: nan, Max: nan}
}

func describeSafe(c *Column) (d Describe) {
	defer func() {
		if r := recover(); r != nil {
			d = nullDescribe()
		}
	}()
	return describe(c.Floats())
}

// describe mirrors pandas' describe(): sample std, linear percentiles,
// everything rounded to two decimals.
func describe(vals []float64) Describe {
	d := nullDescribe()
	d.Count = Stat(len(vals))
	if len(vals) == 0 {
		return d
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	d.Mean = round2(mean)
	if len(vals) > 1 {
		var ss float64
		for _, v := range vals {
			dv := v - mean
			ss += dv * dv
		}
		d.Std = round2(math.Sqrt(ss / float64(len(vals)-1)))
	}
	d.Min = round2(sorted[0])
	d.P25 = round2(quantile(sorted, 0.25))
	d.P50 = round2(quantile(sorted, 0.5))
	d.P75 = round2(quantile(sorted, 0.75))
	d.Max = round2(sorted[len(sorted)-1])
	return d
}

func round2(x float64) Stat {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) > 1e15 {
		return Stat(x)
	}
	return Stat(math.Round(x*100) / 100)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
