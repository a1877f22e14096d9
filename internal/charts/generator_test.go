package charts

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
)

func loadTable(t *testing.T, csv string) (*analysis.Table, analysis.Classification) {
	t.Helper()
	tbl, err := analysis.ReadCSV(strings.NewReader(csv), analysis.DefaultOptions())
	require.NoError(t, err)
	return tbl, analysis.Classify(tbl)
}

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	return &Generator{Dir: t.TempDir(), URLPrefix: "/graphs"}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err, "not a png: %s", path)
}

func TestGenerateScenarioAB(t *testing.T) {
	tbl, cls := loadTable(t, "a,b\n1,x\n2,y\n3,x\n")
	g := newGenerator(t)

	results := g.Generate(context.Background(), tbl, cls, "analysis_test")
	for _, r := range results {
		require.NoError(t, r.Err, "chart %s", r.Kind)
	}
	assert.Equal(t, []string{
		"/graphs/analysis_test_histograms.png",
		"/graphs/analysis_test_boxplots.png",
		"/graphs/analysis_test_pie_b.png",
		"/graphs/analysis_test_correlation.png",
	}, URLs(results))
	for _, r := range results {
		assertPNG(t, filepath.Join(g.Dir, r.File))
	}
}

func TestGenerateWithoutNumericColumnsOnlyPies(t *testing.T) {
	tbl, cls := loadTable(t, "city,flag\nParis,true\nLyon,false\nParis,true\n")
	require.Empty(t, cls.Numeric)

	results := newGenerator(t).Generate(context.Background(), tbl, cls, "base")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, KindPie, r.Kind)
		assert.True(t, r.OK(), "pie for %s: %v", r.Column, r.Err)
	}
	assert.Equal(t, []string{"/graphs/base_pie_city.png", "/graphs/base_pie_flag.png"}, URLs(results))
}

func TestGenerateCapsPiesAtFirstThreeColumns(t *testing.T) {
	tbl, cls := loadTable(t, "c1,n,c2,c3,c4,c5\na,1,b,c,d,e\nf,2,g,h,i,j\n")
	require.Equal(t, []string{"c1", "c2", "c3", "c4", "c5"}, cls.Categorical)

	var pies []string
	for _, j := range newGenerator(t).Plan(tbl, cls) {
		if j.Kind == KindPie {
			pies = append(pies, j.Column)
		}
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, pies)
}

func TestPlanOrderAndSuffixes(t *testing.T) {
	tbl, cls := loadTable(t, "x,label,y\n1,a,2\n2,b,4\n")
	var suffixes []string
	for _, j := range newGenerator(t).Plan(tbl, cls) {
		suffixes = append(suffixes, j.Suffix)
	}
	assert.Equal(t, []string{"_histograms", "_boxplots", "_pie_label", "_correlation"}, suffixes)
}

func TestPieSuffixSanitizedAndUnique(t *testing.T) {
	tbl, cls := loadTable(t, "a/b,a b\nx,y\n")
	jobs := newGenerator(t).Plan(tbl, cls)
	require.Len(t, jobs, 2)
	assert.Equal(t, "_pie_a_b", jobs[0].Suffix)
	assert.Equal(t, "_pie_a_b_2", jobs[1].Suffix)
}

func TestGenerateAllNaNColumnDoesNotAbort(t *testing.T) {
	tbl, cls := loadTable(t, "score\nNaN\nNaN\n")
	require.Equal(t, []string{"score"}, cls.Numeric)

	results := newGenerator(t).Generate(context.Background(), tbl, cls, "nan")
	require.Len(t, results, 3)
	assert.Equal(t, KindHistograms, results[0].Kind)
	assert.True(t, results[0].OK(), "histogram: %v", results[0].Err)
	assert.Equal(t, KindBoxplots, results[1].Kind)
	assert.Error(t, results[1].Err)
	assert.Equal(t, KindCorrelation, results[2].Kind)
	assert.True(t, results[2].OK(), "correlation: %v", results[2].Err)
}

func TestRunIsolatesFailures(t *testing.T) {
	ok := func() ([]byte, error) { return newFigure(4, 4).png() }
	jobs := []Job{
		{Kind: KindHistograms, Suffix: "_one", Render: ok},
		{Kind: KindBoxplots, Suffix: "_two", Render: func() ([]byte, error) { return nil, errors.New("boom") }},
		{Kind: KindPie, Suffix: "_three", Render: func() ([]byte, error) { panic("bad data") }},
		{Kind: KindCorrelation, Suffix: "_four", Render: ok},
	}
	g := newGenerator(t)
	results := g.Run(context.Background(), jobs, "iso")
	require.Len(t, results, 4)
	assert.True(t, results[0].OK())
	assert.EqualError(t, results[1].Err, "boom")
	assert.ErrorContains(t, results[2].Err, "bad data")
	assert.True(t, results[3].OK())
	assert.Equal(t, []string{"/graphs/iso_one.png", "/graphs/iso_four.png"}, URLs(results))
	_, err := os.Stat(filepath.Join(g.Dir, "iso_two.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunParallelPreservesOrder(t *testing.T) {
	tbl, cls := loadTable(t, "a,b,c,d,e\n1,2,x,y,z\n3,5,y,y,q\n4,1,x,z,z\n")
	seq := newGenerator(t)
	par := newGenerator(t)
	par.Parallelism = 4

	want := URLs(seq.Generate(context.Background(), tbl, cls, "run"))
	got := URLs(par.Generate(context.Background(), tbl, cls, "run"))
	assert.Equal(t, want, got)
	assert.Len(t, got, 6)
}

func TestRunCancelledContextSkipsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tbl, cls := loadTable(t, "a\n1\n2\n")
	results := newGenerator(t).Generate(ctx, tbl, cls, "cancel")
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Empty(t, URLs(results))
}

func TestGenerateIsIdempotent(t *testing.T) {
	tbl, cls := loadTable(t, "a,b\n1,x\n2,y\n3,x\n")
	g := newGenerator(t)
	first := URLs(g.Generate(context.Background(), tbl, cls, "same"))
	second := URLs(g.Generate(context.Background(), tbl, cls, "same"))
	assert.Equal(t, first, second)
	entries, err := os.ReadDir(g.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(first))
}

func TestGenerateSingleNumericColumn(t *testing.T) {
	tbl, cls := loadTable(t, "v\n1\n2\n3\n10\n")
	require.Equal(t, []string{"v"}, cls.Numeric)

	g := newGenerator(t)
	results := g.Generate(context.Background(), tbl, cls, "one")
	require.Len(t, results, 3)
	for _, r := range results {
		require.NoError(t, r.Err, "chart %s", r.Kind)
		assertPNG(t, filepath.Join(g.Dir, r.File))
	}
	assert.Equal(t, "one_boxplots.png", results[1].File)
}

func TestGenerateConstantColumn(t *testing.T) {
	tbl, cls := loadTable(t, "k,label\n4,a\n4,b\n4,a\n")
	require.Equal(t, []string{"k"}, cls.Numeric)

	g := newGenerator(t)
	results := g.Generate(context.Background(), tbl, cls, "const")
	require.Len(t, results, 4)
	for _, r := range results {
		require.NoError(t, r.Err, "chart %s", r.Kind)
		assertPNG(t, filepath.Join(g.Dir, r.File))
	}
}
