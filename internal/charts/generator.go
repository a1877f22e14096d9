// Package charts renders the fixed battery of PNG figures for a profiled table.
package charts

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
	"github.com/souksili/DatGouv-Visualisation/internal/utils"
)

// Kind identifies a chart family.
type Kind string

const (
	KindHistograms  Kind = "histograms"
	KindBoxplots    Kind = "boxplots"
	KindPie         Kind = "pie"
	KindCorrelation Kind = "correlation"
)

// MaxPies is the number of leading categorical columns that get a pie chart.
const MaxPies = 3

// DefaultBins is the histogram bin count used when none is configured.
const DefaultBins = 30

// Result reports the outcome of one chart job. Err is set when the chart
// was skipped; File and URL are set otherwise.
type Result struct {
	Kind   Kind
	Column string
	File   string
	URL    string
	Err    error
}

// OK reports whether the chart was written.
func (r Result) OK() bool { return r.Err == nil && r.File != "" }

// Job is one planned chart. Render produces encoded PNG bytes.
type Job struct {
	Kind   Kind
	Column string
	Suffix string
	Render func() ([]byte, error)
}

// Generator writes chart files for tables into Dir.
type Generator struct {
	Dir       string
	URLPrefix string
	// Bins is the histogram bin count; 0 means DefaultBins.
	Bins int
	// Parallelism above 1 renders jobs concurrently.
	Parallelism int
	Logger      *slog.Logger
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (g *Generator) bins() int {
	if g.Bins <= 0 {
		return DefaultBins
	}
	return g.Bins
}

type family struct {
	kind    Kind
	applies func(cls analysis.Classification) bool
	expand  func(g *Generator, t *analysis.Table, cls analysis.Classification) []Job
}

func hasNumeric(cls analysis.Classification) bool { return len(cls.Numeric) > 0 }

// families lists chart kinds in output order.
var families = []family{
	{
		kind:    KindHistograms,
		applies: hasNumeric,
		expand: func(g *Generator, t *analysis.Table, cls analysis.Classification) []Job {
			bins := g.bins()
			return []Job{{Kind: KindHistograms, Suffix: "_histograms", Render: func() ([]byte, error) {
				return renderHistograms(t, cls, bins)
			}}}
		},
	},
	{
		kind:    KindBoxplots,
		applies: hasNumeric,
		expand: func(_ *Generator, t *analysis.Table, cls analysis.Classification) []Job {
			return []Job{{Kind: KindBoxplots, Suffix: "_boxplots", Render: func() ([]byte, error) {
				return renderBoxplots(t, cls)
			}}}
		},
	},
	{
		kind:    KindPie,
		applies: func(cls analysis.Classification) bool { return len(cls.Categorical) > 0 },
		expand:  pieJobs,
	},
	{
		kind:    KindCorrelation,
		applies: hasNumeric,
		expand: func(_ *Generator, t *analysis.Table, cls analysis.Classification) []Job {
			return []Job{{Kind: KindCorrelation, Suffix: "_correlation", Render: func() ([]byte, error) {
				return renderHeatmap(analysis.Correlate(t, cls.Numeric))
			}}}
		},
	},
}

func pieJobs(_ *Generator, t *analysis.Table, cls analysis.Classification) []Job {
	names := cls.Categorical
	if len(names) > MaxPies {
		names = names[:MaxPies]
	}
	used := make(map[string]bool, len(names))
	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		suffix := "_pie_" + utils.SafeFileComponent(name)
		for i := 2; used[suffix]; i++ {
			suffix = fmt.Sprintf("_pie_%s_%d", utils.SafeFileComponent(name), i)
		}
		used[suffix] = true
		jobs = append(jobs, Job{Kind: KindPie, Column: name, Suffix: suffix, Render: func() ([]byte, error) {
			return renderPie(col)
		}})
	}
	return jobs
}

// Plan returns the chart jobs applicable to t in output order.
func (g *Generator) Plan(t *analysis.Table, cls analysis.Classification) []Job {
	var jobs []Job
	for _, f := range families {
		if !f.applies(cls) {
			continue
		}
		jobs = append(jobs, f.expand(g, t, cls)...)
	}
	return jobs
}

// Generate renders every applicable chart for t under base. It never fails:
// a chart that cannot be produced is reported through Result.Err.
func (g *Generator) Generate(ctx context.Context, t *analysis.Table, cls analysis.Classification, base string) []Result {
	return g.Run(ctx, g.Plan(t, cls), base)
}

// Run executes jobs and returns one Result per job, in job order.
func (g *Generator) Run(ctx context.Context, jobs []Job, base string) []Result {
	results := make([]Result, len(jobs))
	if g.Parallelism <= 1 {
		for i, j := range jobs {
			results[i] = g.run(ctx, j, base)
		}
		return results
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.Parallelism)
	for i := range jobs {
		eg.Go(func() error {
			results[i] = g.run(gctx, jobs[i], base)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (g *Generator) run(ctx context.Context, j Job, base string) (res Result) {
	res = Result{Kind: j.Kind, Column: j.Column}
	log := g.logger().With("chart", string(j.Kind), "base", base)
	if j.Column != "" {
		log = log.With("column", j.Column)
	}
	defer func() {
		if r := recover(); r != nil {
			res.File, res.URL = "", ""
			res.Err = fmt.Errorf("chart panicked: %v", r)
			log.Warn("chart skipped", "error", res.Err)
		}
	}()
	if err := ctx.Err(); err != nil {
		res.Err = err
		log.Warn("chart skipped", "error", err)
		return res
	}
	start := time.Now()
	data, err := j.Render()
	if err != nil {
		res.Err = err
		log.Warn("chart skipped", "error", err)
		return res
	}
	file := base + j.Suffix + ".png"
	if err := utils.SafeWriteFile(filepath.Join(g.Dir, file), data); err != nil {
		res.Err = fmt.Errorf("write %s: %w", file, err)
		log.Warn("chart skipped", "error", res.Err)
		return res
	}
	res.File = file
	res.URL = strings.TrimRight(g.URLPrefix, "/") + "/" + file
	log.Debug("chart written", "file", file, "bytes", len(data), "elapsed", time.Since(start))
	return res
}

// URLs returns the references of written charts, preserving order.
func URLs(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, r.URL)
		}
	}
	return out
}
