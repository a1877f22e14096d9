// Package pipeline ties profiling and chart generation together for one table.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
	"github.com/souksili/DatGouv-Visualisation/internal/charts"
)

// Result is the payload returned to callers after a successful analysis.
type Result struct {
	Analysis *analysis.Summary `json:"analysis"`
	Graphs   []string          `json:"graphs"`
	// Charts keeps per-chart outcomes, including skipped ones.
	Charts []charts.Result `json:"-"`
}

// Runner profiles a table and renders its charts.
type Runner struct {
	Options analysis.Options
	Charts  *charts.Generator
	Logger  *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run profiles t and writes its charts under base.
func (r *Runner) Run(ctx context.Context, t *analysis.Table, base string) (*Result, error) {
	if t == nil {
		return nil, fmt.Errorf("run pipeline: nil table")
	}
	if r.Charts == nil {
		return nil, fmt.Errorf("run pipeline: no chart generator configured")
	}
	start := time.Now()
	summary := analysis.Profile(t, r.Options)
	results := r.Charts.Generate(ctx, t, summary.Classification, base)
	out := &Result{Analysis: summary, Graphs: charts.URLs(results), Charts: results}
	r.logger().Info("analysis complete",
		"base", base,
		"rows", summary.RowCount,
		"columns", summary.ColumnCount,
		"graphs", len(out.Graphs),
		"skipped", len(results)-len(out.Graphs),
		"elapsed", time.Since(start),
	)
	return out, nil
}

// RunFile loads a CSV from disk and runs the pipeline on it.
func (r *Runner) RunFile(ctx context.Context, path, base string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := analysis.ReadCSV(f, r.Options)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	t.Name = filepath.Base(path)
	return r.Run(ctx, t, base)
}

// NewBaseName returns a unique artifact prefix such as
// analysis_20240102_150405_1a2b3c4d.
func NewBaseName(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("analysis_%s_%s", now.Format("20060102_150405"), id)
}
