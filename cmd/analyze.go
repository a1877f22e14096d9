package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
	"github.com/souksili/DatGouv-Visualisation/internal/charts"
	"github.com/souksili/DatGouv-Visualisation/internal/pipeline"
	"github.com/souksili/DatGouv-Visualisation/internal/utils"
)

var (
	anaOutDir     string
	anaURLPrefix  string
	anaBase       string
	anaDelimiter  string
	anaSampleRows int
	anaMaxRows    int
	anaBins       int
	anaParallel   int
	anaJSON       bool
	anaMarkdown   bool
	anaSummaryDir string
	anaQuiet      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Profile CSV files and write their charts",
	Long: `Profile one or more CSV files (globs allowed) and write their charts as PNG
files. With --json the summary and graph URLs are printed as JSON, in the same
shape the upload endpoint returns.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		if anaJSON && anaMarkdown {
			return fmt.Errorf("--json and --markdown are mutually exclusive")
		}
		if anaBase != "" && len(files) > 1 {
			return fmt.Errorf("--base can only be used with a single input file")
		}

		opt := analysis.DefaultOptions()
		opt.SampleRows = c.PreviewRows
		if anaSampleRows > 0 {
			opt.SampleRows = anaSampleRows
		}
		if anaMaxRows > 0 {
			opt.MaxRows = anaMaxRows
		}
		switch strings.ToLower(anaDelimiter) {
		case "", ",":
			opt.Delimiter = ','
		case ";":
			opt.Delimiter = ';'
		case "\t", "tab":
			opt.Delimiter = '\t'
		case "auto":
			opt.Delimiter = 0
		default:
			return fmt.Errorf("unsupported --delimiter: %s (use ','|';'|'tab'|'auto')", anaDelimiter)
		}

		outDir := c.GraphDir
		if anaOutDir != "" {
			outDir = anaOutDir
		}
		prefix := c.GraphURLPrefix
		if cmd.Flags().Changed("url-prefix") {
			prefix = anaURLPrefix
		}
		bins := c.HistogramBins
		if anaBins > 0 {
			bins = anaBins
		}
		par := c.ChartParallelism
		if anaParallel > 0 {
			par = anaParallel
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		logger := newLogger(c, cmd.ErrOrStderr())
		runner := &pipeline.Runner{
			Options: opt,
			Charts: &charts.Generator{
				Dir:         outDir,
				URLPrefix:   prefix,
				Bins:        bins,
				Parallelism: par,
				Logger:      logger,
			},
			Logger: logger,
		}

		total := len(files)
		for i, path := range files {
			if !anaQuiet && !anaJSON && !anaMarkdown && total > 1 {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			base := anaBase
			if base == "" {
				base = pipeline.NewBaseName(time.Now())
			}
			res, err := runner.RunFile(cmd.Context(), path, base)
			if err != nil {
				return err
			}
			if anaSummaryDir != "" {
				if err := writeSummary(anaSummaryDir, base, res); err != nil {
					return err
				}
			}
			if anaJSON {
				b, err := utils.PrettyJSON(res)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				continue
			}
			if anaMarkdown {
				fmt.Fprintln(out, res.Analysis.Markdown(filepath.Base(path)))
				continue
			}
			if !anaQuiet {
				printResult(out, filepath.Base(path), res)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeping literal paths that exist, deduplicated and sorted.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func writeSummary(dir, base string, res *pipeline.Result) error {
	b, err := utils.PrettyJSON(res)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(dir, base+".json"), b)
}

func printResult(w io.Writer, name string, res *pipeline.Result) {
	s := res.Analysis
	fmt.Fprintf(w, "✓ Analyzed %s: %d rows, %d columns (%d numeric, %d categorical)\n",
		name, s.RowCount, s.ColumnCount, len(s.Numeric), len(s.Categorical))
	for _, col := range s.MissingValues.Keys() {
		if n, _ := s.MissingValues.Get(col); n > 0 {
			fmt.Fprintf(w, "  missing %s: %d\n", col, n)
		}
	}
	for _, r := range res.Charts {
		if r.OK() {
			fmt.Fprintf(w, "✓ Wrote %s\n", r.File)
			continue
		}
		label := string(r.Kind)
		if r.Column != "" {
			label += " (" + r.Column + ")"
		}
		fmt.Fprintf(w, "⚠ Warning: skipped %s: %v\n", label, r.Err)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutDir, "out-dir", "o", "", "directory for chart files (default: graph_dir)")
	analyzeCmd.Flags().StringVar(&anaURLPrefix, "url-prefix", "", "URL prefix used for graph links in --json output (default: graph_url_prefix)")
	analyzeCmd.Flags().StringVar(&anaBase, "base", "", "artifact base name (single file only; default: analysis_<timestamp>_<id>)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'auto'")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 0, "number of preview rows (default: preview_rows)")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "maximum rows to load (0 = unlimited)")
	analyzeCmd.Flags().IntVar(&anaBins, "bins", 0, "histogram bins per column (default: histogram_bins)")
	analyzeCmd.Flags().IntVar(&anaParallel, "parallel", 0, "charts rendered concurrently (default: chart_parallelism)")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the summary and graph URLs as JSON")
	analyzeCmd.Flags().BoolVar(&anaMarkdown, "markdown", false, "print a plain-text report instead of progress lines")
	analyzeCmd.Flags().StringVar(&anaSummaryDir, "summary-dir", "", "also write <base>.json summaries to this directory")
	analyzeCmd.Flags().BoolVar(&anaQuiet, "quiet", false, "suppress progress and non-essential output")
}
