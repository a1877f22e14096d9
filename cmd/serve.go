package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
	"github.com/souksili/DatGouv-Visualisation/internal/charts"
	"github.com/souksili/DatGouv-Visualisation/internal/ingest"
	"github.com/souksili/DatGouv-Visualisation/internal/middleware"
	"github.com/souksili/DatGouv-Visualisation/internal/pipeline"
	"github.com/souksili/DatGouv-Visualisation/internal/server"
	"github.com/souksili/DatGouv-Visualisation/internal/utils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			c.ListenAddr = serveAddr
		}
		logger := newLogger(c, os.Stderr)

		if err := utils.EnsureDirs(c.UploadDir, c.GraphDir); err != nil {
			return err
		}

		opts := analysis.DefaultOptions()
		opts.SampleRows = c.PreviewRows
		store := &ingest.Store{Dir: c.UploadDir, MaxBytes: c.MaxUploadBytes(), Options: opts, Logger: logger}
		runner := &pipeline.Runner{
			Options: opts,
			Charts: &charts.Generator{
				Dir:         c.GraphDir,
				URLPrefix:   c.GraphURLPrefix,
				Bins:        c.HistogramBins,
				Parallelism: c.ChartParallelism,
				Logger:      logger,
			},
			Logger: logger,
		}
		srv := server.New(server.Config{
			Addr:           c.ListenAddr,
			GraphDir:       c.GraphDir,
			GraphURLPrefix: c.GraphURLPrefix,
			MaxUploadBytes: c.MaxUploadBytes(),
			RateLimit: middleware.RateLimitConfig{
				RequestsPerSecond: c.RateLimitRPS,
				Burst:             c.RateLimitBurst,
			},
			CORSOrigins:    c.CORSAllowedOrigins,
			RequestTimeout: time.Duration(c.RequestTimeoutSec) * time.Second,
		}, store, runner, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on %s (uploads: %s, graphs: %s)\n", c.ListenAddr, c.UploadDir, c.GraphDir)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
