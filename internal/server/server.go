// Package server exposes the upload-and-analyse pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/souksili/DatGouv-Visualisation/internal/ingest"
	"github.com/souksili/DatGouv-Visualisation/internal/middleware"
	"github.com/souksili/DatGouv-Visualisation/internal/pipeline"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr           string
	GraphDir       string
	GraphURLPrefix string
	MaxUploadBytes int64
	// RateLimit applies to POST /upload only. A zero rate disables it.
	RateLimit      middleware.RateLimitConfig
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Server wires the ingestion store and the analysis runner to HTTP routes.
type Server struct {
	cfg    Config
	store  *ingest.Store
	runner *pipeline.Runner
	log    *slog.Logger
	now    func() time.Time
}

// New creates a server. A nil logger falls back to slog.Default.
func New(cfg Config, store *ingest.Store, runner *pipeline.Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = ingest.MaxUploadBytes
	}
	cfg.GraphURLPrefix = "/" + strings.Trim(cfg.GraphURLPrefix, "/")
	return &Server{cfg: cfg, store: store, runner: runner, log: logger, now: time.Now}
}

// Handler builds the route tree. Background work started for it (rate
// limiter sweeping) stops when ctx is cancelled.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(s.log))
	r.Use(recoverJSON(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	upload := r.With()
	if s.cfg.RateLimit.RequestsPerSecond > 0 {
		upload = r.With(middleware.RateLimiter(ctx, s.cfg.RateLimit))
	}
	upload.Post("/upload", s.withTimeout(s.handleUpload))

	r.Handle(s.cfg.GraphURLPrefix+"/*", http.StripPrefix(s.cfg.GraphURLPrefix, graphFiles(s.cfg.GraphDir)))
	return r
}

func (s *Server) withTimeout(h http.HandlerFunc) http.HandlerFunc {
	if s.cfg.RequestTimeout <= 0 {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		h(w, r.WithContext(ctx))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	writeTimeout := 2 * time.Minute
	if s.cfg.RequestTimeout > 0 {
		writeTimeout = s.cfg.RequestTimeout + 10*time.Second
	}
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
