package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/souksili/DatGouv-Visualisation/internal/ingest"
	"github.com/souksili/DatGouv-Visualisation/internal/pipeline"
)

// UploadField is the multipart field carrying the CSV file.
const UploadField = "csvFile"

// multipartSlack is allowed on top of the file ceiling for multipart framing.
const multipartSlack = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, indexPage(s.cfg.MaxUploadBytes))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			s.fail(w, r, ingest.ErrTooLarge(s.cfg.MaxUploadBytes))
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			s.fail(w, r, ingest.ErrNoFile())
		default:
			s.fail(w, r, fmt.Errorf("parse multipart: %w", err))
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile(UploadField)
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			s.fail(w, r, fmt.Errorf("open upload: %w", err))
			return
		}
		// A file input submitted without a selection arrives as a plain value.
		if _, ok := r.MultipartForm.Value[UploadField]; ok {
			_, err = s.store.Accept("", strings.NewReader(""))
			s.fail(w, r, err)
			return
		}
		s.fail(w, r, ingest.ErrNoFile())
		return
	}
	defer file.Close()

	up, err := s.store.Accept(hdr.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.runner.Run(r.Context(), up.Table, pipeline.NewBaseName(s.now()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// graphFiles serves chart files without directory listings.
func graphFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fs.ServeHTTP(w, r)
	})
}
