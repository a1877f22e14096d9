// Package ingest validates, persists and parses uploaded CSV files.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/souksili/DatGouv-Visualisation/internal/analysis"
	"github.com/souksili/DatGouv-Visualisation/internal/utils"
)

// MaxUploadBytes is the default upload ceiling (16 MiB).
const MaxUploadBytes int64 = 16 << 20

// Upload is an accepted file: where the raw bytes were saved and the parsed table.
type Upload struct {
	Path  string
	Table *analysis.Table
}

// Store accepts uploads into Dir.
type Store struct {
	Dir      string
	MaxBytes int64
	Options  analysis.Options
	Logger   *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) limit() int64 {
	if s.MaxBytes <= 0 {
		return MaxUploadBytes
	}
	return s.MaxBytes
}

// Accept validates the file name and contents, saves the raw bytes and parses
// them. Client mistakes are reported as *ValidationError.
func (s *Store) Accept(filename string, r io.Reader) (*Upload, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return nil, invalid(CodeNoFilename, "No file selected", nil)
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return nil, invalid(CodeBadExtension, "Invalid file format. Please upload a CSV file.", nil)
	}
	limit := s.limit()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge(limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, invalid(CodeEmptyCSV, "CSV file is empty", nil)
	}

	if err := utils.EnsureDir(s.Dir); err != nil {
		return nil, err
	}
	stored := fmt.Sprintf("data_%s_%s.csv", s.now().Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(s.Dir, stored)
	if err := utils.SafeWriteFile(path, data); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	t, err := analysis.ReadCSV(bytes.NewReader(data), s.Options)
	if err != nil {
		if errors.Is(err, analysis.ErrEmptyTable) {
			return nil, invalid(CodeEmptyCSV, "CSV file is empty", err)
		}
		return nil, invalid(CodeUnparseableCSV, "Error reading CSV file", err)
	}
	t.Name = filepath.Base(name)
	if s.Logger != nil {
		s.Logger.Debug("upload stored", "file", t.Name, "path", path, "bytes", len(data))
	}
	return &Upload{Path: path, Table: t}, nil
}
