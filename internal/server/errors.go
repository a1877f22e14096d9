package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/souksili/DatGouv-Visualisation/internal/ingest"
	"github.com/souksili/DatGouv-Visualisation/internal/middleware"
)

// msgInternal is the only text clients see for unexpected failures.
const msgInternal = "An unexpected error occurred."

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	var ve *ingest.ValidationError
	switch {
	case errors.As(err, &ve) && ve.Code == ingest.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ve):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the user-facing text for err.
func clientMessage(err error) string {
	var ve *ingest.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return msgInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail logs err and writes the matching {"error": ...} response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	attrs := []any{
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("upload failed", attrs...)
	} else {
		s.log.Info("upload rejected", attrs...)
	}
	writeJSON(w, status, errorBody{Error: clientMessage(err)})
}

// recoverJSON turns panics into the generic JSON 500 response.
func recoverJSON(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic serving request",
						"request_id", middleware.RequestIDFromContext(r.Context()),
						"path", r.URL.Path,
						"panic", fmt.Sprint(rec),
					)
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgInternal})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
