package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	nerr "github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/internal/export"
	"github.com/vango-dev/notes/internal/notes"
	"github.com/vango-dev/notes/internal/summarizer"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

// apiError maps domain errors onto coded errors.
func apiError(err error) *nerr.NotesError {
	var ne *nerr.NotesError
	if errors.As(err, &ne) {
		return ne
	}

	var verr *notes.ValidationError
	var apiErr *summarizer.APIError
	switch {
	case errors.As(err, &verr):
		return nerr.New("N200").WithField(verr.Field).WithDetail(verr.Message).Wrap(err)
	case errors.Is(err, notes.ErrNotFound):
		return nerr.New("N300").Wrap(err)
	case errors.Is(err, summarizer.ErrNotConfigured):
		return nerr.New("N501").Wrap(err)
	case errors.As(err, &apiErr), errors.Is(err, summarizer.ErrEmptyResponse):
		return nerr.New("N502").WithDetail(err.Error()).Wrap(err)
	case errors.Is(err, export.ErrNoBucket):
		return nerr.New("N503").Wrap(err)
	default:
		return nerr.FromError(err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ne := apiError(err)
	status := ne.Status()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"code", ne.Code,
			"error", err,
		)
	}
	writeJSON(w, status, ne.Body())
}

func apiNotFound(r *http.Request) *nerr.NotesError {
	return nerr.Newf("no API route for %s %s", r.Method, r.URL.Path).WithStatus(http.StatusNotFound)
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
