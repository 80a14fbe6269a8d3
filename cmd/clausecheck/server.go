package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"clausecheck/internal/analysis"
	"clausecheck/internal/extract"
	"clausecheck/internal/issue"
	"clausecheck/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// fileAnalyzer is the part of the analysis service the HTTP API needs.
type fileAnalyzer interface {
	AnalyzeFile(ctx context.Context, filename string, data []byte) (*analysis.Report, error)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	RequestID string    `json:"request_id,omitempty"`
	Error     errorBody `json:"error"`
}

type analyzeResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	RunID     string        `json:"run_id"`
	Issues    []issue.Issue `json:"issues"`
}

// newRouter builds the HTTP API. maxUpload bounds the request body;
// timeout bounds one analysis.
func newRouter(svc fileAnalyzer, maxUpload int64, timeout time.Duration) http.Handler {
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/contracts/analyze", func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			log := logging.Get(logging.CategoryAPI).With(zap.String("request_id", reqID))

			r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
			filename, data, err := readUpload(r)
			if err != nil {
				log.Warn("Rejected upload: %v", err)
				writeError(w, reqID, http.StatusBadRequest, "INVALID_UPLOAD", err.Error())
				return
			}

			ctx := r.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			report, err := svc.AnalyzeFile(ctx, filename, data)
			if err != nil {
				status, code := classify(err)
				log.Warn("Analysis of %s rejected: %v", filename, err)
				writeError(w, reqID, status, code, err.Error())
				return
			}

			log.Info("Analyzed %s: %d issue(s)", filename, report.Issues.Len())
			writeJSON(w, http.StatusOK, analyzeResponse{
				RequestID: reqID,
				RunID:     report.RunID,
				Issues:    report.Issues.Normalize().Issues,
			})
		})
	})

	return r
}

// readUpload returns the multipart "file" part. It never reaches the pipeline
// with an empty or missing file.
func readUpload(r *http.Request) (string, []byte, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, fmt.Errorf("upload exceeds %d bytes", maxErr.Limit)
		}
		return "", nil, fmt.Errorf("multipart field \"file\" is required: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, extract.ErrInvalidInput
	}
	if extract.FromExtension(header.Filename) == extract.TypeUnknown {
		return "", nil, fmt.Errorf("%w (got %q)", extract.ErrUnsupportedType, header.Filename)
	}
	return header.Filename, data, nil
}

// classify maps service errors to HTTP status codes.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, extract.ErrInvalidInput), errors.Is(err, extract.ErrUnsupportedType):
		return http.StatusBadRequest, "INVALID_UPLOAD"
	case errors.Is(err, extract.ErrRead):
		return http.StatusUnprocessableEntity, "UNREADABLE_DOCUMENT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryAPI).Error("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, reqID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{RequestID: reqID, Error: errorBody{Code: code, Message: message}})
}
