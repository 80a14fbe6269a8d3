package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clausecheck/internal/analysis"
	"clausecheck/internal/extract"
	"clausecheck/internal/issue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAnalyzer implements fileAnalyzer for testing.
type MockAnalyzer struct {
	AnalyzeFileFunc func(ctx context.Context, filename string, data []byte) (*analysis.Report, error)

	Calls int
}

func (m *MockAnalyzer) AnalyzeFile(ctx context.Context, filename string, data []byte) (*analysis.Report, error) {
	m.Calls++
	if m.AnalyzeFileFunc != nil {
		return m.AnalyzeFileFunc(ctx, filename, data)
	}
	return &analysis.Report{RunID: "run-1", Issues: issue.Empty()}, nil
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postAnalyze(t *testing.T, h http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newRouter(&MockAnalyzer{}, 0, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyzeReturnsIssues(t *testing.T) {
	svc := &MockAnalyzer{
		AnalyzeFileFunc: func(ctx context.Context, filename string, data []byte) (*analysis.Report, error) {
			assert.Equal(t, "contract.pdf", filename)
			assert.Equal(t, []byte("%PDF-data"), data)
			return &analysis.Report{
				RunID:  "run-42",
				Issues: issue.Of(issue.New("penalty of 50%", "reduce it", issue.Critical)),
			}, nil
		},
	}
	body, ct := multipartBody(t, "file", "contract.pdf", []byte("%PDF-data"))
	rec := postAnalyze(t, newRouter(svc, 0, time.Minute), body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		RunID  string        `json:"run_id"`
		Issues []issue.Issue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-42", resp.RunID)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, issue.Critical, resp.Issues[0].Importance)
}

func TestAnalyzeEmptyResultIsEmptyArray(t *testing.T) {
	body, ct := multipartBody(t, "file", "contract.docx", []byte("PK"))
	rec := postAnalyze(t, newRouter(&MockAnalyzer{}, 0, 0), body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `[]`, string(raw["issues"]))
}

func TestAnalyzeRejectsBadUploadsBeforeAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
	}{
		{"missing file field", "", "", nil},
		{"wrong field name", "document", "contract.pdf", []byte("data")},
		{"empty file", "file", "contract.pdf", nil},
		{"unsupported type", "file", "contract.txt", []byte("data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAnalyzer{}
			body, ct := multipartBody(t, tt.field, tt.filename, tt.content)
			rec := postAnalyze(t, newRouter(svc, 0, 0), body, ct)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, svc.Calls)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_UPLOAD", resp.Error.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestAnalyzeRejectsOversizedUpload(t *testing.T) {
	svc := &MockAnalyzer{}
	body, ct := multipartBody(t, "file", "contract.pdf", bytes.Repeat([]byte("x"), 4096))
	rec := postAnalyze(t, newRouter(svc, 1024, 0), body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, svc.Calls)
}

func TestAnalyzeMapsServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{extract.ErrInvalidInput, http.StatusBadRequest, "INVALID_UPLOAD"},
		{fmt.Errorf("%w contract.pdf: bad xref", extract.ErrRead), http.StatusUnprocessableEntity, "UNREADABLE_DOCUMENT"},
		{fmt.Errorf("index snapshot corrupt"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := &MockAnalyzer{
				AnalyzeFileFunc: func(ctx context.Context, filename string, data []byte) (*analysis.Report, error) {
					return nil, tt.err
				},
			}
			body, ct := multipartBody(t, "file", "contract.pdf", []byte("data"))
			rec := postAnalyze(t, newRouter(svc, 0, 0), body, ct)

			assert.Equal(t, tt.status, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestAnalyzeAppliesTimeout(t *testing.T) {
	svc := &MockAnalyzer{
		AnalyzeFileFunc: func(ctx context.Context, filename string, data []byte) (*analysis.Report, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			return &analysis.Report{Issues: issue.Empty()}, nil
		},
	}
	body, ct := multipartBody(t, "file", "contract.pdf", []byte("data"))
	rec := postAnalyze(t, newRouter(svc, 0, time.Minute), body, ct)
	assert.Equal(t, http.StatusOK, rec.Code)
}
