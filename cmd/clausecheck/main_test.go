package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clausecheck/internal/analysis"
	"clausecheck/internal/issue"
	"clausecheck/internal/step"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *analysis.Report {
	return &analysis.Report{
		RunID: "run-7",
		Issues: issue.Of(
			issue.New("notice of 3 days", "extend notice to 30 days", issue.Medium),
			issue.New("unlimited liability", "cap liability", issue.Critical),
		),
		History: []step.Result{
			step.Succeeded("Contract Analysis", "in", "analysis", "Contract analyzed"),
			step.Succeeded("Law Retrieval", "analysis", "laws", "Relevant laws retrieved (4 reference chunks)"),
			step.Succeeded("Compliance Check", "laws", "2 compliance issue(s)", "Compliance check completed"),
		},
	}
}

func TestPrintReportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), false, false))

	out := buf.String()
	assert.NotContains(t, out, "run-7")
	critical := strings.Index(out, "unlimited liability")
	medium := strings.Index(out, "notice of 3 days")
	require.True(t, critical >= 0 && medium >= 0, out)
	assert.Less(t, critical, medium, "critical issues print first")
}

func TestPrintReportHistory(t *testing.T) {
	var buf bytes.Buffer
	report := sampleReport()
	report.History[2] = step.Failed("Compliance Check", "laws", "", "no result")
	require.NoError(t, printReport(&buf, report, true, false))

	out := buf.String()
	assert.Contains(t, out, "Run run-7")
	assert.Contains(t, out, "Law Retrieval")
	assert.Contains(t, out, "FAILED")
}

func TestPrintReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), false, true))

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "issues")
	assert.NotContains(t, got, "history")

	buf.Reset()
	require.NoError(t, printReport(&buf, sampleReport(), true, true))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "history")
}

func TestVersionCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clausecheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: clausecheck\nversion: 9.9.9\n"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", path, "version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "clausecheck 9.9.9\n", out.String())
}

func TestAnalyzeCommandMissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "analyze", filepath.Join(t.TempDir(), "missing.pdf")})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.pdf")
}
