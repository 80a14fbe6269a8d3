package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"clausecheck/internal/analysis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	showHistory bool
	jsonOutput  bool
)

// analyzeCmd analyzes one contract file
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a PDF or DOCX contract for compliance issues",
	Long: `Extracts the text of the contract and runs it through the analysis,
retrieval and compliance steps. The reference index is loaded from its
snapshot, or built on first use.

Example:
  clausecheck analyze contract.pdf
  clausecheck analyze contract.docx --history`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&showHistory, "history", false, "Print every step outcome")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	svc, _, err := analysis.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	logger.Info("Analyzing contract", zap.String("file", path), zap.Int("bytes", len(data)))
	report, err := svc.AnalyzeFile(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}

	return printReport(cmd.OutOrStdout(), report, showHistory, jsonOutput)
}

// printReport writes the issues and, optionally, every step outcome.
func printReport(w io.Writer, report *analysis.Report, history, asJSON bool) error {
	if asJSON {
		if !history {
			report = &analysis.Report{RunID: report.RunID, Issues: report.Issues}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if history {
		fmt.Fprintf(w, "Run %s\n", report.RunID)
		for i, r := range report.History {
			status := "ok"
			if !r.Success {
				status = "FAILED"
			}
			fmt.Fprintf(w, "  %d. %-18s %-6s %s\n", i+1, r.StepName, status, r.Message)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, report.Issues.SortByImportance().String())
	return nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
