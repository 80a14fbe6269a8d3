package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"clausecheck/internal/analysis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rebuildIndex bool

// indexCmd loads or builds the reference index
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the reference law index, or report on the existing snapshot",
	Long: `Loads the index snapshot if it exists; otherwise splits and embeds the
configured reference documents and writes the snapshot.

Use --rebuild to discard the snapshot and build again.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&rebuildIndex, "rebuild", false, "Delete the existing snapshot first")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	loader, err := analysis.NewLoader(ctx, cfg)
	if err != nil {
		return err
	}

	if rebuildIndex {
		if err := os.Remove(loader.SnapshotPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove snapshot: %w", err)
		}
		logger.Info("Removed snapshot for rebuild", zap.String("path", loader.SnapshotPath))
	}

	idx, err := loader.LoadOrBuild(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Snapshot: %s\n", loader.SnapshotPath)
	fmt.Fprintf(w, "Chunks:   %d\n", idx.Len())
	fmt.Fprintf(w, "Sources:  %s\n", strings.Join(idx.Sources(), ", "))
	meta := idx.Meta()
	if engine := meta["engine"]; engine != "" {
		fmt.Fprintf(w, "Engine:   %s (%s dims)\n", engine, meta["dimensions"])
	}
	if built := meta["built_at"]; built != "" {
		fmt.Fprintf(w, "Built:    %s\n", built)
	}
	return nil
}
