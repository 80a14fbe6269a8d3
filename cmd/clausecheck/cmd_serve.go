package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"clausecheck/internal/analysis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

// serveCmd runs the HTTP front door
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the contract analysis HTTP API",
	Long: `Starts the HTTP API:
  POST /api/v1/contracts/analyze   multipart field "file" (pdf or docx)
  GET  /healthz

The reference index is loaded at startup and rebuilt on the next request if
its snapshot file is removed.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	svc, loader, err := analysis.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	// Fail at startup rather than on the first request.
	if _, err := loader.LoadOrBuild(ctx); err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(svc, cfg.Server.MaxUploadBytes, cfg.GetRequestTimeout()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loader.Watch(gctx)
	})
	g.Go(func() error {
		logger.Info("Listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
