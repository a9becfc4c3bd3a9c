package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/config"
	httpAdapter "github.com/aretw0/canopy/pkg/adapters/http"
	"github.com/aretw0/canopy/pkg/adapters/file"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long: `Starts Canopy in server mode: a JSON API to compile and inspect workflows and manage
sessions, a WebSocket endpoint streaming agent events, and Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// runServe returns instead of exiting so that the studio and backend are always closed.
func runServe(cmd *cobra.Command) error {
	cfg, logger := setup(cmd)
	if cmd.Flags().Changed("addr") {
		cfg.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("graph") {
		cfg.Graph, _ = cmd.Flags().GetString("graph")
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch, _ = cmd.Flags().GetBool("watch")
	}
	staticDir, _ := cmd.Flags().GetString("static")

	sc := cli.NewSignalContext(context.Background())
	defer sc.Cancel()

	metrics := observability.NewMetrics()
	studio, backend, err := buildStudio(sc, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer studio.Close()

	if cfg.Graph != "" {
		if err := startGraph(sc, studio, cfg, logger); err != nil {
			return err
		}
	}

	srv := newHTTPServer(sc, sc.Cancel, cfg.Addr, httpAdapter.NewHandler(studio,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(metrics),
		httpAdapter.WithStaticDir(staticDir),
	))

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Starting Canopy Server", "addr", srv.Addr, "history", cfg.HistoryBackend)
		serverErrors <- srv.ListenAndServe()
	}()

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "err", err)
			return err
		}
		return nil

	case <-sc.Done():
		logger.Info("Start shutdown...", "signal", sc.Signal())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
			if err := srv.Close(); err != nil {
				logger.Error("Error killing server", "err", err)
			}
		}
		logger.Info("Canopy Server stopped gracefully")
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8000", "Address to listen on (overrides CANOPY_ADDR)")
	serveCmd.Flags().String("graph", "", "Graph export to compile at startup (overrides CANOPY_GRAPH)")
	serveCmd.Flags().Bool("watch", false, "Recompile when the graph file changes (overrides CANOPY_WATCH)")
	serveCmd.Flags().String("static", "", "Directory of a frontend to serve on /")
}

// newHTTPServer derives every request context from ctx and cancels it on Shutdown, which
// is what ends hijacked WebSocket connections.
func newHTTPServer(ctx context.Context, cancel func(), addr string, h http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

// buildStudio creates the history backend and the Studio on top of it.
func buildStudio(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*canopy.Studio, *cli.Backend, error) {
	backend, err := cli.NewBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize history backend: %w", err)
	}
	return cli.NewStudio(cfg, backend, logger, metrics), backend, nil
}

// startGraph compiles cfg.Graph and keeps recompiling it in the background when watching
// is enabled.
func startGraph(ctx context.Context, studio *canopy.Studio, cfg *config.Config, logger *slog.Logger) error {
	loader := file.NewLoader(cfg.Graph)
	wf, err := studio.LoadFrom(ctx, loader)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", cfg.Graph, err)
	}
	logger.Info("Workflow loaded", "graph", cfg.Graph, "entry_point", wf.EntryPoint().Name(), "nodes", wf.Len())

	if !cfg.Watch {
		return nil
	}
	go func() {
		if err := studio.Watch(ctx, loader); err != nil {
			logger.Error("Graph watcher stopped", "err", err)
		}
	}()
	return nil
}
