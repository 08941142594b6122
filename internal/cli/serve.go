package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bookrec/internal/logging"
	"bookrec/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Start the HTTP API:

  GET /recommend/{query}                 text query
  GET /recommend_from_library/{bookID}   neighbours of a stored book
  GET /recommend_user/{userID}           collaborative recommendations
  GET /healthz                           snapshot readiness
  GET /metrics                           Prometheus metrics

Example:
  bookrec serve --addr :8000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := logging.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Server.Preload {
		if _, err := a.snapshots.Get(ctx); err != nil {
			return fmt.Errorf("failed to preload snapshot: %w", err)
		}
		if _, err := a.collab.Get(ctx); err != nil {
			// The content routes still work without ratings.
			logger.Warn().Err(err).Msg("collaborative model not preloaded")
		}
	}

	ready := func(ctx context.Context) error {
		snap, err := a.snapshots.Get(ctx)
		if err != nil {
			return err
		}
		stale, err := snap.Stale()
		if err != nil {
			return err
		}
		if stale {
			a.snapshots.Reset()
			return fmt.Errorf("snapshot was replaced; reloading on next request")
		}
		return nil
	}

	srvCfg := cfg.Server
	if serveAddr != "" {
		srvCfg.Addr = serveAddr
	}
	srv := server.New(a.recommender, ready, srvCfg, logging.Component("http"))
	return srv.ListenAndServe(ctx)
}
