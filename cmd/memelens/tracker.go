package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/memelens/memelens/internal/config"
	"github.com/memelens/memelens/internal/logging"
	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/mock"
	"github.com/memelens/memelens/internal/server"
	"github.com/memelens/memelens/internal/targets"
)

func newTrackerCmd(opts *rootOptions) *cobra.Command {
	var (
		port    int
		useMock bool
	)

	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Serve marker status to viewers over websocket",
		Long: `Runs the tracker bridge. Viewers connect to /ws and receive a snapshot
followed by status changes. Detectors report through
POST /api/targets/{id}/status; with mock enabled simulated markers are
generated as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("mock") {
				cfg.Mock.Enabled = useMock
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTracker(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server port")
	cmd.Flags().BoolVar(&useMock, "mock", true, "generate simulated markers")
	return cmd
}

func runTracker(ctx context.Context, cfg *config.Config) error {
	logger, closer, err := logging.Setup(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	m := metrics.New()
	store := targets.NewStore()
	broadcaster := server.NewBroadcaster(store, cfg.Server.SnapshotInterval, cfg.Server.MaxConnections, logger, m)
	defer broadcaster.Stop()

	srv := server.NewServer(cfg.Server, store, broadcaster, logger, m)

	if cfg.Mock.Enabled {
		logger.Info("starting mock markers", "interval", cfg.Mock.Interval)
		mock.NewGenerator(srv, cfg.Mock.Interval).Start(ctx)
	}

	return server.ListenAndServe(ctx, cfg.ListenAddr(), srv.Router(), logger)
}
