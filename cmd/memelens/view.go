package main

import (
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/memelens/memelens/internal/app"
	"github.com/memelens/memelens/internal/client"
	"github.com/memelens/memelens/internal/config"
	"github.com/memelens/memelens/internal/fetch"
	"github.com/memelens/memelens/internal/logging"
	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/store"
)

func newViewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Open the viewer (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts)
		},
	}
}

func runView(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so the viewer only logs to file.
	logger, closer, err := logging.Setup(cfg.Logging, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(cfg.Metrics.Addr); err != nil {
				logger.Error("metrics listener stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	fetcher, closeCache, err := newFetcher(cfg, logger, m)
	if err != nil {
		return err
	}
	defer closeCache()

	var ws *client.WSClient
	if !cfg.Simulated() {
		ws = client.NewWSClient(cfg.Tracker.URL, cfg.Tracker.Token, logger)
	}

	var background *fetch.Image
	if cfg.Menu.Background != "" {
		background, err = fetch.LoadFile(cfg.Menu.Background)
		if err != nil {
			logger.Warn("menu background unavailable", "path", cfg.Menu.Background, "error", err)
		}
	}

	model, err := app.New(app.Options{
		Config:     cfg,
		WS:         ws,
		Fetcher:    fetcher,
		Background: background,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return err
	}
	defer model.Shutdown()

	logger.Info("viewer starting",
		"simulated", cfg.Simulated(),
		"min_index", cfg.Slideshow.MinIndex,
		"max_index", cfg.Slideshow.MaxIndex,
	)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
			return nil
		}
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// newFetcher builds the image fetcher. The bbolt cache is only used when
// cache.dir is set.
func newFetcher(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*fetch.Fetcher, func() error, error) {
	fetcher := fetch.NewFetcher(cfg.Slideshow.FetchTimeout, logger)
	fetcher.MaxBytes = cfg.Slideshow.MaxBytes
	fetcher.SetMetrics(m)

	if cfg.Cache.Dir == "" {
		return fetcher, func() error { return nil }, nil
	}
	cache, err := store.Open(cfg.Cache.Dir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image cache: %w", err)
	}
	fetcher.SetCache(cache)
	logger.Info("image cache enabled", "dir", cfg.Cache.Dir)
	return fetcher, cache.Close, nil
}
