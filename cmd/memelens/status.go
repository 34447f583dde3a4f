package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/memelens/memelens/internal/config"
	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/views/markers"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var (
		trackerURL string
		width      int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a running tracker's markers and process stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			hc, err := trackerClient(cfg, trackerURL)
			if err != nil {
				return err
			}

			ps, err := hc.GetStatus()
			if err != nil {
				return err
			}
			all, err := hc.GetTargets()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			uptime := time.Duration(ps.UptimeSeconds * float64(time.Second)).Round(time.Second)
			fmt.Fprintf(out, "uptime %s, %d viewer(s), rss %.1f MiB, cpu %.1f%%\n",
				uptime, ps.Clients, float64(ps.RSSBytes)/(1<<20), ps.CPUPercent)

			rows := make([]*targets.TargetState, len(all))
			for i := range all {
				rows[i] = &all[i]
			}
			view := markers.New()
			view.Width = width
			view.SetTargets(rows)
			fmt.Fprintln(out, view.View())
			return nil
		},
	}

	cmd.Flags().StringVar(&trackerURL, "tracker", "", "tracker URL (default tracker.url, then the local server address)")
	cmd.Flags().IntVar(&width, "width", 80, "table width")
	return cmd
}
