package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memelens/memelens/internal/client"
	"github.com/memelens/memelens/internal/config"
	"github.com/memelens/memelens/internal/tracking"
)

var statusNames = []string{"tracked", "extended_tracked", "limited", "no_pose"}

func newMarkCmd(opts *rootOptions) *cobra.Command {
	var (
		trackerURL string
		info       string
	)

	cmd := &cobra.Command{
		Use:   "mark <target-id> <status>",
		Short: "Report a marker status to a running tracker",
		Long: fmt.Sprintf(`Posts a status for one marker to the tracker bridge, which forwards it
to every connected viewer.

Status is one of: %s.`, strings.Join(statusNames, ", ")),
		Example: "  memelens mark poster tracked\n  memelens mark poster no_pose --info occluded",
		Args:    cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return statusNames, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, status := args[0], args[1]
			if _, ok := tracking.ParseStatus(status); !ok {
				return fmt.Errorf("unknown status %q (want one of %s)", status, strings.Join(statusNames, ", "))
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			hc, err := trackerClient(cfg, trackerURL)
			if err != nil {
				return err
			}
			st, err := hc.SetStatus(id, status, info)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", st.Target.DisplayName(), st.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&trackerURL, "tracker", "", "tracker URL (default tracker.url, then the local server address)")
	cmd.Flags().StringVar(&info, "info", "", "status detail, e.g. occluded")
	return cmd
}

// trackerClient resolves the tracker's REST base from override, then
// tracker.url, then the local server address.
func trackerClient(cfg *config.Config, override string) (*client.HTTPClient, error) {
	url := override
	if url == "" {
		url = cfg.Tracker.URL
	}
	if url == "" {
		url = "http://" + cfg.ListenAddr()
	}
	base, err := client.HTTPBase(url)
	if err != nil {
		return nil, fmt.Errorf("invalid tracker url: %w", err)
	}

	token := cfg.Tracker.Token
	if token == "" {
		token = cfg.Server.AuthToken
	}
	return client.NewHTTPClient(base, token), nil
}
