package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "memelens",
		Short: "Show a meme slideshow on a tracked marker",
		Long: `Memelens shows images from a numbered URL sequence on a tracked marker.

Run without a subcommand to open the viewer. Start "memelens tracker" to
serve marker status to viewers, or leave tracker.url empty to drive the
viewer with simulated tracking keys.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config.yaml or ~/.config/memelens/config.yaml)")

	cmd.AddCommand(
		newViewCmd(opts),
		newTrackerCmd(opts),
		newMarkCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}
