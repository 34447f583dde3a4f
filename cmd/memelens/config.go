package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/memelens/memelens/internal/config"
)

const (
	promptBaseLink = "Image base link:"
	promptFormat   = "Image format:"
	promptMaxIndex = "Highest image index:"
	promptTracker  = "Tracker URL (leave empty for simulated tracking):"
)

var (
	// askOneFunc is swapped out in tests.
	askOneFunc = survey.AskOne

	imageFormats = []string{".jpg", ".png", ".gif", ".webp"}
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(opts))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		path     string
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.DefaultPath()
			}
			return runConfigInit(cmd, path, defaults)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "where to write the file (default ~/.config/memelens/config.yaml)")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the defaults without asking")
	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, defaults bool) error {
	out := cmd.OutOrStdout()
	cfg := config.Default()

	if _, err := os.Stat(path); err == nil && !defaults {
		overwrite := false
		if err := askOneFunc(&survey.Confirm{
			Message: fmt.Sprintf("%s exists. Overwrite?", path),
			Default: false,
		}, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(out, "Config left unchanged.")
			return nil
		}
	}

	if !defaults {
		if err := askSlideshow(cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Write(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func askSlideshow(cfg *config.Config) error {
	if err := askOneFunc(&survey.Input{
		Message: promptBaseLink,
		Default: cfg.Slideshow.BaseLink,
		Help:    "Images are fetched from <base link><index><format>.",
	}, &cfg.Slideshow.BaseLink); err != nil {
		return err
	}

	if err := askOneFunc(&survey.Select{
		Message: promptFormat,
		Options: imageFormats,
		Default: cfg.Slideshow.Format,
	}, &cfg.Slideshow.Format); err != nil {
		return err
	}

	maxIndex := strconv.Itoa(cfg.Slideshow.MaxIndex)
	if err := askOneFunc(&survey.Input{
		Message: promptMaxIndex,
		Default: maxIndex,
	}, &maxIndex, survey.WithValidator(validateIndex)); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(maxIndex))
	if err != nil {
		return fmt.Errorf("invalid image index %q", maxIndex)
	}
	cfg.Slideshow.MaxIndex = n

	return askOneFunc(&survey.Input{
		Message: promptTracker,
		Default: cfg.Tracker.URL,
	}, &cfg.Tracker.URL)
}

func validateIndex(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return errors.New("expected text")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a positive whole number")
	}
	return nil
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
