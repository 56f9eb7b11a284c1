package main

import (
	"github.com/spf13/cobra"

	"github.com/Oxyrus/photoshelf/internal/config"
)

type rootOptions struct {
	output   string
	logLevel string
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "photoshelf",
		Short:         "Photoshelf organises local photos into categories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides PHOTOSHELF_LOG_LEVEL)")

	cmd.AddCommand(
		newCategoryCmd(cfg, opts),
		newPhotoCmd(cfg, opts),
		newSlideshowCmd(cfg, opts),
	)

	return cmd
}
