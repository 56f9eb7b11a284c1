package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Oxyrus/photoshelf/internal/config"
	"github.com/Oxyrus/photoshelf/internal/organizer"
)

func newPhotoCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "photo",
		Aliases: []string{"photos"},
		Short:   "Manage photos",
	}

	cmd.AddCommand(
		newPhotoAddCmd(cfg, opts),
		newPhotoListCmd(cfg, opts),
		newPhotoDeleteCmd(cfg, opts),
		newPhotoDownloadCmd(cfg, opts),
		newPhotoShowCmd(cfg, opts),
		newPhotoFilesCmd(cfg, opts),
	)

	return cmd
}

func newPhotoAddCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <path> [<path>...]",
		Short: "Copy photos into a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, opts, func(a *app) error {
				var failed error
				for _, path := range args {
					err := a.run(cmd.Context(), organizer.AddPhoto{Path: path, Category: category}, nil)
					if err == nil {
						continue
					}
					if len(args) > 1 {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					}
					failed = err
				}
				return failed
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "target category")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newPhotoListCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	var orphans bool

	cmd := &cobra.Command{
		Use:   "list [<category>]",
		Short: "List the photos of a category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var intent organizer.Intent
			switch {
			case orphans && len(args) == 0:
				intent = organizer.ListOrphans{}
			case !orphans && len(args) == 1:
				intent = organizer.ListPhotos{Category: args[0]}
			default:
				return errors.New("provide a category or --orphans")
			}

			return withApp(cmd, cfg, opts, func(a *app) error {
				return a.run(cmd.Context(), intent, writePhotoList)
			})
		},
	}

	cmd.Flags().BoolVar(&orphans, "orphans", false, "list photos whose category no longer exists")

	return cmd
}

func newPhotoDeleteCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a photo and its managed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, cfg, opts, func(a *app) error {
				return a.run(cmd.Context(), organizer.DeletePhoto{ID: id}, nil)
			})
		},
	}
}

func newPhotoDownloadCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	var (
		path string
		name string
	)

	cmd := &cobra.Command{
		Use:   "download [<id>]",
		Short: "Copy a photo to the download directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := organizer.DownloadPhoto{Path: path, FileName: name}
			switch {
			case len(args) == 1 && path == "":
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				intent.ID = id
			case len(args) == 0 && path != "":
			default:
				return errors.New("provide a photo id or --path")
			}

			return withApp(cmd, cfg, opts, func(a *app) error {
				return a.run(cmd.Context(), intent, nil)
			})
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "download this file instead of a catalog photo")
	cmd.Flags().StringVar(&name, "name", "", "destination file name")

	return cmd
}

func newPhotoShowCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	var (
		preview string
		width   int
		height  int
	)

	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Decode a photo and print its details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, opts, func(a *app) error {
				intent := organizer.PreviewPhoto{
					Path:        args[0],
					PreviewPath: preview,
					Width:       width,
					Height:      height,
				}
				return a.run(cmd.Context(), intent, writeImageDetail)
			})
		},
	}

	cmd.Flags().StringVar(&preview, "preview", "", "write a scaled preview to this file")
	cmd.Flags().IntVar(&width, "width", 800, "preview width")
	cmd.Flags().IntVar(&height, "height", 600, "preview height")

	return cmd
}

func newPhotoFilesCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "files <category>",
		Short: "List the image files in a category folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, opts, func(a *app) error {
				return a.run(cmd.Context(), organizer.ListCategoryFiles{Category: args[0]}, writeFileNames)
			})
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid photo id %q", raw)
	}
	return id, nil
}
