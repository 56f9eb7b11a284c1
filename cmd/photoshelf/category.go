package main

import (
	"github.com/spf13/cobra"

	"github.com/Oxyrus/photoshelf/internal/config"
	"github.com/Oxyrus/photoshelf/internal/organizer"
)

func newCategoryCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage categories",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, cfg, opts, func(a *app) error {
					return a.run(cmd.Context(), organizer.AddCategory{Name: args[0]}, nil)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List categories in creation order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, cfg, opts, func(a *app) error {
					return a.run(cmd.Context(), organizer.ListCategories{}, writeCategoryNames)
				})
			},
		},
		&cobra.Command{
			Use:   "rename <old> <new>",
			Short: "Rename a category, keeping its photos",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, cfg, opts, func(a *app) error {
					return a.run(cmd.Context(), organizer.RenameCategory{Old: args[0], New: args[1]}, nil)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a category; its photos follow the configured delete policy",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, cfg, opts, func(a *app) error {
					return a.run(cmd.Context(), organizer.DeleteCategory{Name: args[0]}, nil)
				})
			},
		},
	)

	return cmd
}
