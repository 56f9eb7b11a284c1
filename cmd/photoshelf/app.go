package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Oxyrus/photoshelf/internal/config"
	"github.com/Oxyrus/photoshelf/internal/files"
	"github.com/Oxyrus/photoshelf/internal/logging"
	"github.com/Oxyrus/photoshelf/internal/organizer"
	"github.com/Oxyrus/photoshelf/internal/storage/sqlite"
)

// app is everything a command needs for one invocation.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	files      *files.Service
	dispatcher *organizer.Dispatcher
	out        *output
}

// withApp opens the catalog, runs fn and closes the catalog again.
func withApp(cmd *cobra.Command, cfg *config.Config, opts *rootOptions, fn func(a *app) error) error {
	level := cfg.LogLevel
	if opts.logLevel != "" {
		parsed, err := logging.ParseLevel(opts.logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level %q", opts.logLevel)
		}
		level = parsed
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level)

	out, err := newOutput(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath,
		sqlite.WithLogger(logger),
		sqlite.WithDeletePolicy(cfg.DeletePolicy),
		sqlite.WithDefaultCategories(cfg.DefaultCategories),
	)
	if err != nil {
		logger.Error("failed to open sqlite database", "path", cfg.DBPath, "error", err)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close sqlite database", "error", err)
		}
	}()

	fileService, err := files.New(files.Options{
		BaseDir:      cfg.ResourcesDir,
		ResourcesDir: cfg.ResourcesDir,
		DownloadDir:  cfg.DownloadDir,
		Collision:    cfg.DownloadCollision,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	logger.Debug("catalog opened", "db", cfg.DBPath, "resources", cfg.ResourcesDir, "config", cfg.ConfigFile)

	return fn(&app{
		cfg:        cfg,
		logger:     logger,
		files:      fileService,
		dispatcher: organizer.NewDispatcher(logger, store, fileService),
		out:        out,
	})
}

// run dispatches intent, renders the result and turns a failed outcome into
// an error so the process exits non-zero.
func (a *app) run(ctx context.Context, intent organizer.Intent, text func(w io.Writer, res organizer.Result) error) error {
	res := a.dispatcher.Dispatch(ctx, intent)
	if err := a.out.result(res, text); err != nil {
		return err
	}
	if !res.OK() {
		return resultError{res: res}
	}
	return nil
}
