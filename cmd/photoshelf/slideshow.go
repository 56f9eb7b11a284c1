package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Oxyrus/photoshelf/internal/config"
	"github.com/Oxyrus/photoshelf/internal/organizer"
	"github.com/Oxyrus/photoshelf/internal/slideshow"
)

type frame struct {
	Index  int    `json:"index" yaml:"index"`
	Total  int    `json:"total" yaml:"total"`
	Path   string `json:"path" yaml:"path"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newSlideshowCmd(cfg *config.Config, opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		frames   int
	)

	cmd := &cobra.Command{
		Use:   "slideshow <category>",
		Short: "Cycle through the photos of a category until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, opts, func(a *app) error {
				res := a.dispatcher.Dispatch(cmd.Context(), organizer.StartSlideshow{Category: args[0]})
				if !res.OK() || len(res.Slides) == 0 {
					if err := a.out.result(res, nil); err != nil {
						return err
					}
					if !res.OK() {
						return resultError{res: res}
					}
					return nil
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				return playSlides(ctx, a, res.Slides, interval, frames)
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", cfg.SlideshowInterval, "time each photo stays on screen")
	cmd.Flags().IntVar(&frames, "frames", 0, "stop after this many photos (0 runs until interrupted)")

	return cmd
}

func playSlides(ctx context.Context, a *app, slides []string, interval time.Duration, frames int) error {
	var (
		player   *slideshow.Player
		shown    int
		writeErr error
	)

	player = slideshow.NewPlayer(slides, interval, func(index int, path string) {
		if frames > 0 && shown >= frames {
			return
		}

		f := frame{Index: index, Total: len(slides), Path: path}
		img, err := a.files.LoadPhoto(ctx, path)
		if err != nil {
			f.Error = err.Error()
		} else {
			f.Width, f.Height = img.Width, img.Height
		}

		if err := a.out.value(f, formatFrame(f)); err != nil {
			writeErr = err
			player.Stop()
			return
		}

		shown++
		if frames > 0 && shown >= frames {
			player.Stop()
		}
	})
	player.OnClose = func() {
		a.logger.Debug("slideshow closed", "shown", shown)
	}

	err := player.Run(ctx)
	if writeErr != nil {
		return writeErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func formatFrame(f frame) string {
	line := fmt.Sprintf("[%d/%d] %s", f.Index+1, f.Total, f.Path)
	if f.Error != "" {
		return line + " (" + f.Error + ")"
	}
	return fmt.Sprintf("%s (%dx%d)", line, f.Width, f.Height)
}
