package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Oxyrus/photoshelf/internal/files"
	"github.com/Oxyrus/photoshelf/internal/format"
	"github.com/Oxyrus/photoshelf/internal/organizer"
	"github.com/Oxyrus/photoshelf/internal/storage"
)

type output struct {
	w io.Writer
	// formatter is nil for plain text.
	formatter format.Formatter
}

func newOutput(w io.Writer, name string) (*output, error) {
	if name == "" || strings.EqualFold(name, "text") {
		return &output{w: w}, nil
	}
	formatter, err := format.New(name)
	if err != nil {
		return nil, fmt.Errorf("invalid --output: %w", err)
	}
	return &output{w: w, formatter: formatter}, nil
}

// result writes res. Structured formats always get the whole result. Plain
// text renders a successful result with text, or its notice when text is nil;
// a failed result is left to the error path.
func (o *output) result(res organizer.Result, text func(w io.Writer, res organizer.Result) error) error {
	if o.formatter != nil {
		return o.formatter.Write(o.w, res)
	}
	if !res.OK() {
		return nil
	}
	if text != nil {
		return text(o.w, res)
	}
	return writeNotice(o.w, res)
}

// value writes a payload that is not a Result, such as a slideshow frame.
func (o *output) value(payload any, text string) error {
	if o.formatter != nil {
		return o.formatter.Write(o.w, payload)
	}
	_, err := fmt.Fprintln(o.w, text)
	return err
}

type resultError struct {
	res organizer.Result
}

func (e resultError) Error() string {
	if e.res.Notice != "" {
		return e.res.Notice
	}
	return e.res.Outcome.String()
}

func (e resultError) Unwrap() error {
	return e.res.Err
}

// exitCode is 1 for faults and command errors, 2 when the catalog refused an
// action (not found, conflict, invalid input).
func exitCode(err error) int {
	var re resultError
	if errors.As(err, &re) && re.res.Outcome != storage.Faulted {
		return 2
	}
	return 1
}

func writeNotice(w io.Writer, res organizer.Result) error {
	if res.Notice == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, res.Notice)
	return err
}

func writeCategoryNames(w io.Writer, res organizer.Result) error {
	for _, name := range res.Categories {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

func writePhotoList(w io.Writer, res organizer.Result) error {
	if len(res.Photos) == 0 {
		_, err := fmt.Fprintln(w, "No photos.")
		return err
	}
	for _, photo := range res.Photos {
		if _, err := fmt.Fprintln(w, formatPhotoLine(photo)); err != nil {
			return err
		}
	}
	return nil
}

func writeFileNames(w io.Writer, res organizer.Result) error {
	for _, name := range res.Files {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

func writeImageDetail(w io.Writer, res organizer.Result) error {
	if res.Image == nil {
		return writeNotice(w, res)
	}

	lines := imageLines(res.Image)
	if res.Path != "" {
		lines = append(lines, fmt.Sprintf("preview: %s", res.Path))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func imageLines(img *files.Image) []string {
	lines := []string{
		fmt.Sprintf("path: %s", img.Path),
		fmt.Sprintf("size: %dx%d", img.Width, img.Height),
	}
	if img.Format != "" {
		lines = append(lines, fmt.Sprintf("format: %s", img.Format))
	}
	if img.TakenAt != nil {
		lines = append(lines, fmt.Sprintf("taken_at: %s", formatTime(*img.TakenAt)))
	}
	if img.CameraModel != "" {
		lines = append(lines, fmt.Sprintf("camera: %s", img.CameraModel))
	}
	return lines
}

func formatPhotoLine(photo storage.Photo) string {
	return fmt.Sprintf("%d\t%s\t%s", photo.ID, photo.Name, photo.Path)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
