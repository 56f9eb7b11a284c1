package files

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Image is a decoded photo ready for display.
type Image struct {
	Path        string      `json:"path" yaml:"path"`
	Format      string      `json:"format,omitempty" yaml:"format,omitempty"`
	Width       int         `json:"width" yaml:"width"`
	Height      int         `json:"height" yaml:"height"`
	TakenAt     *time.Time  `json:"taken_at,omitempty" yaml:"taken_at,omitempty"`
	CameraModel string      `json:"camera_model,omitempty" yaml:"camera_model,omitempty"`
	Image       image.Image `json:"-" yaml:"-"`
}

// LoadPhoto opens and decodes the image at path, applying the EXIF
// orientation. Every call reads the file again.
func (s *Service) LoadPhoto(ctx context.Context, path string) (*Image, error) {
	const op = "load photo"
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, op, err, "path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, s.fail(ctx, op, err, "path", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, s.fail(ctx, op, err, "path", path)
	}
	if info.IsDir() {
		return nil, s.fail(ctx, op, fmt.Errorf("%w: %s is a directory", ErrInvalid, path), "path", path)
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, s.fail(ctx, op, fmt.Errorf("%w: %w", ErrUndecodable, err), "path", path)
	}

	bounds := img.Bounds()
	out := &Image{
		Path:   path,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Image:  img,
	}
	if format, err := imaging.FormatFromFilename(path); err == nil {
		out.Format = strings.ToLower(format.String())
	}

	readExif(f, out)
	return out, nil
}

// readExif fills the capture time and camera model when the file carries
// EXIF data. Missing or broken EXIF is not an error.
func readExif(r io.ReadSeeker, out *Image) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return
	}

	x, err := exif.Decode(r)
	if err != nil {
		return
	}

	if taken, err := x.DateTime(); err == nil {
		out.TakenAt = &taken
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if model, err := tag.StringVal(); err == nil {
			out.CameraModel = strings.TrimSpace(model)
		}
	}
}

// Preview scales img to fit within width x height, keeping the aspect ratio.
// Images that already fit are returned unscaled.
func Preview(img *Image, width, height int) image.Image {
	if width <= 0 || height <= 0 || (img.Width <= width && img.Height <= height) {
		return img.Image
	}
	return imaging.Fit(img.Image, width, height, imaging.Lanczos)
}

// SavePreview writes the Preview of img to dst. The encoding follows the
// extension of dst.
func (s *Service) SavePreview(ctx context.Context, img *Image, dst string, width, height int) error {
	const op = "save preview"
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, op, err, "destination", dst)
	}
	if _, err := imaging.FormatFromFilename(dst); err != nil {
		return s.fail(ctx, op, fmt.Errorf("%w: %w", ErrInvalid, err), "destination", dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return s.fail(ctx, op, err, "destination", dst)
	}
	if err := imaging.Save(Preview(img, width, height), dst); err != nil {
		return s.fail(ctx, op, err, "destination", dst)
	}
	return nil
}
