package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Oxyrus/photoshelf/internal/logging"
)

var (
	ErrNotFound    = errors.New("files: not found")
	ErrPermission  = errors.New("files: permission denied")
	ErrExists      = errors.New("files: destination exists")
	ErrInvalid     = errors.New("files: invalid path")
	ErrUndecodable = errors.New("files: not a decodable image")
)

// ImageExtensions lists the extensions, lower case, that ListPhotos reports.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

// Collision decides what a copy does when the destination already exists.
type Collision string

const (
	// CollisionSuffix picks the first free "name (n).ext".
	CollisionSuffix Collision = "suffix"
	// CollisionFail reports ErrExists.
	CollisionFail Collision = "fail"
	// CollisionOverwrite replaces the existing file.
	CollisionOverwrite Collision = "overwrite"
)

// ParseCollision parses a collision policy name. The empty string selects
// CollisionSuffix.
func ParseCollision(raw string) (Collision, error) {
	switch Collision(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CollisionSuffix:
		return CollisionSuffix, nil
	case CollisionFail:
		return CollisionFail, nil
	case CollisionOverwrite:
		return CollisionOverwrite, nil
	default:
		return "", fmt.Errorf("unknown download collision policy %q", raw)
	}
}

// Options configures a Service.
type Options struct {
	// BaseDir anchors the relative paths given to CopyFile and DeleteFile.
	BaseDir string
	// ResourcesDir holds one sub directory per category.
	ResourcesDir string
	// DownloadDir receives DownloadPhoto copies.
	DownloadDir string
	// Collision applies to DownloadPhoto only.
	Collision Collision
	Logger    *slog.Logger
}

// Service copies photos into and out of managed storage. It holds no state
// besides its directories.
type Service struct {
	baseDir      string
	resourcesDir string
	downloadDir  string
	collision    Collision
	logger       *slog.Logger
}

// New returns a Service. Directories are made absolute but not created.
func New(opts Options) (*Service, error) {
	dirs := map[string]*string{
		"base":      &opts.BaseDir,
		"resources": &opts.ResourcesDir,
		"download":  &opts.DownloadDir,
	}
	for label, dir := range dirs {
		if strings.TrimSpace(*dir) == "" {
			return nil, fmt.Errorf("files: %s directory is required", label)
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, fmt.Errorf("files: %s directory: %w", label, err)
		}
		*dir = abs
	}

	collision := opts.Collision
	if collision == "" {
		collision = CollisionSuffix
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Service{
		baseDir:      opts.BaseDir,
		resourcesDir: opts.ResourcesDir,
		downloadDir:  opts.DownloadDir,
		collision:    collision,
		logger:       logger,
	}, nil
}

// ResourcesDir returns the managed storage root.
func (s *Service) ResourcesDir() string {
	return s.resourcesDir
}

// DownloadDir returns the directory DownloadPhoto writes to.
func (s *Service) DownloadDir() string {
	return s.downloadDir
}

// SavePhoto copies source into the managed folder of category and returns the
// destination path. A name already taken in the folder always gets a " (n)"
// suffix, whatever the download collision policy. Nothing is written when the
// source cannot be read.
func (s *Service) SavePhoto(ctx context.Context, source, category string) (string, error) {
	const op = "save photo"
	if err := ctx.Err(); err != nil {
		return "", s.fail(ctx, op, err, "source", source)
	}
	if err := validName(category); err != nil {
		return "", s.fail(ctx, op, err, "category", category)
	}
	if err := checkSource(source); err != nil {
		return "", s.fail(ctx, op, err, "source", source)
	}

	dir := filepath.Join(s.resourcesDir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", s.fail(ctx, op, err, "dir", dir)
	}

	dst, err := destination(filepath.Join(dir, filepath.Base(source)), CollisionSuffix)
	if err != nil {
		return "", s.fail(ctx, op, err, "source", source)
	}

	if err := copyPreserving(source, dst); err != nil {
		return "", s.fail(ctx, op, err, "source", source, "destination", dst)
	}

	s.logger.DebugContext(ctx, "photo saved", "source", source, "destination", dst)
	return dst, nil
}

// DownloadPhoto copies source into the download directory as name, or as the
// base name of source when name is empty.
func (s *Service) DownloadPhoto(ctx context.Context, source, name string) (string, error) {
	const op = "download photo"
	if err := ctx.Err(); err != nil {
		return "", s.fail(ctx, op, err, "source", source)
	}

	if name == "" {
		name = filepath.Base(source)
	}
	if err := validName(name); err != nil {
		return "", s.fail(ctx, op, err, "name", name)
	}
	if err := checkSource(source); err != nil {
		return "", s.fail(ctx, op, err, "source", source)
	}

	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return "", s.fail(ctx, op, err, "dir", s.downloadDir)
	}

	dst, err := destination(filepath.Join(s.downloadDir, name), s.collision)
	if err != nil {
		return "", s.fail(ctx, op, err, "source", source)
	}

	if err := copyPreserving(source, dst); err != nil {
		return "", s.fail(ctx, op, err, "source", source, "destination", dst)
	}

	s.logger.DebugContext(ctx, "photo downloaded", "source", source, "destination", dst)
	return dst, nil
}

// ListPhotos returns the image file names in the managed folder of category,
// sorted by name. A missing folder yields an empty list.
func (s *Service) ListPhotos(category string) ([]string, error) {
	if err := validName(category); err != nil {
		return nil, s.fail(context.Background(), "list photos", err, "category", category)
	}

	dir := filepath.Join(s.resourcesDir, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("category folder missing", "category", category, "dir", dir)
			return []string{}, nil
		}
		return nil, s.fail(context.Background(), "list photos", err, "dir", dir)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !IsImageName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// CopyFile copies source to relDest under the base directory, creating
// intermediate directories.
func (s *Service) CopyFile(ctx context.Context, source, relDest string) error {
	const op = "copy file"
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, op, err, "source", source)
	}

	dst, err := s.resolve(relDest)
	if err != nil {
		return s.fail(ctx, op, err, "destination", relDest)
	}
	if err := checkSource(source); err != nil {
		return s.fail(ctx, op, err, "source", source)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return s.fail(ctx, op, err, "destination", dst)
	}
	if err := copyPreserving(source, dst); err != nil {
		return s.fail(ctx, op, err, "source", source, "destination", dst)
	}
	return nil
}

// DeleteFile removes relPath under the base directory.
func (s *Service) DeleteFile(relPath string) error {
	const op = "delete file"

	path, err := s.resolve(relPath)
	if err != nil {
		return s.fail(context.Background(), op, err, "path", relPath)
	}
	if err := os.Remove(path); err != nil {
		return s.fail(context.Background(), op, err, "path", path)
	}
	return nil
}

// Rel reports the path of p relative to the base directory when p lies inside
// it.
func (s *Service) Rel(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(s.baseDir, abs)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return rel, true
}

// IsImageName reports whether name carries one of ImageExtensions, ignoring
// case.
func IsImageName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Service) resolve(rel string) (string, error) {
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q is not inside the base directory", ErrInvalid, rel)
	}
	return filepath.Join(s.baseDir, rel), nil
}

func destination(path string, collision Collision) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		return "", err
	}

	switch collision {
	case CollisionOverwrite:
		return path, nil
	case CollisionFail:
		return "", fmt.Errorf("%w: %s", ErrExists, path)
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
}

// fail classifies err, logs it with the given attributes and wraps it.
func (s *Service) fail(ctx context.Context, op string, err error, attrs ...any) error {
	err = classify(err)
	s.logger.WarnContext(ctx, "file operation failed", append([]any{"op", op, "error", err}, attrs...)...)
	return fmt.Errorf("files: %s: %w", op, err)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPermission), errors.Is(err, ErrExists),
		errors.Is(err, ErrInvalid), errors.Is(err, ErrUndecodable):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	default:
		return err
	}
}

func validName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q must be a single path segment", ErrInvalid, name)
	}
	return nil
}

func checkSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("%w: source path is empty", ErrInvalid)
	}
	info, err := os.Stat(source)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalid, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return err
	}
	return f.Close()
}

// copyPreserving writes src to a temporary file next to dst and renames it
// into place, carrying over permission bits and the modification time.
func copyPreserving(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".photoshelf-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, in); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
