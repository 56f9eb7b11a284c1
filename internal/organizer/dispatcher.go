package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Oxyrus/photoshelf/internal/files"
	"github.com/Oxyrus/photoshelf/internal/storage"
)

// FileService is the part of files.Service the Dispatcher relies on.
type FileService interface {
	SavePhoto(ctx context.Context, source, category string) (string, error)
	LoadPhoto(ctx context.Context, path string) (*files.Image, error)
	SavePreview(ctx context.Context, img *files.Image, dst string, width, height int) error
	DownloadPhoto(ctx context.Context, source, name string) (string, error)
	ListPhotos(category string) ([]string, error)
	DeleteFile(relPath string) error
	Rel(path string) (string, bool)
}

// Result is what the presentation layer renders after an intent ran.
type Result struct {
	Intent     string          `json:"intent" yaml:"intent"`
	Outcome    storage.Outcome `json:"outcome" yaml:"outcome"`
	Notice     string          `json:"notice,omitempty" yaml:"notice,omitempty"`
	Categories []string        `json:"categories,omitempty" yaml:"categories,omitempty"`
	Photos     []storage.Photo `json:"photos,omitempty" yaml:"photos,omitempty"`
	Photo      *storage.Photo  `json:"photo,omitempty" yaml:"photo,omitempty"`
	Path       string          `json:"path,omitempty" yaml:"path,omitempty"`
	Files      []string        `json:"files,omitempty" yaml:"files,omitempty"`
	Image      *files.Image    `json:"image,omitempty" yaml:"image,omitempty"`
	Slides     []string        `json:"slides,omitempty" yaml:"slides,omitempty"`
	Err        error           `json:"-" yaml:"-"`
}

// OK reports whether the intent was applied.
func (r Result) OK() bool {
	return r.Outcome == storage.Applied
}

// Dispatcher interprets intents against the catalog and the file service.
type Dispatcher struct {
	logger *slog.Logger
	store  storage.Store
	files  FileService
}

func NewDispatcher(logger *slog.Logger, store storage.Store, fileService FileService) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		store:  store,
		files:  fileService,
	}
}

// Dispatch runs intent and reports its result. Storage and file faults come
// back as a Faulted result, never as a panic.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) Result {
	start := time.Now()

	var res Result
	switch in := intent.(type) {
	case AddCategory:
		res = d.addCategory(ctx, in)
	case ListCategories:
		res = d.listCategories(ctx)
	case RenameCategory:
		res = d.renameCategory(ctx, in)
	case DeleteCategory:
		res = d.deleteCategory(ctx, in)
	case AddPhoto:
		res = d.addPhoto(ctx, in)
	case ListPhotos:
		res = d.listPhotos(ctx, in)
	case ListOrphans:
		res = d.listOrphans(ctx)
	case DeletePhoto:
		res = d.deletePhoto(ctx, in)
	case DownloadPhoto:
		res = d.downloadPhoto(ctx, in)
	case PreviewPhoto:
		res = d.previewPhoto(ctx, in)
	case ListCategoryFiles:
		res = d.listCategoryFiles(in)
	case StartSlideshow:
		res = d.startSlideshow(ctx, in)
	default:
		res = Result{Outcome: storage.Invalid, Notice: "Unsupported action."}
	}

	if intent != nil {
		res.Intent = intent.Kind()
	}
	d.logResult(ctx, res, time.Since(start))
	return res
}

func (d *Dispatcher) logResult(ctx context.Context, res Result, latency time.Duration) {
	attrs := []slog.Attr{
		slog.String("intent", res.Intent),
		slog.String("outcome", res.Outcome.String()),
		slog.Duration("latency", latency),
	}

	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}

	if res.Outcome == storage.Faulted {
		d.logger.LogAttrs(ctx, slog.LevelError, "intent failed", attrs...)
		return
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "intent completed", attrs...)
}

func (d *Dispatcher) addCategory(ctx context.Context, in AddCategory) Result {
	name := strings.TrimSpace(in.Name)

	_, err := d.store.Categories().Create(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrConflict):
		return Result{Outcome: storage.Conflict, Notice: fmt.Sprintf("A category named %q already exists.", name), Err: err}
	case errors.Is(err, storage.ErrInvalid):
		return Result{Outcome: storage.Invalid, Notice: "Category name must be a single, non-empty folder name.", Err: err}
	default:
		return faulted("Failed to add category.", err)
	}

	return d.withCategories(ctx, Result{Notice: fmt.Sprintf("Category %q added.", name)})
}

func (d *Dispatcher) listCategories(ctx context.Context) Result {
	return d.withCategories(ctx, Result{})
}

func (d *Dispatcher) renameCategory(ctx context.Context, in RenameCategory) Result {
	newName := strings.TrimSpace(in.New)

	_, err := d.store.Categories().Rename(ctx, in.Old, newName)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("Category %q not found.", in.Old), Err: err}
	case errors.Is(err, storage.ErrConflict):
		return Result{Outcome: storage.Conflict, Notice: fmt.Sprintf("A category named %q already exists.", newName), Err: err}
	case errors.Is(err, storage.ErrInvalid):
		return Result{Outcome: storage.Invalid, Notice: "Category name must be a single, non-empty folder name.", Err: err}
	default:
		return faulted("Failed to rename category.", err)
	}

	return d.withCategories(ctx, Result{Notice: fmt.Sprintf("Category %q renamed to %q.", in.Old, newName)})
}

func (d *Dispatcher) deleteCategory(ctx context.Context, in DeleteCategory) Result {
	err := d.store.Categories().Delete(ctx, in.Name)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("Category %q not found.", in.Name), Err: err}
	case errors.Is(err, storage.ErrConflict):
		return Result{Outcome: storage.Conflict, Notice: fmt.Sprintf("Category %q still has photos.", in.Name), Err: err}
	default:
		return faulted("Failed to delete category.", err)
	}

	return d.withCategories(ctx, Result{Notice: fmt.Sprintf("Category %q deleted.", in.Name)})
}

func (d *Dispatcher) addPhoto(ctx context.Context, in AddPhoto) Result {
	category := strings.TrimSpace(in.Category)

	if _, err := d.store.Categories().GetByName(ctx, category); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("Category %q not found.", category), Err: err}
		}
		return faulted("Failed to add photo.", err)
	}

	// Catalogs written before folder names were enforced may hold such rows.
	if err := storage.ValidateCategoryName(category); err != nil {
		return Result{Outcome: storage.Invalid, Notice: fmt.Sprintf("Category %q cannot hold photos: it is not a single folder name.", category), Err: err}
	}

	saved, err := d.files.SavePhoto(ctx, in.Path, category)
	if err != nil {
		return fileFailure("Failed to copy photo.", in.Path, err)
	}

	photo, err := d.store.Photos().Create(ctx, storage.PhotoCreate{Path: saved, CategoryName: category})
	if err != nil {
		d.discard(ctx, saved)
		if errors.Is(err, storage.ErrNotFound) {
			return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("Category %q not found.", category), Err: err}
		}
		return faulted("Failed to add photo.", err)
	}

	photos, err := d.store.Photos().ListByCategory(ctx, category)
	if err != nil {
		return faulted("Failed to load photos.", err)
	}

	return Result{
		Notice: fmt.Sprintf("Photo %q added to %q.", photo.Name, category),
		Photo:  &photo,
		Photos: photos,
		Path:   saved,
	}
}

func (d *Dispatcher) listPhotos(ctx context.Context, in ListPhotos) Result {
	photos, err := d.store.Photos().ListByCategory(ctx, in.Category)
	if err != nil {
		return faulted("Failed to load photos.", err)
	}
	return Result{Photos: photos}
}

func (d *Dispatcher) listOrphans(ctx context.Context) Result {
	photos, err := d.store.Photos().ListOrphans(ctx)
	if err != nil {
		return faulted("Failed to load photos.", err)
	}
	return Result{Photos: photos}
}

func (d *Dispatcher) deletePhoto(ctx context.Context, in DeletePhoto) Result {
	photo, err := d.store.Photos().GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("Photo %d not found.", in.ID), Err: err}
		}
		return faulted("Failed to delete photo.", err)
	}

	if err := d.store.Photos().Delete(ctx, in.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("Photo %d not found.", in.ID), Err: err}
		}
		return faulted("Failed to delete photo.", err)
	}

	res := Result{Notice: fmt.Sprintf("Photo %q deleted.", photo.Name), Photo: &photo}

	rel, managed := d.files.Rel(photo.Path)
	if !managed {
		return res
	}

	if err := d.files.DeleteFile(rel); err != nil {
		if errors.Is(err, files.ErrNotFound) {
			res.Notice = fmt.Sprintf("Photo %q deleted; its file was already gone.", photo.Name)
			return res
		}
		d.logger.WarnContext(ctx, "photo row deleted but file remains", "id", photo.ID, "path", photo.Path, "error", err)
		res.Notice = fmt.Sprintf("Photo %q deleted; its file could not be removed.", photo.Name)
		res.Err = err
	}
	return res
}

func (d *Dispatcher) downloadPhoto(ctx context.Context, in DownloadPhoto) Result {
	source := in.Path
	if in.ID != 0 {
		photo, err := d.store.Photos().GetByID(ctx, in.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("Photo %d not found.", in.ID), Err: err}
			}
			return faulted("Failed to download photo.", err)
		}
		source = photo.Path
	}

	if strings.TrimSpace(source) == "" {
		return Result{Outcome: storage.Invalid, Notice: "Select a photo to download."}
	}

	dst, err := d.files.DownloadPhoto(ctx, source, in.FileName)
	if err != nil {
		return fileFailure("Failed to download photo.", source, err)
	}

	return Result{Notice: fmt.Sprintf("Photo downloaded to %s.", dst), Path: dst}
}

func (d *Dispatcher) previewPhoto(ctx context.Context, in PreviewPhoto) Result {
	img, err := d.files.LoadPhoto(ctx, in.Path)
	if err != nil {
		return fileFailure("Failed to load photo.", in.Path, err)
	}

	res := Result{Image: img}
	if in.PreviewPath == "" {
		return res
	}

	if err := d.files.SavePreview(ctx, img, in.PreviewPath, in.Width, in.Height); err != nil {
		return fileFailure("Failed to write preview.", in.PreviewPath, err)
	}
	res.Path = in.PreviewPath
	return res
}

func (d *Dispatcher) listCategoryFiles(in ListCategoryFiles) Result {
	category := strings.TrimSpace(in.Category)
	names, err := d.files.ListPhotos(category)
	if err != nil {
		return fileFailure("Failed to list category folder.", category, err)
	}
	return Result{Files: names}
}

func (d *Dispatcher) startSlideshow(ctx context.Context, in StartSlideshow) Result {
	photos, err := d.store.Photos().ListByCategory(ctx, in.Category)
	if err != nil {
		return faulted("Failed to load photos.", err)
	}

	slides := make([]string, 0, len(photos))
	for _, photo := range photos {
		slides = append(slides, photo.Path)
	}

	res := Result{Slides: slides}
	if len(slides) == 0 {
		res.Notice = fmt.Sprintf("No photos in %q to show.", in.Category)
	}
	return res
}

func (d *Dispatcher) withCategories(ctx context.Context, res Result) Result {
	names, err := d.store.Categories().Names(ctx)
	if err != nil {
		return faulted("Failed to load categories.", err)
	}
	res.Categories = names
	return res
}

// discard removes a file copied for a catalog write that did not happen.
func (d *Dispatcher) discard(ctx context.Context, path string) {
	rel, managed := d.files.Rel(path)
	if !managed {
		d.logger.WarnContext(ctx, "copied photo left outside managed storage", "path", path)
		return
	}
	if err := d.files.DeleteFile(rel); err != nil {
		d.logger.WarnContext(ctx, "failed to discard copied photo", "path", path, "error", err)
	}
}

func faulted(notice string, err error) Result {
	return Result{Outcome: storage.Faulted, Notice: notice, Err: err}
}

// fileFailure maps a files error to a result. An undecodable image is
// reported apart from a missing file.
func fileFailure(notice, path string, err error) Result {
	switch {
	case errors.Is(err, files.ErrNotFound):
		return Result{Outcome: storage.NotFound, Notice: fmt.Sprintf("%s %s does not exist.", notice, path), Err: err}
	case errors.Is(err, files.ErrUndecodable):
		return Result{Outcome: storage.Invalid, Notice: fmt.Sprintf("%s %s is not a readable image.", notice, path), Err: err}
	case errors.Is(err, files.ErrExists):
		return Result{Outcome: storage.Conflict, Notice: fmt.Sprintf("%s A file with that name already exists.", notice), Err: err}
	case errors.Is(err, files.ErrInvalid):
		return Result{Outcome: storage.Invalid, Notice: fmt.Sprintf("%s %q is not a valid name or path.", notice, path), Err: err}
	case errors.Is(err, files.ErrPermission):
		return Result{Outcome: storage.Faulted, Notice: fmt.Sprintf("%s Permission denied for %s.", notice, path), Err: err}
	default:
		return faulted(notice, err)
	}
}
