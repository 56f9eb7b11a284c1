package organizer_test

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/Oxyrus/photoshelf/internal/files"
	"github.com/Oxyrus/photoshelf/internal/logging"
	"github.com/Oxyrus/photoshelf/internal/organizer"
	"github.com/Oxyrus/photoshelf/internal/storage"
	"github.com/Oxyrus/photoshelf/internal/storage/sqlite"
)

type fixture struct {
	dispatcher *organizer.Dispatcher
	store      storage.Store
	files      *files.Service
	root       string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	root := t.TempDir()
	store, err := sqlite.Open(filepath.Join(root, "photoshelf.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc, err := files.New(files.Options{
		BaseDir:      root,
		ResourcesDir: filepath.Join(root, "resources"),
		DownloadDir:  filepath.Join(root, "downloads"),
		Logger:       logging.Discard(),
	})
	if err != nil {
		t.Fatalf("files.New returned error: %v", err)
	}

	return fixture{
		dispatcher: organizer.NewDispatcher(logging.Discard(), store, svc),
		store:      store,
		files:      svc,
		root:       root,
	}
}

func TestDispatchCategoryLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.dispatcher.Dispatch(ctx, organizer.AddCategory{Name: " Pets "})
	if !res.OK() {
		t.Fatalf("expected applied, got %v (%s)", res.Outcome, res.Notice)
	}
	if res.Intent != "add-category" {
		t.Fatalf("unexpected intent %q", res.Intent)
	}
	if !slices.Contains(res.Categories, "Pets") {
		t.Fatalf("expected refreshed categories to contain Pets, got %v", res.Categories)
	}

	dup := f.dispatcher.Dispatch(ctx, organizer.AddCategory{Name: "Pets"})
	if dup.Outcome != storage.Conflict {
		t.Fatalf("expected conflict, got %v", dup.Outcome)
	}
	if dup.Notice != `A category named "Pets" already exists.` {
		t.Fatalf("unexpected notice %q", dup.Notice)
	}

	empty := f.dispatcher.Dispatch(ctx, organizer.AddCategory{Name: ""})
	if empty.Outcome != storage.Invalid {
		t.Fatalf("expected invalid, got %v", empty.Outcome)
	}

	renamed := f.dispatcher.Dispatch(ctx, organizer.RenameCategory{Old: "Pets", New: "Animals"})
	if !renamed.OK() || !slices.Contains(renamed.Categories, "Animals") {
		t.Fatalf("expected rename to apply, got %+v", renamed)
	}

	missing := f.dispatcher.Dispatch(ctx, organizer.RenameCategory{Old: "Pets", New: "Dogs"})
	if missing.Outcome != storage.NotFound {
		t.Fatalf("expected not-found, got %v", missing.Outcome)
	}

	deleted := f.dispatcher.Dispatch(ctx, organizer.DeleteCategory{Name: "Animals"})
	if !deleted.OK() || slices.Contains(deleted.Categories, "Animals") {
		t.Fatalf("expected delete to apply, got %+v", deleted)
	}

	gone := f.dispatcher.Dispatch(ctx, organizer.DeleteCategory{Name: "Animals"})
	if gone.Outcome != storage.NotFound {
		t.Fatalf("expected not-found, got %v", gone.Outcome)
	}

	list := f.dispatcher.Dispatch(ctx, organizer.ListCategories{})
	if !slices.Equal(list.Categories, storage.DefaultCategories) {
		t.Fatalf("expected default categories, got %v", list.Categories)
	}
}

func TestDispatchAddPhotoCopiesAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := writeImage(t, filepath.Join(t.TempDir(), "rome.jpg"))

	res := f.dispatcher.Dispatch(ctx, organizer.AddPhoto{Path: source, Category: "Travel"})
	if !res.OK() {
		t.Fatalf("expected applied, got %v (%s): %v", res.Outcome, res.Notice, res.Err)
	}

	want := filepath.Join(f.root, "resources", "Travel", "rome.jpg")
	if res.Path != want {
		t.Fatalf("expected managed copy at %q, got %q", want, res.Path)
	}
	if res.Photo == nil || res.Photo.Path != want || res.Photo.Name != "rome.jpg" {
		t.Fatalf("unexpected photo %+v", res.Photo)
	}
	if len(res.Photos) != 1 {
		t.Fatalf("expected refreshed photo list, got %+v", res.Photos)
	}

	listed := f.dispatcher.Dispatch(ctx, organizer.ListCategoryFiles{Category: "Travel"})
	if !slices.Equal(listed.Files, []string{"rome.jpg"}) {
		t.Fatalf("expected rome.jpg in category folder, got %v", listed.Files)
	}

	slides := f.dispatcher.Dispatch(ctx, organizer.StartSlideshow{Category: "Travel"})
	if !slices.Equal(slides.Slides, []string{want}) {
		t.Fatalf("unexpected slides %v", slides.Slides)
	}
}

func TestDispatchAddPhotoMissingCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := writeImage(t, filepath.Join(t.TempDir(), "rome.jpg"))

	res := f.dispatcher.Dispatch(ctx, organizer.AddPhoto{Path: source, Category: "Nowhere"})
	if res.Outcome != storage.NotFound {
		t.Fatalf("expected not-found, got %v", res.Outcome)
	}
	if _, err := os.Stat(filepath.Join(f.root, "resources", "Nowhere")); !os.IsNotExist(err) {
		t.Fatalf("expected no managed folder, got %v", err)
	}

	orphans := f.dispatcher.Dispatch(ctx, organizer.ListOrphans{})
	if len(orphans.Photos) != 0 {
		t.Fatalf("expected no photo rows, got %+v", orphans.Photos)
	}
}

func TestDispatchAddPhotoMissingSource(t *testing.T) {
	f := newFixture(t)

	res := f.dispatcher.Dispatch(context.Background(), organizer.AddPhoto{
		Path:     filepath.Join(f.root, "nope.jpg"),
		Category: "Travel",
	})
	if res.Outcome != storage.NotFound {
		t.Fatalf("expected not-found, got %v", res.Outcome)
	}

	listed := f.dispatcher.Dispatch(context.Background(), organizer.ListPhotos{Category: "Travel"})
	if len(listed.Photos) != 0 {
		t.Fatalf("expected no photos, got %+v", listed.Photos)
	}
}

func TestDispatchDeletePhotoRemovesManagedFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added := f.dispatcher.Dispatch(ctx, organizer.AddPhoto{
		Path:     writeImage(t, filepath.Join(t.TempDir(), "dog.png")),
		Category: "Family",
	})
	if !added.OK() {
		t.Fatalf("add photo: %v (%s)", added.Outcome, added.Notice)
	}

	res := f.dispatcher.Dispatch(ctx, organizer.DeletePhoto{ID: added.Photo.ID})
	if !res.OK() {
		t.Fatalf("expected applied, got %v (%s)", res.Outcome, res.Notice)
	}
	if _, err := os.Stat(added.Path); !os.IsNotExist(err) {
		t.Fatalf("expected managed file to be removed, got %v", err)
	}

	again := f.dispatcher.Dispatch(ctx, organizer.DeletePhoto{ID: added.Photo.ID})
	if again.Outcome != storage.NotFound {
		t.Fatalf("expected not-found, got %v", again.Outcome)
	}
}

func TestDispatchDeletePhotoKeepsExternalFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	external := writeImage(t, filepath.Join(t.TempDir(), "poster.jpg"))
	photo, err := f.store.Photos().Create(ctx, storage.PhotoCreate{Path: external, CategoryName: "Other"})
	if err != nil {
		t.Fatalf("create photo: %v", err)
	}

	res := f.dispatcher.Dispatch(ctx, organizer.DeletePhoto{ID: photo.ID})
	if !res.OK() {
		t.Fatalf("expected applied, got %v (%s)", res.Outcome, res.Notice)
	}
	if _, err := os.Stat(external); err != nil {
		t.Fatalf("expected external file to remain, got %v", err)
	}
}

func TestDispatchDownloadAndPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added := f.dispatcher.Dispatch(ctx, organizer.AddPhoto{
		Path:     writeImage(t, filepath.Join(t.TempDir(), "cat.jpg")),
		Category: "Family",
	})
	if !added.OK() {
		t.Fatalf("add photo: %v (%s)", added.Outcome, added.Notice)
	}

	byID := f.dispatcher.Dispatch(ctx, organizer.DownloadPhoto{ID: added.Photo.ID})
	if !byID.OK() || byID.Path != filepath.Join(f.root, "downloads", "cat.jpg") {
		t.Fatalf("unexpected download result %+v", byID)
	}

	named := f.dispatcher.Dispatch(ctx, organizer.DownloadPhoto{Path: added.Path, FileName: "x.jpg"})
	if !named.OK() || filepath.Base(named.Path) != "x.jpg" {
		t.Fatalf("unexpected download result %+v", named)
	}

	none := f.dispatcher.Dispatch(ctx, organizer.DownloadPhoto{})
	if none.Outcome != storage.Invalid {
		t.Fatalf("expected invalid without a selection, got %v", none.Outcome)
	}

	preview := filepath.Join(f.root, "previews", "cat.png")
	shown := f.dispatcher.Dispatch(ctx, organizer.PreviewPhoto{Path: added.Path, PreviewPath: preview, Width: 8, Height: 8})
	if !shown.OK() || shown.Image == nil {
		t.Fatalf("unexpected preview result %+v", shown)
	}
	if shown.Image.Width != 32 || shown.Image.Height != 16 {
		t.Fatalf("expected 32x16 image, got %dx%d", shown.Image.Width, shown.Image.Height)
	}
	if _, err := os.Stat(preview); err != nil {
		t.Fatalf("expected preview file, got %v", err)
	}
}

func TestDispatchPreviewDistinguishesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := f.dispatcher.Dispatch(ctx, organizer.PreviewPhoto{Path: filepath.Join(f.root, "missing.jpg")})
	if missing.Outcome != storage.NotFound {
		t.Fatalf("expected not-found, got %v", missing.Outcome)
	}

	broken := filepath.Join(f.root, "broken.jpg")
	if err := os.WriteFile(broken, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	bad := f.dispatcher.Dispatch(ctx, organizer.PreviewPhoto{Path: broken})
	if bad.Outcome != storage.Invalid || !errors.Is(bad.Err, files.ErrUndecodable) {
		t.Fatalf("expected undecodable result, got %v (%v)", bad.Outcome, bad.Err)
	}
}

func TestDispatchEmptySlideshow(t *testing.T) {
	f := newFixture(t)

	res := f.dispatcher.Dispatch(context.Background(), organizer.StartSlideshow{Category: "Scenery"})
	if !res.OK() || len(res.Slides) != 0 || res.Notice == "" {
		t.Fatalf("unexpected slideshow result %+v", res)
	}
}

func TestDispatchRejectsNestedCategoryNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added := f.dispatcher.Dispatch(ctx, organizer.AddCategory{Name: "2024/Summer"})
	if added.Outcome != storage.Invalid {
		t.Fatalf("expected invalid, got %v", added.Outcome)
	}

	renamed := f.dispatcher.Dispatch(ctx, organizer.RenameCategory{Old: "Travel", New: "2024/Summer"})
	if renamed.Outcome != storage.Invalid {
		t.Fatalf("expected invalid, got %v", renamed.Outcome)
	}

	list := f.dispatcher.Dispatch(ctx, organizer.ListCategories{})
	if slices.Contains(list.Categories, "2024/Summer") || !slices.Contains(list.Categories, "Travel") {
		t.Fatalf("expected categories untouched, got %v", list.Categories)
	}
}

func TestDispatchAddPhotoNamesBadCategory(t *testing.T) {
	f := newFixture(t)
	store := &wrappedStore{Store: f.store, categories: &legacyCategories{Categories: f.store.Categories()}}
	d := organizer.NewDispatcher(logging.Discard(), store, f.files)

	source := writeImage(t, filepath.Join(t.TempDir(), "beach.jpg"))
	res := d.Dispatch(context.Background(), organizer.AddPhoto{Path: source, Category: "2024/Summer"})
	if res.Outcome != storage.Invalid {
		t.Fatalf("expected invalid, got %v", res.Outcome)
	}
	if !strings.Contains(res.Notice, `"2024/Summer"`) || strings.Contains(res.Notice, source) {
		t.Fatalf("expected the notice to blame the category, got %q", res.Notice)
	}
}

func TestDispatchAddPhotoTrimsCategory(t *testing.T) {
	f := newFixture(t)

	res := f.dispatcher.Dispatch(context.Background(), organizer.AddPhoto{
		Path:     writeImage(t, filepath.Join(t.TempDir(), "rome.jpg")),
		Category: " Travel ",
	})
	if !res.OK() {
		t.Fatalf("expected applied, got %v (%s)", res.Outcome, res.Notice)
	}
	if want := filepath.Join(f.root, "resources", "Travel", "rome.jpg"); res.Path != want {
		t.Fatalf("expected managed copy at %q, got %q", want, res.Path)
	}

	listed := f.dispatcher.Dispatch(context.Background(), organizer.ListCategoryFiles{Category: "Travel "})
	if !slices.Equal(listed.Files, []string{"rome.jpg"}) {
		t.Fatalf("unexpected files %v", listed.Files)
	}
}

func TestDispatchAddPhotoDiscardsCopyWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	store := &wrappedStore{Store: f.store, photos: &failingPhotos{err: errors.New("disk I/O error")}}
	d := organizer.NewDispatcher(logging.Discard(), store, f.files)

	source := writeImage(t, filepath.Join(t.TempDir(), "rome.jpg"))
	res := d.Dispatch(context.Background(), organizer.AddPhoto{Path: source, Category: "Travel"})
	if res.Outcome != storage.Faulted {
		t.Fatalf("expected faulted, got %v", res.Outcome)
	}

	if _, err := os.Stat(filepath.Join(f.root, "resources", "Travel", "rome.jpg")); !os.IsNotExist(err) {
		t.Fatalf("expected the managed copy to be removed, got %v", err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("expected the source to remain, got %v", err)
	}

	photos, err := f.store.Photos().ListByCategory(context.Background(), "Travel")
	if err != nil {
		t.Fatalf("ListByCategory returned error: %v", err)
	}
	if len(photos) != 0 {
		t.Fatalf("expected no photo rows, got %+v", photos)
	}
}

func TestDispatchStorageFault(t *testing.T) {
	store := &stubStore{categories: &stubCategories{err: errors.New("disk I/O error")}}
	d := organizer.NewDispatcher(logging.Discard(), store, nil)

	res := d.Dispatch(context.Background(), organizer.AddCategory{Name: "Pets"})
	if res.Outcome != storage.Faulted {
		t.Fatalf("expected faulted, got %v", res.Outcome)
	}
	if res.Notice != "Failed to add category." {
		t.Fatalf("unexpected notice %q", res.Notice)
	}

	list := d.Dispatch(context.Background(), organizer.ListCategories{})
	if list.Outcome != storage.Faulted {
		t.Fatalf("expected faulted, got %v", list.Outcome)
	}
}

func TestDispatchUnknownIntent(t *testing.T) {
	d := organizer.NewDispatcher(logging.Discard(), &stubStore{}, nil)

	res := d.Dispatch(context.Background(), unknownIntent{})
	if res.Outcome != storage.Invalid || res.Intent != "unknown" {
		t.Fatalf("unexpected result %+v", res)
	}
}

// wrappedStore replaces the repositories of a real store when set.
type wrappedStore struct {
	storage.Store
	categories storage.Categories
	photos     storage.Photos
}

func (s *wrappedStore) Categories() storage.Categories {
	if s.categories != nil {
		return s.categories
	}
	return s.Store.Categories()
}

func (s *wrappedStore) Photos() storage.Photos {
	if s.photos != nil {
		return s.photos
	}
	return s.Store.Photos()
}

// legacyCategories resolves any name, as a catalog holding rows created
// before names were checked would.
type legacyCategories struct {
	storage.Categories
}

func (c *legacyCategories) GetByName(_ context.Context, name string) (storage.Category, error) {
	return storage.Category{ID: 99, Name: name}, nil
}

type failingPhotos struct {
	storage.Photos
	err error
}

func (p *failingPhotos) Create(context.Context, storage.PhotoCreate) (storage.Photo, error) {
	return storage.Photo{}, p.err
}

type unknownIntent struct{}

func (unknownIntent) Kind() string { return "unknown" }

type stubStore struct {
	categories *stubCategories
}

func (s *stubStore) Categories() storage.Categories { return s.categories }

func (s *stubStore) Photos() storage.Photos {
	panic("unexpected call to Photos")
}

func (s *stubStore) Ping(context.Context) error { return nil }

func (s *stubStore) Close() error { return nil }

type stubCategories struct {
	err error
}

func (s *stubCategories) Create(context.Context, string) (storage.Category, error) {
	return storage.Category{}, s.err
}

func (s *stubCategories) GetByName(context.Context, string) (storage.Category, error) {
	return storage.Category{}, s.err
}

func (s *stubCategories) List(context.Context) ([]storage.Category, error) {
	return nil, s.err
}

func (s *stubCategories) Names(context.Context) ([]string, error) {
	return nil, s.err
}

func (s *stubCategories) Rename(context.Context, string, string) (storage.Category, error) {
	return storage.Category{}, s.err
}

func (s *stubCategories) Delete(context.Context, string) error {
	return s.err
}

func writeImage(t *testing.T, path string) string {
	t.Helper()

	img := imaging.New(32, 16, color.NRGBA{R: 20, G: 120, B: 220, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save image: %v", err)
	}
	return path
}
