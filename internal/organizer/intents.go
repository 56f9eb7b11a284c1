package organizer

// Intent is a user action handed to the Dispatcher.
type Intent interface {
	Kind() string
}

type AddCategory struct {
	Name string
}

type ListCategories struct{}

type RenameCategory struct {
	Old string
	New string
}

type DeleteCategory struct {
	Name string
}

// AddPhoto copies Path into managed storage and records it under Category.
type AddPhoto struct {
	Path     string
	Category string
}

type ListPhotos struct {
	Category string
}

// ListOrphans lists photos whose category no longer exists.
type ListOrphans struct{}

// DeletePhoto removes the catalog row and, when it lives in managed storage,
// the file.
type DeletePhoto struct {
	ID int64
}

// DownloadPhoto copies a photo, picked by ID or else by Path, to the download
// directory. FileName overrides the destination name.
type DownloadPhoto struct {
	ID       int64
	Path     string
	FileName string
}

// PreviewPhoto decodes Path. When PreviewPath is set a scaled copy fitting
// Width x Height is written there.
type PreviewPhoto struct {
	Path        string
	PreviewPath string
	Width       int
	Height      int
}

// ListCategoryFiles lists the image files in the managed folder of Category.
type ListCategoryFiles struct {
	Category string
}

// StartSlideshow collects the photo paths of Category for a slideshow.
type StartSlideshow struct {
	Category string
}

func (AddCategory) Kind() string       { return "add-category" }
func (ListCategories) Kind() string    { return "list-categories" }
func (RenameCategory) Kind() string    { return "rename-category" }
func (DeleteCategory) Kind() string    { return "delete-category" }
func (AddPhoto) Kind() string          { return "add-photo" }
func (ListPhotos) Kind() string        { return "list-photos" }
func (ListOrphans) Kind() string       { return "list-orphans" }
func (DeletePhoto) Kind() string       { return "delete-photo" }
func (DownloadPhoto) Kind() string     { return "download-photo" }
func (PreviewPhoto) Kind() string      { return "preview-photo" }
func (ListCategoryFiles) Kind() string { return "list-category-files" }
func (StartSlideshow) Kind() string    { return "start-slideshow" }
