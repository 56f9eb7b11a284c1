package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates that the requested entity does not exist in the
	// underlying storage.
	ErrNotFound = errors.New("storage: not found")

	// ErrConflict indicates that the write would break a uniqueness or
	// referential rule, such as a duplicate category name.
	ErrConflict = errors.New("storage: conflict")

	// ErrInvalid indicates that the input was rejected before touching storage.
	ErrInvalid = errors.New("storage: invalid input")
)

// UncategorizedName is the category that receives photos whose category was
// deleted under DeleteReassign.
const UncategorizedName = "Uncategorized"

// DefaultCategories are seeded when a catalog is created for the first time.
var DefaultCategories = []string{"Family", "Travel", "Food", "Scenery", "Other"}

// ValidateCategoryName rejects names that cannot also serve as the category's
// folder under managed storage: empty names, "." and "..", and names holding a
// path separator.
func ValidateCategoryName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return fmt.Errorf("%w: category name must not be empty", ErrInvalid)
	case trimmed == "." || trimmed == ".." || strings.ContainsAny(trimmed, `/\`):
		return fmt.Errorf("%w: category name %q must be a single folder name", ErrInvalid, trimmed)
	}
	return nil
}

// Store exposes the persistence primitives required by the application.
type Store interface {
	Categories() Categories
	Photos() Photos
	Ping(ctx context.Context) error
	Close() error
}

// Category is a named grouping of photos.
type Category struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Categories defines the operations supported for managing categories.
type Categories interface {
	Create(ctx context.Context, name string) (Category, error)
	GetByName(ctx context.Context, name string) (Category, error)
	List(ctx context.Context) ([]Category, error)
	Names(ctx context.Context) ([]string, error)
	Rename(ctx context.Context, oldName, newName string) (Category, error)
	Delete(ctx context.Context, name string) error
}

// Photo links a file path to a category. Name is the base name of Path at the
// time the photo was added.
type Photo struct {
	ID         int64  `json:"id" yaml:"id"`
	Path       string `json:"path" yaml:"path"`
	Name       string `json:"name" yaml:"name"`
	CategoryID *int64 `json:"category_id,omitempty" yaml:"category_id,omitempty"`
}

// PhotoCreate contains the data required to insert a new photo.
type PhotoCreate struct {
	Path         string
	CategoryName string
}

// Photos defines the operations supported for managing photos.
type Photos interface {
	Create(ctx context.Context, input PhotoCreate) (Photo, error)
	GetByID(ctx context.Context, id int64) (Photo, error)
	ListByCategory(ctx context.Context, categoryName string) ([]Photo, error)
	ListOrphans(ctx context.Context) ([]Photo, error)
	Delete(ctx context.Context, id int64) error
}

// DeletePolicy decides what happens to photos when their category is deleted.
type DeletePolicy string

const (
	// DeleteReassign moves the photos to the Uncategorized category.
	DeleteReassign DeletePolicy = "reassign"
	// DeleteCascade removes the photo rows together with the category.
	DeleteCascade DeletePolicy = "cascade"
	// DeleteRestrict refuses to delete a category that still has photos.
	DeleteRestrict DeletePolicy = "restrict"
	// DeleteOrphan leaves the photo rows pointing at the removed id.
	DeleteOrphan DeletePolicy = "orphan"
)

// ParseDeletePolicy parses a policy name. The empty string selects
// DeleteReassign.
func ParseDeletePolicy(raw string) (DeletePolicy, error) {
	switch DeletePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DeleteReassign:
		return DeleteReassign, nil
	case DeleteCascade:
		return DeleteCascade, nil
	case DeleteRestrict:
		return DeleteRestrict, nil
	case DeleteOrphan:
		return DeleteOrphan, nil
	default:
		return "", fmt.Errorf("unknown delete policy %q", raw)
	}
}

// Outcome classifies the result of a catalog or file operation.
type Outcome int

const (
	Applied Outcome = iota
	NotFound
	Conflict
	Invalid
	Faulted
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case NotFound:
		return "not-found"
	case Conflict:
		return "conflict"
	case Invalid:
		return "invalid"
	default:
		return "faulted"
	}
}

// MarshalText renders the outcome by name in JSON and YAML output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// OutcomeOf maps an error returned by a Store to an Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Applied
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrConflict):
		return Conflict
	case errors.Is(err, ErrInvalid):
		return Invalid
	default:
		return Faulted
	}
}
