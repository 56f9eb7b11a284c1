package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Oxyrus/photoshelf/internal/storage"
)

type categoryRepository struct {
	conn
	policy storage.DeletePolicy
}

func (r *categoryRepository) Create(ctx context.Context, name string) (storage.Category, error) {
	name = strings.TrimSpace(name)
	if err := storage.ValidateCategoryName(name); err != nil {
		return storage.Category{}, r.fail(ctx, "create category", err)
	}

	var created storage.Category
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
		if err != nil {
			if isUniqueConstraint(err) {
				return storage.ErrConflict
			}
			return err
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		created = storage.Category{ID: id, Name: name}
		return nil
	})
	if err != nil {
		return storage.Category{}, r.fail(ctx, "create category", err, "name", name)
	}

	return created, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (storage.Category, error) {
	name = strings.TrimSpace(name)
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name
		FROM categories
		WHERE name = ?`,
		name,
	)

	category, err := scanCategory(row)
	if err != nil {
		return storage.Category{}, r.fail(ctx, "get category", err, "name", name)
	}
	return category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]storage.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name
		FROM categories
		ORDER BY id`)
	if err != nil {
		return nil, r.fail(ctx, "list categories", err)
	}
	defer rows.Close()

	var result []storage.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, r.fail(ctx, "list categories", err)
		}
		result = append(result, category)
	}

	if err := rows.Err(); err != nil {
		return nil, r.fail(ctx, "list categories", err)
	}

	return result, nil
}

func (r *categoryRepository) Names(ctx context.Context) ([]string, error) {
	categories, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, category.Name)
	}
	return names, nil
}

func (r *categoryRepository) Rename(ctx context.Context, oldName, newName string) (storage.Category, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if err := storage.ValidateCategoryName(newName); err != nil {
		return storage.Category{}, r.fail(ctx, "rename category", err, "old", oldName)
	}

	var renamed storage.Category
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, oldName).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, newName, id); err != nil {
			if isUniqueConstraint(err) {
				return storage.ErrConflict
			}
			return err
		}

		renamed = storage.Category{ID: id, Name: newName}
		return nil
	})
	if err != nil {
		return storage.Category{}, r.fail(ctx, "rename category", err, "old", oldName, "new", newName)
	}

	return renamed, nil
}

func (r *categoryRepository) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return err
		}

		var photoCount int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE category_id = ?`, id).Scan(&photoCount)
		if err != nil {
			return err
		}

		if photoCount > 0 {
			if err := r.detachPhotos(ctx, tx, id, name, photoCount); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			if isForeignKeyConstraint(err) {
				return fmt.Errorf("%w: category is still referenced", storage.ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return r.fail(ctx, "delete category", err, "name", name, "policy", string(r.policy))
	}

	return nil
}

// detachPhotos applies the delete policy to the photos of category id.
func (r *categoryRepository) detachPhotos(ctx context.Context, tx *sql.Tx, id int64, name string, count int) error {
	switch r.policy {
	case storage.DeleteOrphan:
		return nil
	case storage.DeleteCascade:
		_, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE category_id = ?`, id)
		return err
	case storage.DeleteRestrict:
		return fmt.Errorf("%w: category has %d photos", storage.ErrConflict, count)
	default:
		if name == storage.UncategorizedName {
			return fmt.Errorf("%w: %s still has %d photos", storage.ErrConflict, name, count)
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, storage.UncategorizedName); err != nil {
			return err
		}

		var target int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, storage.UncategorizedName).Scan(&target)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE photos SET category_id = ? WHERE category_id = ?`, target, id)
		return err
	}
}

type categoryScanner interface {
	Scan(dest ...any) error
}

func scanCategory(s categoryScanner) (storage.Category, error) {
	var category storage.Category
	if err := s.Scan(&category.ID, &category.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Category{}, storage.ErrNotFound
		}
		return storage.Category{}, fmt.Errorf("scan category: %w", err)
	}
	return category, nil
}
