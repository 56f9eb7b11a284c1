package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Oxyrus/photoshelf/internal/storage"
)

type photoRepository struct {
	conn
}

func (r *photoRepository) Create(ctx context.Context, input storage.PhotoCreate) (storage.Photo, error) {
	if strings.TrimSpace(input.Path) == "" {
		return storage.Photo{}, r.fail(ctx, "create photo", fmt.Errorf("%w: path must not be empty", storage.ErrInvalid))
	}

	photo := storage.Photo{
		Path: input.Path,
		Name: filepath.Base(input.Path),
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var categoryID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, strings.TrimSpace(input.CategoryName)).Scan(&categoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO photos (path, name, category_id)
			VALUES (?, ?, ?)`,
			photo.Path,
			photo.Name,
			categoryID,
		)
		if err != nil {
			return err
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		photo.ID = id
		photo.CategoryID = &categoryID
		return nil
	})
	if err != nil {
		return storage.Photo{}, r.fail(ctx, "create photo", err, "path", input.Path, "category", input.CategoryName)
	}

	return photo, nil
}

func (r *photoRepository) GetByID(ctx context.Context, id int64) (storage.Photo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, path, name, category_id
		FROM photos
		WHERE id = ?`,
		id,
	)

	photo, err := scanPhoto(row)
	if err != nil {
		return storage.Photo{}, r.fail(ctx, "get photo", err, "id", id)
	}
	return photo, nil
}

func (r *photoRepository) ListByCategory(ctx context.Context, categoryName string) ([]storage.Photo, error) {
	photos, err := r.list(ctx, `
		SELECT p.id, p.path, p.name, p.category_id
		FROM photos p
		JOIN categories c ON p.category_id = c.id
		WHERE c.name = ?
		ORDER BY p.id`,
		strings.TrimSpace(categoryName),
	)
	if err != nil {
		return nil, r.fail(ctx, "list photos", err, "category", categoryName)
	}
	return photos, nil
}

func (r *photoRepository) ListOrphans(ctx context.Context) ([]storage.Photo, error) {
	photos, err := r.list(ctx, `
		SELECT p.id, p.path, p.name, p.category_id
		FROM photos p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE c.id IS NULL
		ORDER BY p.id`)
	if err != nil {
		return nil, r.fail(ctx, "list orphan photos", err)
	}
	return photos, nil
}

func (r *photoRepository) Delete(ctx context.Context, id int64) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
		if err != nil {
			return err
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if rowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return r.fail(ctx, "delete photo", err, "id", id)
	}

	return nil
}

func (r *photoRepository) list(ctx context.Context, query string, args ...any) ([]storage.Photo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []storage.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

type photoScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s photoScanner) (storage.Photo, error) {
	var (
		photo      storage.Photo
		categoryID sql.NullInt64
	)

	err := s.Scan(
		&photo.ID,
		&photo.Path,
		&photo.Name,
		&categoryID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Photo{}, storage.ErrNotFound
		}
		return storage.Photo{}, fmt.Errorf("scan photo: %w", err)
	}

	if categoryID.Valid {
		v := categoryID.Int64
		photo.CategoryID = &v
	}

	return photo, nil
}
