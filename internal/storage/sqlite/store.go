package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Oxyrus/photoshelf/internal/logging"
	"github.com/Oxyrus/photoshelf/internal/storage"
)

// Store is a SQLite-backed implementation of the storage.Store interface.
type Store struct {
	db         *sql.DB
	categories *categoryRepository
	photos     *photoRepository

	closeOnce sync.Once
	closeErr  error
}

// Option customises a Store at Open time.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	policy   storage.DeletePolicy
	defaults []string
}

// WithLogger sets the logger used to report storage faults.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDeletePolicy selects what happens to photos when their category is
// deleted. DeleteOrphan disables foreign key enforcement for the handle.
func WithDeletePolicy(policy storage.DeletePolicy) Option {
	return func(o *options) {
		if policy != "" {
			o.policy = policy
		}
	}
}

// WithDefaultCategories overrides the categories seeded into a new catalog.
// A nil slice keeps the defaults; an empty one seeds nothing.
func WithDefaultCategories(names []string) Option {
	return func(o *options) {
		if names != nil {
			o.defaults = names
		}
	}
}

// Open initialises (or opens) a SQLite catalog located at the provided path.
// The directory is created if it does not already exist. Default categories
// are only seeded when the schema is created by this call.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path must not be empty")
	}

	o := options{
		logger:   logging.Discard(),
		policy:   storage.DeleteReassign,
		defaults: storage.DefaultCategories,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("sqlite: ensure directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := configure(db, o.policy != storage.DeleteOrphan); err != nil {
		_ = db.Close()
		return nil, err
	}

	seeded, err := bootstrap(db, o.defaults)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if seeded {
		o.logger.Info("catalog created", "path", path, "categories", len(o.defaults))
	}

	base := conn{db: db, logger: o.logger}
	return &Store{
		db:         db,
		categories: &categoryRepository{conn: base, policy: o.policy},
		photos:     &photoRepository{conn: base},
	}, nil
}

// Categories returns the category repository.
func (s *Store) Categories() storage.Categories {
	return s.categories
}

// Photos returns the photo repository.
func (s *Store) Photos() storage.Photos {
	return s.photos
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database connection. Calls after the first
// return the first result.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func configure(db *sql.DB, foreignKeys bool) error {
	fk := "PRAGMA foreign_keys = ON;"
	if !foreignKeys {
		fk = "PRAGMA foreign_keys = OFF;"
	}

	stmts := []string{
		fk,
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: configure: %w", err)
		}
	}

	return nil
}

func bootstrap(db *sql.DB, defaults []string) (bool, error) {
	var seeded bool
	err := withTx(context.Background(), db, func(tx *sql.Tx) error {
		var existing int
		err := tx.QueryRow(`
			SELECT COUNT(*)
			FROM sqlite_master
			WHERE type = 'table' AND name = 'categories'`).Scan(&existing)
		if err != nil {
			return err
		}

		stmts := []string{
			`CREATE TABLE IF NOT EXISTS categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);`,
			`CREATE TABLE IF NOT EXISTS photos (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				path TEXT NOT NULL,
				name TEXT NOT NULL,
				category_id INTEGER,
				FOREIGN KEY(category_id) REFERENCES categories(id)
			);`,
			`CREATE INDEX IF NOT EXISTS idx_photos_category_id ON photos(category_id);`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}

		if existing > 0 {
			return nil
		}

		for _, name := range defaults {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, err := tx.Exec(`INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("sqlite: bootstrap: %w", err)
	}
	return seeded, nil
}

// conn is shared by the repositories.
type conn struct {
	db     *sql.DB
	logger *slog.Logger
}

// fail wraps err for op. Storage faults are logged at error level; expected
// outcomes such as conflicts are only logged at debug level.
func (c conn) fail(ctx context.Context, op string, err error, attrs ...any) error {
	args := append([]any{"op", op, "error", err}, attrs...)
	if storage.OutcomeOf(err) == storage.Faulted {
		c.logger.ErrorContext(ctx, "catalog operation failed", args...)
	} else {
		c.logger.DebugContext(ctx, "catalog operation rejected", args...)
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}

// withTx runs fn inside a transaction, rolling back when fn or the commit
// fails.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func constraintCode(err error) (int, bool) {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := constraintCode(err); ok {
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyConstraint(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := constraintCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var _ storage.Store = (*Store)(nil)
