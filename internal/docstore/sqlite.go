package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps a JSON document tree in SQLite. Each top-level key of
// the tree is stored as one row, so writes under "guest/..." never touch
// the rows of other users.
type SQLiteStore struct {
	db *sqlx.DB
}

// rootRow mirrors a row of the roots table.
type rootRow struct {
	Name string `db:"name"`
	Body string `db:"body"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection serialises writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Get returns the value stored at path, or nil if there is none.
func (s *SQLiteStore) Get(ctx context.Context, path string) (interface{}, error) {
	segs := splitPath(path)

	if len(segs) == 0 {
		var rows []rootRow
		err := s.db.SelectContext(ctx, &rows, "SELECT name, body FROM roots ORDER BY name")
		if err != nil {
			return nil, fmt.Errorf("reading roots: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		tree := make(map[string]interface{}, len(rows))
		for _, r := range rows {
			var v interface{}
			if err := json.Unmarshal([]byte(r.Body), &v); err != nil {
				return nil, fmt.Errorf("decoding root %s: %w", r.Name, err)
			}
			tree[r.Name] = v
		}
		return tree, nil
	}

	root, err := loadRoot(ctx, s.db, segs[0])
	if err != nil {
		return nil, err
	}
	return valueAt(root, segs[1:]), nil
}

// Set replaces the value at path. A nil value deletes it.
func (s *SQLiteStore) Set(ctx context.Context, path string, value interface{}) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return setPath(ctx, tx, splitPath(path), value)
	})
}

// Update writes each field relative to path in one transaction. Field
// keys may be slash paths, which lets a caller change one nested value
// without resending its siblings.
func (s *SQLiteStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	base := splitPath(path)
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for key, value := range fields {
			segs := append(append([]string{}, base...), splitPath(key)...)
			if err := setPath(ctx, tx, segs, value); err != nil {
				return fmt.Errorf("updating %q: %w", key, err)
			}
		}
		return nil
	})
}

// Push stores value under a new time-ordered key below path and returns
// the key.
func (s *SQLiteStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	key := id.String()

	segs := append(splitPath(path), key)
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		return setPath(ctx, tx, segs, value)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Remove deletes the value at path. Removing a missing path is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// setPath writes value at segs inside tx. An empty segs replaces the
// whole tree.
func setPath(ctx context.Context, tx *sqlx.Tx, segs []string, value interface{}) error {
	if len(segs) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM roots"); err != nil {
			return fmt.Errorf("clearing roots: %w", err)
		}
		if value == nil {
			return nil
		}
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("the top level must be an object, got %T", value)
		}
		for name, v := range obj {
			if err := saveRoot(ctx, tx, name, prune(v)); err != nil {
				return err
			}
		}
		return nil
	}

	root, err := loadRoot(ctx, tx, segs[0])
	if err != nil {
		return err
	}
	root, err = setAt(root, segs[1:], value)
	if err != nil {
		return err
	}
	return saveRoot(ctx, tx, segs[0], root)
}

func loadRoot(ctx context.Context, q sqlx.QueryerContext, name string) (interface{}, error) {
	var body string
	err := sqlx.GetContext(ctx, q, &body, "SELECT body FROM roots WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading root %s: %w", name, err)
	}

	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, fmt.Errorf("decoding root %s: %w", name, err)
	}
	return v, nil
}

func saveRoot(ctx context.Context, tx *sqlx.Tx, name string, value interface{}) error {
	if value == nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM roots WHERE name = ?", name); err != nil {
			return fmt.Errorf("deleting root %s: %w", name, err)
		}
		return nil
	}

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding root %s: %w", name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO roots (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, string(body), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing root %s: %w", name, err)
	}
	return nil
}
