// Package store keeps the products table in SQLite and exposes it as a
// numbered row source for rollcache.
//
// Row N is the N-th product ordered by id, counting from 0. Row numbers shift
// when products are deleted; ids never change.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store holds the SQLite handle for the products table.
type Store struct {
	path string
	sql  *sql.DB
}

// Open opens or creates the database at path. A fresh database gets the
// products schema; a database stamped with another schema version is rejected
// with [ErrSchemaVersion].
func Open(ctx context.Context, path string) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("open store: context is nil")
	}

	if path == "" {
		return nil, errors.New("open store: path is empty")
	}

	path = filepath.Clean(path)

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, fmt.Errorf("open store: create directory: %w", err)
	}

	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	version, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("open store: %w", err)
	}

	switch version {
	case schemaVersion:
	case 0:
		err = createSchema(ctx, db)
		if err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("open store: %w", err)
		}
	default:
		_ = db.Close()

		return nil, fmt.Errorf("open store: %s has version %d, want %d: %w", path, version, schemaVersion, ErrSchemaVersion)
	}

	return &Store{path: path, sql: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the SQLite handle opened by Open.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}

	err := s.sql.Close()
	if err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}
