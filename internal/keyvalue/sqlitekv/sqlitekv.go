// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/anchorsync/anchorsync/internal/keyvalue"
)

const (
	driverName = "sqlite"

	createTableStatement = `CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`
	getStatement = `SELECT value FROM state WHERE key = ?`
	setStatement = `INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
)

var (
	// ErrOpenDatabase reports failures opening or preparing the state database.
	ErrOpenDatabase = errors.New("error opening state database")
)

var _ keyvalue.Store = &Store{}

// Store persists key-value pairs in a single SQLite table.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the state database at path and makes sure the state
// table exists.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenDatabase, err)
	}

	if _, err := db.ExecContext(ctx, createTableStatement); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenDatabase, err)
	}

	return &Store{db: db}, nil
}

// Get implements keyvalue.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, getStatement, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	return value, true, nil
}

// Set implements keyvalue.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, setStatement, key, value)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
