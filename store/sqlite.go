// Package store is the relational persistence layer for password entries
// and typed secrets (C3). Methods that read or write record payloads take
// the session key as a parameter and seal or open the encrypted_data blob
// themselves; the store never holds the key between calls.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	// Package sqlite is a CGo-free port of SQLite/SQLite3.
	_ "modernc.org/sqlite"

	"github.com/ladzaretti/migrate"

	"github.com/hxhippy/pwgen/vaulterrors"
)

var (
	//go:embed migrations/sqlite
	embedFS embed.FS

	embeddedMigrations = migrate.EmbeddedMigrations{
		FS:   embedFS,
		Path: "migrations/sqlite",
	}
)

// dbtx is the subset of *sql.DB shared with *sql.Tx. It lets Store's CRUD
// methods run unchanged against either a live connection or an in-flight
// transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps the vault's SQLite database. The pool is capped at a single
// connection, so reads and writes alike are serialized through it. exec is the
// query surface every method actually uses; it is db itself except inside
// WithTx, where it is the active transaction.
type Store struct {
	db   *sql.DB
	exec dbtx
}

func errf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// pragma is executed once at open, on the pool's single connection, which
// every later query reuses. SQLite disables foreign key
// enforcement by default, so without it the secrets/audit_log ON DELETE
// CASCADE in the embedded migrations never fires.
const pragma = `
PRAGMA foreign_keys = ON;
`

// New opens (creating if absent) the SQLite database at path and applies
// any unapplied embedded migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errf("sqlite open: %v", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), pragma); err != nil {
		_ = db.Close()
		return nil, errf("sqlite pragma: %v", err)
	}

	m := migrate.New(db, migrate.SQLiteDialect{})

	if _, err := m.Apply(embeddedMigrations); err != nil {
		_ = db.Close()
		return nil, errf("migration: %v", err)
	}

	return &Store{db: db, exec: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a Store backed by a single *sql.Tx spanning every
// call fn makes through it, committing on success and rolling back on any
// error fn returns (or panics). Owns the transaction lifecycle itself
// since callers (the backup engine) only need the combined
// begin/commit/rollback behavior, not a bare wrapper.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIO, "with_tx", err)
	}

	txStore := &Store{db: s.db, exec: tx}

	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return vaulterrors.New(vaulterrors.KindIO, "with_tx", err)
	}

	return nil
}
