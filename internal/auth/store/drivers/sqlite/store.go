package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vergehq/verge/internal/auth/store"
	sqlite3 "modernc.org/sqlite"
)

// SQLITE_CONSTRAINT_UNIQUE extended result code, reported when an insert
// trips a unique index.
const sqliteConstraintUnique = 2067

// dbtx is satisfied by both *sql.DB and *sql.Tx so the repositories can
// run against either.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	dsn string
}

// connParams ride on the DSN so the driver applies them to every pooled
// connection; busy_timeout and foreign_keys are per-connection settings
// a one-off PRAGMA exec would miss. _txlock=immediate takes the write
// lock at BEGIN, so racing writers queue on the busy timeout and the
// loser sees the unique-index violation rather than SQLITE_BUSY.
const connParams = "_txlock=immediate" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=foreign_keys(1)"

func NewStore(dsn string) (*Store, error) {
	sep := "?"
	if strings.ContainsRune(dsn, '?') {
		sep = "&"
	}
	dsn += sep + connParams

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback is safe to call even after a successful commit
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Firms() store.Firms { return &firmsRepo{db: s.db} }
func (s *Store) Users() store.Users { return &usersRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint turns unique-index violations into store.ErrAlreadyExists.
// The index is the source of truth for duplicate detection, so racing
// inserts surface as a conflict rather than a duplicate row.
func mapConstraint(err error) error {
	var se *sqlite3.Error
	if errors.As(err, &se) && se.Code() == sqliteConstraintUnique {
		return store.ErrAlreadyExists
	}
	return err
}

func mapNullString(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}
