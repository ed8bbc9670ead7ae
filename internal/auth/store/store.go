package store

import (
	"context"
	"errors"

	"github.com/vergehq/verge/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. It exposes sub-repositories to keep concerns tidy
// and testable.
type Store interface {
	Firms() Firms
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle multi-step writes such as the firm+user
	// pair created at signup.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Firms interface {
	// CreateFirm inserts a new firm (id is provided by the app via ULID).
	CreateFirm(ctx context.Context, f domain.Firm) error

	// GetFirmByID returns a firm by id.
	GetFirmByID(ctx context.Context, id string) (domain.Firm, error)
}

type Users interface {
	// CreateUser inserts a new user. The email column carries a unique
	// index; violating it reports ErrAlreadyExists so racing signups
	// resolve with exactly one winner.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByEmail looks a user up by normalized (lowercase) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// UpdateTwoFactorStatus sets two_factor_status and bumps updated_at.
	UpdateTwoFactorStatus(ctx context.Context, userID string, status string) error
}
