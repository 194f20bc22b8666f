package store

import (
	"context"
	"errors"
	"time"

	"github.com/stardiary/stardiary/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop people from accidentally nesting transactions.
type Store interface {
	Accounts() Accounts
	Staff() Staff
	Children() Children
	RefreshTokens() RefreshTokens
	ChildAccess() ChildAccess

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh rotation).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
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

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByPhone looks up by the canonical +7 phone form.
	GetAccountByPhone(ctx context.Context, phone string) (domain.Account, error)

	// GetAccountByEmail looks up by email (optional identifier).
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists on a phone/email unique violation, which is
	// how concurrent double-registration surfaces at commit time.
	CreateAccount(ctx context.Context, a domain.Account) error
}

type Staff interface {
	// GetStaffByID returns a staff identity by id.
	GetStaffByID(ctx context.Context, id string) (domain.StaffIdentity, error)

	// GetStaffByPhone is the only staff login lookup; staff have no email login.
	GetStaffByPhone(ctx context.Context, phone string) (domain.StaffIdentity, error)

	// CreateStaff inserts a new staff identity.
	CreateStaff(ctx context.Context, s domain.StaffIdentity) error

	// UpdateStaffLastLogin records a successful login.
	UpdateStaffLastLogin(ctx context.Context, id string, at time.Time) error
}

type Children interface {
	// GetChildByID returns the child→parent mapping record.
	GetChildByID(ctx context.Context, id string) (domain.Child, error)

	// ListChildrenByAccountID returns the children owned by an account,
	// oldest first.
	ListChildrenByAccountID(ctx context.Context, accountID string) ([]domain.Child, error)

	// CreateChild inserts a new child record.
	CreateChild(ctx context.Context, c domain.Child) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new ledger record (fingerprint only).
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetValidRefreshTokenByHash returns the record by fingerprint when it
	// has not been revoked.
	GetValidRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken sets revoked_at if it isn't already set. Returns
	// false when the token was unknown or already revoked (idempotent no-op).
	RevokeRefreshToken(ctx context.Context, hash string, at time.Time) (bool, error)

	// RevokeAllForSubject bulk-revokes every live token for a subject within
	// a namespace (logout everywhere, password reset).
	RevokeAllForSubject(ctx context.Context, namespace, subjectID string, at time.Time) (int64, error)

	// PurgeRevoked deletes ledger rows revoked or issued before the cutoff.
	PurgeRevoked(ctx context.Context, olderThan time.Time) (int64, error)
}

type ChildAccess interface {
	// GetChildAccessByChildID returns the access record for a child.
	GetChildAccessByChildID(ctx context.Context, childID string) (domain.ChildAccess, error)

	// CreateChildAccess inserts a new access record.
	CreateChildAccess(ctx context.Context, a domain.ChildAccess) error

	// ReplaceChildAccess upserts the access record by child_id: fresh PIN
	// hash and QR token, consumed/lockout/failure state cleared, active set.
	ReplaceChildAccess(ctx context.Context, a domain.ChildAccess) error

	// ConsumeQRToken atomically claims a QR token: the token must be active,
	// unconsumed, not expired, and created within the login window ending at
	// now. Exactly one concurrent caller wins; everyone else gets ErrNotFound.
	ConsumeQRToken(ctx context.Context, token string, now time.Time, window time.Duration) (domain.ChildAccess, error)

	// IncrementFailedAttempts atomically bumps the failure counter and
	// returns the new value.
	IncrementFailedAttempts(ctx context.Context, id string, now time.Time) (int, error)

	// ResetFailures zeroes the failure counter and clears any lockout.
	ResetFailures(ctx context.Context, id string, now time.Time) error

	// LockChildAccess sets the lockout deadline and zeroes the counter so a
	// fresh window starts after the lock expires.
	LockChildAccess(ctx context.Context, id string, until time.Time, now time.Time) error

	// SetPINHash stores the PIN hash for a record that has none yet.
	SetPINHash(ctx context.Context, id string, hash string, now time.Time) error

	// ClearExpiredQRTokens nulls out expired, never-consumed QR tokens
	// (housekeeping). Returns the number of cleared rows.
	ClearExpiredQRTokens(ctx context.Context, now time.Time) (int64, error)
}
