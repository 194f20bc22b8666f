package domain

import "time"

// Child is the minimal child record the auth layer needs: the child→parent
// mapping used to mint child session claims. The rest of the child domain
// (diary entries, profiles) lives elsewhere.
type Child struct {
	ID        string
	AccountID string // owning parent account
	Name      string
	CreatedAt time.Time
}

// ChildAccess holds the login credentials for one child: an optional PIN
// and a single-use QR token, plus the PIN lockout state.
type ChildAccess struct {
	ID      string
	ChildID string // unique: one access record per child

	PINHash *string // bcrypt encoded; nil until a PIN is set

	QRToken      *string // opaque token, unique; nil once cleared by housekeeping
	QRValidFrom  time.Time
	QRExpiresAt  time.Time
	QRConsumedAt *time.Time // set exactly once, atomically

	Active         bool
	FailedAttempts int // consecutive PIN failures since last success/lock
	LockedUntil    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessGrant is what a parent receives after generating child access.
// The PIN is returned exactly once; only its hash is stored.
type AccessGrant struct {
	QRToken   string
	PIN       string
	ExpiresAt time.Time
	PINSet    bool
}
