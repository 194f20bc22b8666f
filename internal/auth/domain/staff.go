package domain

import "time"

// StaffIdentity lives in its own identity space, separate from accounts.
// Staff log in by phone only and may carry a TOTP second factor.
type StaffIdentity struct {
	ID           string
	Phone        string  // canonical +7XXXXXXXXXX, unique
	Email        *string // optional, unique when present; informational only
	Name         string
	PasswordHash string    // bcrypt encoded
	Role         StaffRole // closed set, see ParseStaffRole
	Active       bool      // inactive staff cannot log in or rotate
	TwoFASecret  *string   // TOTP secret (nullable, base32 encoded)
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
