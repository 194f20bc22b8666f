package domain

import "time"

// Refresh token ledger namespaces. Product accounts and staff identities
// share one ledger table keyed by (namespace, subject_id), so neither side
// needs a hard foreign key into the other's identity table.
const (
	NamespaceAccount = "account"
	NamespaceStaff   = "staff"
)

// TokenPair is what login/refresh endpoints return: a short-lived JWT access
// token and a long-lived JWT refresh token (also persisted, hashed, in the
// ledger).
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// RefreshToken models the stored refresh token record in the ledger.
// Only the fingerprint of the token is persisted, never the raw value.
type RefreshToken struct {
	ID         string
	Namespace  string // NamespaceAccount or NamespaceStaff
	SubjectID  string
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	DeviceInfo string // free-form client hint, e.g. user agent
	IssuedAt   time.Time
	RevokedAt  *time.Time
}
