package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Short-lived access tokens, long-lived refresh
// tokens matching the 30-day refresh cookie.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Token kinds carried in the "type" claim. Tokens minted before the claim
// existed carry no "type" at all; Verify tolerates that.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims are the token claims used across the service.
type Claims struct {
	jwt.RegisteredClaims

	// Role the token was minted for: parent, admin, child, or a staff role.
	Role string `json:"role,omitempty"`

	// ChildID is set on child session tokens. The subject of a child token
	// is the owning parent account; this field identifies which child.
	ChildID string `json:"child_id,omitempty"`

	// Staff marks tokens minted through the staff login flow.
	Staff bool `json:"is_staff,omitempty"`

	// Kind is "access" or "refresh". Empty on legacy tokens.
	Kind string `json:"type,omitempty"`
}

// Identity is the subject material a token is minted for.
type Identity struct {
	Subject string
	Role    string
	ChildID string
	Staff   bool
}

func newClaims(id Identity, kind, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:    id.Role,
		ChildID: id.ChildID,
		Staff:   id.Staff,
		Kind:    kind,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
