package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid reports a token that fails signature or structural checks.
	ErrInvalid = errors.New("jwtx: invalid token")
	// ErrExpired reports a structurally valid token past its expiry.
	ErrExpired = errors.New("jwtx: token expired")
	// ErrKindMismatch reports a token presented for the wrong use, e.g. a
	// refresh token sent to an access-token check.
	ErrKindMismatch = errors.New("jwtx: token kind mismatch")
)

// Codec signs and verifies HS256 tokens with a shared secret. A single codec
// mints both access and refresh tokens; the "type" claim keeps them apart.
type Codec struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueAccess mints a short-lived access token for the identity.
func (c *Codec) IssueAccess(id Identity) (string, error) {
	return c.sign(newClaims(id, KindAccess, c.Issuer, c.accessTTL(), time.Now().UTC()))
}

// IssueRefresh mints a long-lived refresh token for the identity.
func (c *Codec) IssueRefresh(id Identity) (string, error) {
	return c.sign(newClaims(id, KindRefresh, c.Issuer, c.refreshTTL(), time.Now().UTC()))
}

// Verify parses and validates raw, enforcing HS256 and the expected kind.
// A token with an empty "type" claim is accepted as either kind: tokens
// minted before the claim existed must keep working until they expire.
func (c *Codec) Verify(raw, kind string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}

	if claims.Kind != "" && claims.Kind != kind {
		return Claims{}, ErrKindMismatch
	}

	return claims, nil
}

func (c *Codec) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.Secret)
}

func (c *Codec) accessTTL() time.Duration {
	if c.AccessTTL > 0 {
		return c.AccessTTL
	}
	return DefaultAccessTokenTTL
}

func (c *Codec) refreshTTL() time.Duration {
	if c.RefreshTTL > 0 {
		return c.RefreshTTL
	}
	return DefaultRefreshTokenTTL
}
