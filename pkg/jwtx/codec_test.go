package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return &Codec{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "stardiary-auth",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func TestIssueAndVerifyRoundtrip(t *testing.T) {
	t.Parallel()
	c := testCodec()

	t.Run("access token", func(t *testing.T) {
		raw, err := c.IssueAccess(Identity{Subject: "acct-1", Role: "parent"})
		require.NoError(t, err)

		claims, err := c.Verify(raw, KindAccess)
		require.NoError(t, err)
		require.Equal(t, "acct-1", claims.Subject)
		require.Equal(t, "parent", claims.Role)
		require.Equal(t, KindAccess, claims.Kind)
		require.False(t, claims.Staff)
	})

	t.Run("refresh token", func(t *testing.T) {
		raw, err := c.IssueRefresh(Identity{Subject: "acct-1", Role: "parent"})
		require.NoError(t, err)

		claims, err := c.Verify(raw, KindRefresh)
		require.NoError(t, err)
		require.Equal(t, KindRefresh, claims.Kind)
	})

	t.Run("child token carries child_id", func(t *testing.T) {
		raw, err := c.IssueAccess(Identity{Subject: "parent-1", Role: "child", ChildID: "child-9"})
		require.NoError(t, err)

		claims, err := c.Verify(raw, KindAccess)
		require.NoError(t, err)
		require.Equal(t, "parent-1", claims.Subject)
		require.Equal(t, "child-9", claims.ChildID)
	})

	t.Run("staff token carries is_staff", func(t *testing.T) {
		raw, err := c.IssueAccess(Identity{Subject: "staff-1", Role: "staff", Staff: true})
		require.NoError(t, err)

		claims, err := c.Verify(raw, KindAccess)
		require.NoError(t, err)
		require.True(t, claims.Staff)
	})
}

func TestVerifyKindMismatch(t *testing.T) {
	t.Parallel()
	c := testCodec()

	refresh, err := c.IssueRefresh(Identity{Subject: "acct-1", Role: "parent"})
	require.NoError(t, err)

	_, err = c.Verify(refresh, KindAccess)
	require.ErrorIs(t, err, ErrKindMismatch)

	access, err := c.IssueAccess(Identity{Subject: "acct-1", Role: "parent"})
	require.NoError(t, err)

	_, err = c.Verify(access, KindRefresh)
	require.ErrorIs(t, err, ErrKindMismatch)
}

func TestVerifyLegacyTokenWithoutKind(t *testing.T) {
	t.Parallel()
	c := testCodec()

	// Hand-roll a token the way the pre-migration issuer did: valid HS256
	// signature, absolute exp, but no "type" claim at all.
	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "acct-legacy",
		"role": "parent",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := legacy.SignedString(c.Secret)
	require.NoError(t, err)

	// Accepted as either kind until it expires.
	claims, err := c.Verify(raw, KindAccess)
	require.NoError(t, err)
	require.Equal(t, "acct-legacy", claims.Subject)
	require.Empty(t, claims.Kind)

	_, err = c.Verify(raw, KindRefresh)
	require.NoError(t, err)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()
	c := testCodec()
	c.AccessTTL = -time.Minute

	raw, err := c.IssueAccess(Identity{Subject: "acct-1", Role: "parent"})
	require.NoError(t, err)

	_, err = c.Verify(raw, KindAccess)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()
	c := testCodec()

	raw, err := c.IssueAccess(Identity{Subject: "acct-1", Role: "parent"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := testCodec()
		other.Secret = []byte("ffffffffffffffffffffffffffffffff")

		_, err := other.Verify(raw, KindAccess)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := c.Verify("not.a.jwt", KindAccess)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "acct-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = c.Verify(raw, KindAccess)
		require.ErrorIs(t, err, ErrInvalid)
	})
}
