package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.True(t, strings.HasPrefix(hash, "$2"))

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, VerifyPassword("wrong password", hash), ErrPasswordMismatch)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	t.Parallel()

	// Garbage hashes must report a mismatch, never panic or leak parse detail.
	require.ErrorIs(t, VerifyPassword("anything", ""), ErrPasswordMismatch)
	require.ErrorIs(t, VerifyPassword("anything", "not-a-bcrypt-hash"), ErrPasswordMismatch)
}

func TestPasswordTruncation(t *testing.T) {
	t.Parallel()

	// Passwords agreeing on the first 72 bytes are the same password.
	long := strings.Repeat("a", 80)
	hash, err := HashPassword(long)
	require.NoError(t, err)

	require.NoError(t, VerifyPassword(strings.Repeat("a", 72), hash))
	require.NoError(t, VerifyPassword(strings.Repeat("a", 100), hash))
	require.ErrorIs(t, VerifyPassword(strings.Repeat("a", 71), hash), ErrPasswordMismatch)
}
