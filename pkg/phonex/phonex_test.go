package phonex_test

import (
	"testing"

	"github.com/stardiary/stardiary/pkg/phonex"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"+79161234567", "+79161234567"},
		{"79161234567", "+79161234567"},
		{"89161234567", "+79161234567"},
		{"9161234567", "+79161234567"},
		{"8 (916) 123-45-67", "+79161234567"},
		{"+7 916 123 45 67", "+79161234567"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := phonex.Normalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"abc",
		"12345",
		"123456789012345",
		"+19161234567", // wrong country code, 11 digits starting with 1
	} {
		t.Run(in, func(t *testing.T) {
			_, err := phonex.Normalize(in)
			require.ErrorIs(t, err, phonex.ErrInvalid)
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	require.True(t, phonex.Valid("+79161234567"))
	require.False(t, phonex.Valid("79161234567"))
	require.False(t, phonex.Valid("+7916123456"))    // too short
	require.False(t, phonex.Valid("+7916123456x"))   // non-digit
	require.False(t, phonex.Valid("+791612345678"))  // too long
}
