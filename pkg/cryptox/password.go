package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently ignores everything past 72 bytes on some implementations
// and rejects longer input on others. We truncate explicitly so hashing and
// verification agree on the bytes that matter.
const maxPasswordBytes = 72

// ErrPasswordMismatch reports that a password does not match its stored hash.
// Malformed hashes are reported the same way so callers can't tell the two
// apart.
var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// HashPassword generates a bcrypt hash of the password at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a bcrypt hash.
// It never panics; any parse or comparison failure is ErrPasswordMismatch.
func VerifyPassword(password, encodedHash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(encodedHash), truncatePassword(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
