package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// PINLength is the length of generated child login PINs.
const PINLength = 4

// GeneratePIN returns a uniformly random numeric PIN of PINLength digits.
// Leading zeros are allowed, so the result is always exactly PINLength long.
func GeneratePIN() (string, error) {
	pin := make([]byte, PINLength)
	for i := range pin {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random pin: %w", err)
		}
		pin[i] = byte('0' + n.Int64())
	}
	return string(pin), nil
}
