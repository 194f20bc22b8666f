// Package phonex normalizes phone numbers to the canonical +7XXXXXXXXXX form
// used as the primary login identifier across the service.
package phonex

import (
	"errors"
	"strings"
)

// ErrInvalid reports a phone number that cannot be normalized to the
// canonical +7 form.
var ErrInvalid = errors.New("phonex: invalid phone number")

// Normalize strips formatting characters and converts the number to the
// canonical +7XXXXXXXXXX form:
//
//	8XXXXXXXXXX  -> +7XXXXXXXXXX (domestic trunk prefix)
//	7XXXXXXXXXX  -> +7XXXXXXXXXX
//	+7XXXXXXXXXX -> unchanged
//	XXXXXXXXXX   -> +7XXXXXXXXXX (bare 10-digit subscriber number)
//
// The result is always validated; anything that does not end up as +7
// followed by exactly 10 digits is rejected.
func Normalize(phone string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if cleaned == "" {
		return "", ErrInvalid
	}

	var canonical string
	switch {
	case len(cleaned) == 11 && cleaned[0] == '8':
		canonical = "+7" + cleaned[1:]
	case len(cleaned) == 11 && cleaned[0] == '7':
		canonical = "+" + cleaned
	case len(cleaned) == 10:
		canonical = "+7" + cleaned
	default:
		return "", ErrInvalid
	}

	if !Valid(canonical) {
		return "", ErrInvalid
	}
	return canonical, nil
}

// Valid reports whether phone is already in canonical +7XXXXXXXXXX form.
func Valid(phone string) bool {
	if len(phone) != 12 || !strings.HasPrefix(phone, "+7") {
		return false
	}
	for _, r := range phone[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
