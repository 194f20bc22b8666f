package domain

import "time"

// Account is a product identity: a parent or admin. Children do not have
// accounts; child sessions are minted against the owning parent account.
type Account struct {
	ID           string
	Phone        string  // canonical +7XXXXXXXXXX, unique
	Email        *string // optional secondary identifier, unique when set
	Name         string
	PasswordHash string // bcrypt encoded
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
