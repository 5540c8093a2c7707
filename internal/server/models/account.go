package models

import (
	"slices"
	"time"
)

// Role names stored on accounts. Roles carry no hierarchy; an admin must
// hold RoleAdmin explicitly.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is a registered user as stored in the accounts table.
// PasswordHash is a bcrypt hash and must never cross the server boundary.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// HasRole reports whether the account holds the given role.
func (a *Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}
