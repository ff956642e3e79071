// Package model defines the data structures used throughout the application.
package model

import (
	"database/sql"
	"time"
)

// User represents an account — either a local signup (username + password)
// or a federated one created on first OAuth login.
//
// WHY Username sql.NullString?
// Local accounts always have a username, and the users table enforces a
// UNIQUE constraint on it. Federated accounts created by the OAuth linker
// never chose one, so their username is NULL in the database. SQL treats
// NULLs as distinct for uniqueness purposes, which is exactly what we want:
// any number of OAuth-only accounts can coexist, but two local accounts can
// never share a username.
//
// PasswordHash is a bcrypt hash and is never serialized to JSON — note the
// json:"-" tag. Even the hash stays server-side.
type User struct {
	ID           int64          `json:"id"        db:"id"`
	FirstName    string         `json:"firstName" db:"first_name"`
	LastName     string         `json:"lastName"  db:"last_name"`
	Username     sql.NullString `json:"username"  db:"username"`
	PasswordHash string         `json:"-"         db:"password_hash"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time      `json:"updatedAt" db:"updated_at"`
}

// DisplayName returns something presentable for any account shape:
// local users have a username, OAuth-created users only a first name.
func (u *User) DisplayName() string {
	if u.Username.Valid && u.Username.String != "" {
		return u.Username.String
	}
	return u.FirstName
}
