// Package auth holds the authentication primitives: bcrypt password
// hashing, the session token scheme, the OAuth provider client, and the
// access guards. Everything here is framework-free; the HTTP wiring lives
// in internal/handler and internal/server.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor.
//
// bcrypt is deliberately slow; that slowness is the security property.
// Cost 12 lands around 250ms per hash on current server hardware — cheap
// for a login, expensive for a brute-force. Tune upward as hardware gets
// faster.
const defaultCost = 12

// ErrPasswordMismatch is returned by Verify when the plaintext does not
// match the stored hash.
var ErrPasswordMismatch = errors.New("auth: password does not match")

// PasswordHasher provides bcrypt hashing and verification.
//
// The cost is injectable so tests can run at bcrypt's minimum cost (4)
// instead of paying ~250ms per hash.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a PasswordHasher with the production cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: defaultCost}
}

// NewPasswordHasherWithCost creates a PasswordHasher with a custom cost.
// Intended for tests; do not lower the cost in production.
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash hashes a plaintext password.
//
// The output embeds the algorithm version, cost, and a random salt, so two
// users with the same password never share a hash and no separate salt
// column is needed. Store the string as-is.
//
// Plaintexts longer than 72 bytes are rejected: bcrypt silently truncates
// at 72, and silent truncation is worse than an explicit error.
func (p *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext against a stored hash. The comparison is
// one-way and constant-time; the stored hash is never decrypted, only
// re-derived and compared.
//
// Returns ErrPasswordMismatch on a wrong password, some other error if the
// stored hash is malformed.
func (p *PasswordHasher) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
