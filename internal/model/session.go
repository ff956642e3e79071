package model

import "time"

// Session is a server-side login record. The ID is the `jti` claim of the
// JWT cookie we hand to the browser; the row holds exactly one claim — the
// authenticated user's ID.
//
// Deleting the row is how logout revokes a session: the cookie may still be
// cryptographically valid, but without a matching row it resolves to an
// anonymous request.
type Session struct {
	ID        string    `db:"id"` // xid, stored in the token's jti claim
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
