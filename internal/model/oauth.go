package model

import "time"

// OAuthLink associates one external provider identity with at most one
// local user.
//
// The (provider, provider_username) pair is UNIQUE — one row per external
// identity, ever. UserID is nullable (0 = unowned): a link row can exist
// briefly without an owner, and the linker's state machine must handle
// that shape even though the normal flows always attach an owner in the
// same transaction that persists the row.
type OAuthLink struct {
	ID               int64     `json:"id"               db:"id"`
	Provider         string    `json:"provider"         db:"provider"`
	ProviderUsername string    `json:"providerUsername" db:"provider_username"`
	Token            string    `json:"-"                db:"token"` // opaque provider token, never exposed
	UserID           int64     `json:"userId"           db:"user_id"`
	CreatedAt        time.Time `json:"createdAt"        db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt"        db:"updated_at"`
}

// Owned reports whether the link has been attached to a local user.
func (l *OAuthLink) Owned() bool { return l.UserID != 0 }
