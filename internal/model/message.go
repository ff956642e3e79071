package model

import "time"

// Message is a post written by a user. Messages belong to exactly one user
// and are deleted along with their owner (ON DELETE CASCADE in the schema).
type Message struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    int64     `json:"userId"    db:"user_id"`
	Content   string    `json:"content"   db:"content"`
	Tags      []Tag     `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OwnerID implements the ownership check used by the access guards.
func (m *Message) OwnerID() int64 { return m.UserID }
