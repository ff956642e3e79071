package model

// Tag is a label that can be attached to any number of messages.
// The messages↔tags relation is many-to-many via the message_tags table.
type Tag struct {
	ID   int64  `json:"id"   db:"id"`
	Name string `json:"name" db:"name"`
}
