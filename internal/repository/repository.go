// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the concrete implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/microblog/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists accounts.
//
// CreateUser and UpdateUser return apperror.ErrDuplicateUsername when the
// username UNIQUE constraint fires. Duplicate detection lives here — at
// the storage layer — so two racing inserts are serialized by the
// constraint rather than by a check-then-insert in the service.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	// DeleteUser removes the user; messages, oauth links and sessions cascade.
	DeleteUser(ctx context.Context, id int64) error
}

// MessageRepository persists messages and their tag attachments.
// tagIDs replaces the full set of attached tags on create/update.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *model.Message, tagIDs []int64) error
	GetMessageByID(ctx context.Context, id int64) (*model.Message, error)
	ListMessages(ctx context.Context, opts ListOptions) ([]model.Message, error)
	ListUserMessages(ctx context.Context, userID int64, opts ListOptions) ([]model.Message, error)
	UpdateMessage(ctx context.Context, msg *model.Message, tagIDs []int64) error
	DeleteMessage(ctx context.Context, id int64) error
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTagByID(ctx context.Context, id int64) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	UpdateTag(ctx context.Context, tag *model.Tag) error
	DeleteTag(ctx context.Context, id int64) error
}

// OAuthRepository persists provider-identity links.
//
// SaveLink covers both shapes the linker produces: a brand-new link row
// (ID == 0, INSERT) and an existing unowned row gaining an owner
// (ID != 0, UPDATE). CreateLinkWithNewUser persists a new user and their
// link in one transaction — a failure leaves neither behind.
type OAuthRepository interface {
	GetLink(ctx context.Context, provider, providerUsername string) (*model.OAuthLink, error)
	SaveLink(ctx context.Context, link *model.OAuthLink) error
	CreateLinkWithNewUser(ctx context.Context, user *model.User, link *model.OAuthLink) error
	ListUserLinks(ctx context.Context, userID int64) ([]model.OAuthLink, error)
}

// SessionRepository persists login sessions keyed by token ID.
// DeleteSession is idempotent: deleting an absent session is not an error.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}
