package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// =========================================================================
// FAKES
//
// In-memory implementations of the repository interfaces. Using fakes
// (not a mock framework) keeps tests dependency-free and easy to read —
// you can see exactly what each fake does.
// =========================================================================

type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if user.Username.Valid {
		for _, u := range f.users {
			if u.Username.Valid && u.Username.String == user.Username.String {
				return apperror.DuplicateUsername(user.Username.String)
			}
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username.Valid && u.Username.String == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", 0)
}

func (f *fakeUserRepo) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users := []model.User{}
	for _, u := range f.users {
		users = append(users, *u)
	}
	return users, nil
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, user *model.User) error {
	stored, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	if user.Username.Valid {
		for id, u := range f.users {
			if id != user.ID && u.Username.Valid && u.Username.String == user.Username.String {
				return apperror.DuplicateUsername(user.Username.String)
			}
		}
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Username = user.Username
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	stored, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	stored.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionRepo) CreateSession(ctx context.Context, session *model.Session) error {
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionRepo) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "session not found"}
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) DeleteSession(ctx context.Context, id string) error {
	delete(f.sessions, id) // idempotent, like the real store
	return nil
}

func (f *fakeSessionRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	for id, s := range f.sessions {
		if !s.ExpiresAt.After(now) {
			delete(f.sessions, id)
		}
	}
	return nil
}

type fakeOAuthRepo struct {
	links  map[string]*model.OAuthLink // keyed by provider + "/" + providerUsername
	users  *fakeUserRepo               // CreateLinkWithNewUser writes here too
	nextID int64
	// error injection
	saveErr      error
	createTxErr  error
	getLinkCalls int
}

func newFakeOAuthRepo(users *fakeUserRepo) *fakeOAuthRepo {
	return &fakeOAuthRepo{links: make(map[string]*model.OAuthLink), users: users, nextID: 1}
}

func linkKey(provider, providerUsername string) string {
	return provider + "/" + providerUsername
}

func (f *fakeOAuthRepo) GetLink(ctx context.Context, provider, providerUsername string) (*model.OAuthLink, error) {
	f.getLinkCalls++
	l, ok := f.links[linkKey(provider, providerUsername)]
	if !ok {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "no link"}
	}
	copied := *l
	return &copied, nil
}

func (f *fakeOAuthRepo) SaveLink(ctx context.Context, link *model.OAuthLink) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if link.ID == 0 {
		if _, exists := f.links[linkKey(link.Provider, link.ProviderUsername)]; exists {
			return apperror.OAuthLinkFailure("identity already linked")
		}
		link.ID = f.nextID
		f.nextID++
	}
	copied := *link
	f.links[linkKey(link.Provider, link.ProviderUsername)] = &copied
	return nil
}

func (f *fakeOAuthRepo) CreateLinkWithNewUser(ctx context.Context, user *model.User, link *model.OAuthLink) error {
	if f.createTxErr != nil {
		return f.createTxErr
	}
	if err := f.users.CreateUser(ctx, user); err != nil {
		return apperror.OAuthLinkFailure("creating account failed")
	}
	link.UserID = user.ID
	if err := f.SaveLink(ctx, link); err != nil {
		// Keep the all-or-nothing contract of the real transaction.
		delete(f.users.users, user.ID)
		return err
	}
	return nil
}

func (f *fakeOAuthRepo) ListUserLinks(ctx context.Context, userID int64) ([]model.OAuthLink, error) {
	links := []model.OAuthLink{}
	for _, l := range f.links {
		if l.UserID == userID {
			links = append(links, *l)
		}
	}
	return links, nil
}

type fakeTagRepo struct {
	tags   map[int64]*model.Tag
	nextID int64
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: make(map[int64]*model.Tag), nextID: 1}
}

func (f *fakeTagRepo) CreateTag(ctx context.Context, tag *model.Tag) error {
	tag.ID = f.nextID
	f.nextID++
	copied := *tag
	f.tags[tag.ID] = &copied
	return nil
}

func (f *fakeTagRepo) GetTagByID(ctx context.Context, id int64) (*model.Tag, error) {
	t, ok := f.tags[id]
	if !ok {
		return nil, apperror.NotFound("tag", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTagRepo) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags := []model.Tag{}
	for _, t := range f.tags {
		tags = append(tags, *t)
	}
	return tags, nil
}

func (f *fakeTagRepo) UpdateTag(ctx context.Context, tag *model.Tag) error {
	if _, ok := f.tags[tag.ID]; !ok {
		return apperror.NotFound("tag", tag.ID)
	}
	copied := *tag
	f.tags[tag.ID] = &copied
	return nil
}

func (f *fakeTagRepo) DeleteTag(ctx context.Context, id int64) error {
	if _, ok := f.tags[id]; !ok {
		return apperror.NotFound("tag", id)
	}
	delete(f.tags, id)
	return nil
}

type fakeMessageRepo struct {
	messages map[int64]*model.Message
	tagSets  map[int64][]int64
	nextID   int64
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages: make(map[int64]*model.Message),
		tagSets:  make(map[int64][]int64),
		nextID:   1,
	}
}

func (f *fakeMessageRepo) CreateMessage(ctx context.Context, msg *model.Message, tagIDs []int64) error {
	msg.ID = f.nextID
	f.nextID++
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = time.Now()
	copied := *msg
	f.messages[msg.ID] = &copied
	f.tagSets[msg.ID] = append([]int64(nil), tagIDs...)
	return nil
}

func (f *fakeMessageRepo) GetMessageByID(ctx context.Context, id int64) (*model.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, apperror.NotFound("message", id)
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMessageRepo) ListMessages(ctx context.Context, opts repository.ListOptions) ([]model.Message, error) {
	msgs := []model.Message{}
	for _, m := range f.messages {
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (f *fakeMessageRepo) ListUserMessages(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.Message, error) {
	msgs := []model.Message{}
	for _, m := range f.messages {
		if m.UserID == userID {
			msgs = append(msgs, *m)
		}
	}
	return msgs, nil
}

func (f *fakeMessageRepo) UpdateMessage(ctx context.Context, msg *model.Message, tagIDs []int64) error {
	if _, ok := f.messages[msg.ID]; !ok {
		return apperror.NotFound("message", msg.ID)
	}
	msg.UpdatedAt = time.Now()
	copied := *msg
	f.messages[msg.ID] = &copied
	f.tagSets[msg.ID] = append([]int64(nil), tagIDs...)
	return nil
}

func (f *fakeMessageRepo) DeleteMessage(ctx context.Context, id int64) error {
	if _, ok := f.messages[id]; !ok {
		return apperror.NotFound("message", id)
	}
	delete(f.messages, id)
	delete(f.tagSets, id)
	return nil
}

// =========================================================================
// SHARED HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testCodec returns a TokenCodec with a test secret and a one-hour TTL.
func testCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

// testHasher returns a PasswordHasher at bcrypt cost 4 — the library
// minimum, so tests run in milliseconds instead of ~250ms per hash.
func testHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasherWithCost(4)
}
