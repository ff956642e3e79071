package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// SessionService binds requests to identities.
//
// A session is a row in the sessions table plus a signed cookie token
// whose jti names that row. Start writes the row and signs the token,
// Resolve walks token → row → user, End deletes the row. The row is the
// authority: no row, no session, regardless of what the cookie says.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	codec    *auth.TokenCodec
	logger   *slog.Logger
}

var _ auth.UserResolver = (*SessionService)(nil)

func NewSessionService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	codec *auth.TokenCodec,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		codec:    codec,
		logger:   logger,
	}
}

// TTL returns the session lifetime, for cookie Max-Age.
func (s *SessionService) TTL() time.Duration { return s.codec.TTL() }

// Start issues a session for an authenticated (or freshly signed-up) user
// and returns the cookie token.
func (s *SessionService) Start(ctx context.Context, user *model.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", fmt.Errorf("service/session: cannot start a session without a user")
	}

	session := &model.Session{
		ID:        xid.New().String(),
		UserID:    user.ID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.codec.TTL()),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("service/session: persisting session: %w", err)
	}

	token, err := s.codec.Encode(session.ID, user.ID)
	if err != nil {
		// Don't leave an orphaned row for a token nobody holds.
		_ = s.sessions.DeleteSession(ctx, session.ID)
		return "", fmt.Errorf("service/session: encoding token: %w", err)
	}

	s.logger.Info("session started", slog.Int64("userID", user.ID))
	return token, nil
}

// ResolveCurrentUser maps a cookie token to a user, or nil for anonymous.
//
// STALE-SESSION TOLERANCE:
// This never returns an error for a bad token, a revoked or expired
// session, or a session whose user has since been deleted — all of those
// are ordinary anonymous requests. An error here means the store itself
// failed.
func (s *SessionService) ResolveCurrentUser(ctx context.Context, token string) (*model.User, error) {
	sessionID, err := s.codec.Decode(token)
	if err != nil {
		return nil, nil // tampered or expired token: anonymous
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil // revoked: anonymous
		}
		return nil, fmt.Errorf("service/session: loading session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.DeleteSession(ctx, session.ID)
		return nil, nil
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// The user was deleted while the session row survived (the
			// cascade covers sqlite, but a fake or future store may not).
			_ = s.sessions.DeleteSession(ctx, session.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("service/session: loading session user: %w", err)
	}

	return user, nil
}

// End revokes the session named by the token. Idempotent: ending an
// already-ended (or never-issued, or garbage) session is a no-op.
func (s *SessionService) End(ctx context.Context, token string) error {
	sessionID, err := s.codec.Decode(token)
	if err != nil {
		return nil // nothing to revoke
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}

// PruneExpired clears expired session rows. Called opportunistically from
// the server's background loop.
func (s *SessionService) PruneExpired(ctx context.Context) error {
	return s.sessions.DeleteExpiredSessions(ctx, time.Now())
}
