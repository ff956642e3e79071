package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// linkState names the shapes the linker can find the world in after
// looking up the provider identity. Modelling the branches as states
// (instead of nested conditionals) keeps the linking policy auditable:
// every (state × session) combination below has exactly one outcome.
type linkState int

const (
	// noLink: this external identity has never been seen.
	noLink linkState = iota
	// linkedNoOwner: a link row exists but points at no user. Not
	// produced by the normal flows, but reachable (a past partial link on
	// a store without transactions, manual row surgery), so it is handled
	// rather than assumed away: the existing row is reused and flows into
	// the same linking decision as noLink.
	linkedNoOwner
	// linkedWithOwner: the identity is attached to a user; the callback
	// is simply that user logging in again.
	linkedWithOwner
)

// LinkOutcome tells the handler which terminal state the callback reached,
// so it can flash the right message.
type LinkOutcome int

const (
	// OutcomeSignedIn: existing linked account, user logged in.
	OutcomeSignedIn LinkOutcome = iota
	// OutcomeLinked: provider identity attached to the already-logged-in
	// user; their session is untouched.
	OutcomeLinked
	// OutcomeNewAccount: a fresh local account was created for the
	// identity and a session started for it.
	OutcomeNewAccount
)

// LinkResult is the outcome of a completed provider callback.
// SessionToken is empty for OutcomeLinked — the caller already had one.
type LinkResult struct {
	User         *model.User
	Outcome      LinkOutcome
	SessionToken string
}

// OAuthService reconciles provider callbacks against local identity state.
type OAuthService struct {
	links     repository.OAuthRepository
	passwords *auth.PasswordHasher
	sessions  *SessionService
	logger    *slog.Logger
}

func NewOAuthService(
	links repository.OAuthRepository,
	passwords *auth.PasswordHasher,
	sessions *SessionService,
	logger *slog.Logger,
) *OAuthService {
	return &OAuthService{
		links:     links,
		passwords: passwords,
		sessions:  sessions,
		logger:    logger,
	}
}

// CompleteCallback runs the linking state machine for one successful
// provider callback. current is the request's already-resolved identity
// (nil for an anonymous visitor) — passed in explicitly, never read from
// ambient state.
//
// The decision table:
//
//	linkedWithOwner, any session   → log the link's owner in
//	noLink / linkedNoOwner, authed → attach link to current user
//	noLink / linkedNoOwner, anon   → create account + link atomically,
//	                                 start a session for it
//
// Any persistence failure in the lower two rows is an OAuthLinkFailure
// and leaves no partial row behind.
func (s *OAuthService) CompleteCallback(ctx context.Context, identity *auth.ProviderIdentity, current *model.User) (*LinkResult, error) {
	// Step 1: the callback must have produced a usable identity. The
	// provider exchange already failed loudly if not; this is the last
	// line before any state is touched.
	if identity == nil || identity.Token == "" {
		return nil, apperror.OAuthFailure("provider callback carried no usable token")
	}
	if identity.Username == "" {
		return nil, apperror.OAuthFailure("provider did not supply a username")
	}

	// Step 2: look up the external identity.
	link, state, err := s.lookup(ctx, identity)
	if err != nil {
		return nil, err
	}

	if state == linkedWithOwner {
		// Existing-identity reuse: log the owner in, touch nothing else.
		user, token, err := s.signIn(ctx, link.UserID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("oauth sign-in",
			slog.String("provider", identity.Provider),
			slog.String("providerUsername", identity.Username),
			slog.Int64("userID", user.ID),
		)
		return &LinkResult{User: user, Outcome: OutcomeSignedIn, SessionToken: token}, nil
	}

	// Step 3: no owner was found. Decide between linking to the current
	// session's user and minting a brand-new account.
	link.Token = identity.Token

	if current != nil {
		link.UserID = current.ID
		if err := s.links.SaveLink(ctx, link); err != nil {
			return nil, asLinkFailure(err)
		}
		s.logger.Info("oauth link attached",
			slog.String("provider", identity.Provider),
			slog.String("providerUsername", identity.Username),
			slog.Int64("userID", current.ID),
		)
		return &LinkResult{User: current, Outcome: OutcomeLinked}, nil
	}

	// Anonymous first-ever OAuth login: create the local account on the
	// fly. The provider username becomes the display name; the credential
	// is a random placeholder — hashed like any password, but unguessable,
	// so the account cannot be entered through the login form.
	placeholder, err := randomPlaceholder()
	if err != nil {
		return nil, fmt.Errorf("service/oauth: generating placeholder credential: %w", err)
	}
	hash, err := s.passwords.Hash(placeholder)
	if err != nil {
		return nil, fmt.Errorf("service/oauth: hashing placeholder credential: %w", err)
	}

	user := &model.User{
		FirstName:    identity.Username,
		Username:     sql.NullString{}, // no local username; NULL, not ""
		PasswordHash: hash,
	}

	if err := s.links.CreateLinkWithNewUser(ctx, user, link); err != nil {
		return nil, asLinkFailure(err)
	}

	token, err := s.sessions.Start(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("service/oauth: starting session for new account: %w", err)
	}

	s.logger.Info("oauth account created",
		slog.String("provider", identity.Provider),
		slog.String("providerUsername", identity.Username),
		slog.Int64("userID", user.ID),
	)
	return &LinkResult{User: user, Outcome: OutcomeNewAccount, SessionToken: token}, nil
}

// lookup classifies the external identity and returns the link row to work
// with. For noLink the returned row is constructed but unsaved (ID == 0).
func (s *OAuthService) lookup(ctx context.Context, identity *auth.ProviderIdentity) (*model.OAuthLink, linkState, error) {
	link, err := s.links.GetLink(ctx, identity.Provider, identity.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &model.OAuthLink{
				Provider:         identity.Provider,
				ProviderUsername: identity.Username,
				Token:            identity.Token,
			}, noLink, nil
		}
		return nil, noLink, fmt.Errorf("service/oauth: looking up link: %w", err)
	}

	if link.Owned() {
		return link, linkedWithOwner, nil
	}
	return link, linkedNoOwner, nil
}

// signIn loads the link's owner and starts a session for them.
func (s *OAuthService) signIn(ctx context.Context, userID int64) (*model.User, string, error) {
	user, err := s.sessions.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("service/oauth: loading linked user %d: %w", userID, err)
	}
	token, err := s.sessions.Start(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// asLinkFailure wraps storage errors from the linking step so the handler
// reports them uniformly; already-typed link failures pass through.
func asLinkFailure(err error) error {
	if errors.Is(err, apperror.ErrOAuthLinkFailure) {
		return err
	}
	return apperror.OAuthLinkFailure(fmt.Sprintf("persisting link: %v", err))
}

// randomPlaceholder returns 32 bytes of randomness, hex encoded. Used as
// the never-to-be-typed password of OAuth-created accounts.
func randomPlaceholder() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
