// Package service contains the business logic layer.
//
// The layering follows Handler → Service → Repository: handlers parse HTTP
// and write responses, services enforce the rules, repositories talk to
// the database. Services accept primitives and return domain errors from
// internal/apperror; they know nothing about HTTP.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

const (
	MaxNameLength     = 50
	MaxUsernameLength = 256
	DefaultListLimit  = 20
	MaxListLimit      = 100
)

// AccountService owns local accounts: signup with hashed credentials,
// login verification, profile edits, and deletion.
type AccountService struct {
	users     repository.UserRepository
	passwords *auth.PasswordHasher
	logger    *slog.Logger
}

func NewAccountService(users repository.UserRepository, passwords *auth.PasswordHasher, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Signup creates a local account with a bcrypt-hashed password.
//
// The username duplicate check is NOT done here. The repository's UNIQUE
// constraint is the only authority: when two signups race, exactly one
// INSERT wins and the loser comes back as ErrDuplicateUsername. A
// check-then-insert here would just add a window for both to pass the
// check.
func (s *AccountService) Signup(ctx context.Context, firstName, lastName, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if len(firstName) > MaxNameLength || len(lastName) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("names must be %d characters or less", MaxNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if strings.Contains(err.Error(), "72 bytes") {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	user := &model.User{
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Username:     sql.NullString{String: username, Valid: true},
		PasswordHash: hash,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		slog.Int64("userID", user.ID),
		slog.String("username", username),
	)
	return user, nil
}

// Authenticate verifies a username/password pair.
//
// ANTI-ENUMERATION:
// An unknown username and a wrong password both return the same
// ErrInvalidCredential with the same message. A failed Verify still costs
// a bcrypt comparison either way, so response timing doesn't give the
// difference away cheaply either.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Burn a comparison against a throwaway hash so the unknown-user
			// path takes as long as the wrong-password path.
			_ = s.passwords.Verify(
				"$2a$12$C6UzMDM.H6dfI/f/IKxGhuBIfrYzE1q1N9d1qUqMPdcnXLY1l1oPi", password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/account: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/account: verifying password: %w", err)
	}

	return user, nil
}

// UpdatePassword re-hashes and replaces the stored credential. The old
// hash is never read back or returned.
func (s *AccountService) UpdatePassword(ctx context.Context, current *model.User, userID int64, newPassword string) error {
	if err := auth.Check(current, auth.RequireAuthenticated, auth.RequireOwner(userID)); err != nil {
		return err
	}
	if newPassword == "" {
		return apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/account: hashing new password: %w", err)
	}
	return s.users.UpdateUserPassword(ctx, userID, hash)
}

// GetUser returns a user by ID. Public — profiles are readable by anyone.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// ListUsers returns a page of users.
func (s *AccountService) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	opts = clampList(opts)
	return s.users.ListUsers(ctx, opts)
}

// UpdateProfile edits name and username. Owner-only; renaming onto a
// taken username fails with ErrDuplicateUsername from the store.
func (s *AccountService) UpdateProfile(ctx context.Context, current *model.User, userID int64, firstName, lastName, username string) (*model.User, error) {
	if err := auth.Check(current, auth.RequireAuthenticated, auth.RequireOwner(userID)); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(firstName)
	user.LastName = strings.TrimSpace(lastName)
	user.Username = sql.NullString{String: username, Valid: true}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user. Owner-only. Messages, OAuth links and
// sessions cascade at the store; there is nothing to clean up here.
func (s *AccountService) DeleteAccount(ctx context.Context, current *model.User, userID int64) error {
	if err := auth.Check(current, auth.RequireAuthenticated, auth.RequireOwner(userID)); err != nil {
		return err
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("account deleted", slog.Int64("userID", userID))
	return nil
}

func clampList(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
