package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

var _ repository.OAuthRepository = (*DB)(nil)

// GetLink looks up the link row for an external identity.
// Returns apperror.ErrNotFound when no row exists for the pair.
func (db *DB) GetLink(ctx context.Context, provider, providerUsername string) (*model.OAuthLink, error) {
	var (
		l      model.OAuthLink
		userID sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider, provider_username, token, user_id, created_at, updated_at
		 FROM oauth_links WHERE provider = ? AND provider_username = ?`,
		provider, providerUsername,
	).Scan(&l.ID, &l.Provider, &l.ProviderUsername, &l.Token, &userID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("no %s link for %q", provider, providerUsername),
			}
		}
		return nil, fmt.Errorf("sqlite: getting %s link for %q: %w", provider, providerUsername, err)
	}

	l.UserID = userID.Int64 // 0 when NULL: the link has no owner yet
	return &l, nil
}

// SaveLink inserts a new link row (ID == 0) or updates an existing one.
//
// The UNIQUE (provider, provider_username) constraint serializes racing
// link attempts for the same external identity: the second insert fails
// and surfaces as an OAuthLinkFailure for the caller to report.
func (db *DB) SaveLink(ctx context.Context, link *model.OAuthLink) error {
	now := time.Now()
	link.UpdatedAt = now

	if link.ID == 0 {
		link.CreatedAt = now
		res, err := db.conn.ExecContext(ctx,
			`INSERT INTO oauth_links (provider, provider_username, token, user_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			link.Provider, link.ProviderUsername, link.Token,
			nullableID(link.UserID), link.CreatedAt, link.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "oauth_links.provider") {
				return apperror.OAuthLinkFailure(
					fmt.Sprintf("%s identity %q is already linked", link.Provider, link.ProviderUsername))
			}
			return fmt.Errorf("sqlite: inserting oauth link: %w", err)
		}
		link.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new oauth link id: %w", err)
		}
		return nil
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE oauth_links SET token = ?, user_id = ?, updated_at = ? WHERE id = ?`,
		link.Token, nullableID(link.UserID), link.UpdatedAt, link.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating oauth link %d: %w", link.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of oauth link %d: %w", link.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("oauth link", link.ID)
	}
	return nil
}

// CreateLinkWithNewUser persists a brand-new user and their link in a
// single transaction. This is the "anonymous visitor, first OAuth login"
// path: either both rows land or neither does — a user without a link, or
// a link pointing at a missing user, must never be observable.
func (db *DB) CreateLinkWithNewUser(ctx context.Context, user *model.User, link *model.OAuthLink) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning link transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, username, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.FirstName, user.LastName, user.Username, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return apperror.OAuthLinkFailure(fmt.Sprintf("creating account: %v", err))
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}

	link.UserID = user.ID
	link.UpdatedAt = now

	if link.ID == 0 {
		link.CreatedAt = now
		res, err = tx.ExecContext(ctx,
			`INSERT INTO oauth_links (provider, provider_username, token, user_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			link.Provider, link.ProviderUsername, link.Token,
			link.UserID, link.CreatedAt, link.UpdatedAt,
		)
		if err != nil {
			// Rolled back by the deferred Rollback — the user insert above
			// is discarded with it.
			if isUniqueViolation(err, "oauth_links.provider") {
				return apperror.OAuthLinkFailure(
					fmt.Sprintf("%s identity %q is already linked", link.Provider, link.ProviderUsername))
			}
			return apperror.OAuthLinkFailure(fmt.Sprintf("saving link: %v", err))
		}
		if link.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading new oauth link id: %w", err)
		}
	} else {
		// Pre-existing unowned row: attach it to the new user.
		if _, err = tx.ExecContext(ctx,
			`UPDATE oauth_links SET token = ?, user_id = ?, updated_at = ? WHERE id = ?`,
			link.Token, link.UserID, link.UpdatedAt, link.ID,
		); err != nil {
			return apperror.OAuthLinkFailure(fmt.Sprintf("attaching link: %v", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.OAuthLinkFailure(fmt.Sprintf("committing link: %v", err))
	}
	return nil
}

// ListUserLinks returns all provider identities attached to a user.
func (db *DB) ListUserLinks(ctx context.Context, userID int64) ([]model.OAuthLink, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, provider, provider_username, token, user_id, created_at, updated_at
		 FROM oauth_links WHERE user_id = ? ORDER BY provider, provider_username`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing links for user %d: %w", userID, err)
	}
	defer rows.Close()

	links := []model.OAuthLink{}
	for rows.Next() {
		var (
			l   model.OAuthLink
			uid sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.Provider, &l.ProviderUsername, &l.Token,
			&uid, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning oauth link row: %w", err)
		}
		l.UserID = uid.Int64
		links = append(links, l)
	}
	return links, rows.Err()
}

// nullableID maps the zero ID to SQL NULL so the users(id) foreign key
// never sees a bogus 0 reference.
func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
