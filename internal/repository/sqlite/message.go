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

var _ repository.MessageRepository = (*DB)(nil)

// Create inserts a message and its tag attachments in one transaction.
func (db *DB) CreateMessage(ctx context.Context, msg *model.Message, tagIDs []int64) error {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning message insert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (user_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		msg.UserID, msg.Content, msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting message: %w", err)
	}

	msg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new message id: %w", err)
	}

	if err := setMessageTags(ctx, tx, msg.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing message insert: %w", err)
	}

	return db.attachTags(ctx, msg)
}

// GetByID retrieves a message with its tags.
func (db *DB) GetMessageByID(ctx context.Context, id int64) (*model.Message, error) {
	var m model.Message
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, content, created_at, updated_at FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.UserID, &m.Content, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("message", id)
		}
		return nil, fmt.Errorf("sqlite: getting message %d: %w", id, err)
	}

	if err := db.attachTags(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all messages, newest first.
func (db *DB) ListMessages(ctx context.Context, opts repository.ListOptions) ([]model.Message, error) {
	return db.listMessages(ctx,
		`SELECT id, user_id, content, created_at, updated_at
		 FROM messages ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset)
}

// ListByUser returns one user's messages, newest first.
func (db *DB) ListUserMessages(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.Message, error) {
	return db.listMessages(ctx,
		`SELECT id, user_id, content, created_at, updated_at
		 FROM messages WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset)
}

func (db *DB) listMessages(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range msgs {
		if err := db.attachTags(ctx, &msgs[i]); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// Update rewrites content and replaces the tag set, transactionally.
func (db *DB) UpdateMessage(ctx context.Context, msg *model.Message, tagIDs []int64) error {
	msg.UpdatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning message update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE messages SET content = ?, updated_at = ? WHERE id = ?`,
		msg.Content, msg.UpdatedAt, msg.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating message %d: %w", msg.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of message %d: %w", msg.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("message", msg.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM message_tags WHERE message_id = ?`, msg.ID); err != nil {
		return fmt.Errorf("sqlite: clearing tags for message %d: %w", msg.ID, err)
	}
	if err := setMessageTags(ctx, tx, msg.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing message update: %w", err)
	}

	return db.attachTags(ctx, msg)
}

// Delete removes a message; its message_tags rows cascade.
func (db *DB) DeleteMessage(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting message %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of message %d: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("message", id)
	}
	return nil
}

// setMessageTags inserts join rows inside the caller's transaction.
func setMessageTags(ctx context.Context, tx *sql.Tx, messageID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO message_tags (message_id, tag_id) VALUES (?, ?)`,
			messageID, tagID,
		); err != nil {
			return fmt.Errorf("sqlite: attaching tag %d to message %d: %w", tagID, messageID, err)
		}
	}
	return nil
}

// attachTags populates msg.Tags from the join table.
func (db *DB) attachTags(ctx context.Context, msg *model.Message) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.name FROM tags t
		 JOIN message_tags mt ON mt.tag_id = t.id
		 WHERE mt.message_id = ? ORDER BY t.name`,
		msg.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading tags for message %d: %w", msg.ID, err)
	}
	defer rows.Close()

	msg.Tags = nil
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		msg.Tags = append(msg.Tags, t)
	}
	return rows.Err()
}
