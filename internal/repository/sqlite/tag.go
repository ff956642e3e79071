package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

var _ repository.TagRepository = (*DB)(nil)

// CreateTag inserts a tag. Tag names are UNIQUE; a duplicate surfaces as a
// validation error on the name field.
func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (name) VALUES (?)`, tag.Name)
	if err != nil {
		if isUniqueViolation(err, "tags.name") {
			return apperror.ValidationFailed("name",
				fmt.Sprintf("tag %q already exists", tag.Name))
		}
		return fmt.Errorf("sqlite: inserting tag: %w", err)
	}

	tag.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new tag id: %w", err)
	}
	return nil
}

func (db *DB) GetTagByID(ctx context.Context, id int64) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %d: %w", id, err)
	}
	return &t, nil
}

func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (db *DB) UpdateTag(ctx context.Context, tag *model.Tag) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE tags SET name = ? WHERE id = ?`, tag.Name, tag.ID)
	if err != nil {
		if isUniqueViolation(err, "tags.name") {
			return apperror.ValidationFailed("name",
				fmt.Sprintf("tag %q already exists", tag.Name))
		}
		return fmt.Errorf("sqlite: updating tag %d: %w", tag.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of tag %d: %w", tag.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("tag", tag.ID)
	}
	return nil
}

// DeleteTag removes a tag; its message_tags rows cascade.
func (db *DB) DeleteTag(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tag %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of tag %d: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("tag", id)
	}
	return nil
}
