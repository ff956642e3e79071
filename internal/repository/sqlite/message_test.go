package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

func createTestTag(t *testing.T, db *DB, name string) *model.Tag {
	t.Helper()
	tag := &model.Tag{Name: name}
	if err := db.CreateTag(context.Background(), tag); err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateMessage(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")

	msg := &model.Message{UserID: user.ID, Content: "hello world"}
	if err := db.CreateMessage(context.Background(), msg, nil); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	if msg.ID == 0 {
		t.Error("CreateMessage() did not set msg.ID")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreateMessage() did not set msg.CreatedAt")
	}
}

func TestCreateMessage_WithTags(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "tagger")
	golang := createTestTag(t, db, "golang")
	web := createTestTag(t, db, "web")

	msg := &model.Message{UserID: user.ID, Content: "tagged post"}
	if err := db.CreateMessage(context.Background(), msg, []int64{golang.ID, web.ID}); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	// attachTags orders by name, so the order is deterministic.
	if len(msg.Tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(msg.Tags))
	}
	if msg.Tags[0].Name != "golang" || msg.Tags[1].Name != "web" {
		t.Errorf("tags = [%q, %q], want [golang, web]", msg.Tags[0].Name, msg.Tags[1].Name)
	}
}

func TestCreateMessage_UnknownTagRollsBack(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "rollback")

	msg := &model.Message{UserID: user.ID, Content: "doomed"}
	err := db.CreateMessage(context.Background(), msg, []int64{424242})
	if err == nil {
		t.Fatal("CreateMessage() should fail for a non-existent tag (FK violation)")
	}

	// The message insert must have been rolled back with the tag failure.
	msgs, listErr := db.ListMessages(context.Background(), repository.ListOptions{Limit: 10})
	if listErr != nil {
		t.Fatalf("ListMessages() error = %v", listErr)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after failed create, want 0", len(msgs))
	}
}

// =========================================================================
// GET / LIST TESTS
// =========================================================================

func TestGetMessageByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetMessageByID(context.Background(), 424242)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetMessageByID() error = %v, want ErrNotFound", err)
	}
}

func TestListUserMessages_FiltersByOwner(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	for _, m := range []*model.Message{
		{UserID: alice.ID, Content: "from alice"},
		{UserID: bob.ID, Content: "from bob"},
		{UserID: alice.ID, Content: "alice again"},
	} {
		if err := db.CreateMessage(context.Background(), m, nil); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	msgs, err := db.ListUserMessages(context.Background(), alice.ID, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListUserMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages for alice, want 2", len(msgs))
	}
	for _, m := range msgs {
		if m.UserID != alice.ID {
			t.Errorf("message %d belongs to user %d, want %d", m.ID, m.UserID, alice.ID)
		}
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateMessage_ReplacesTagSet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "retagger")
	old := createTestTag(t, db, "old")
	new1 := createTestTag(t, db, "new1")
	new2 := createTestTag(t, db, "new2")

	msg := &model.Message{UserID: user.ID, Content: "v1"}
	if err := db.CreateMessage(context.Background(), msg, []int64{old.ID}); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	msg.Content = "v2"
	if err := db.UpdateMessage(context.Background(), msg, []int64{new1.ID, new2.ID}); err != nil {
		t.Fatalf("UpdateMessage() error = %v", err)
	}

	found, err := db.GetMessageByID(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("GetMessageByID() after update: %v", err)
	}
	if found.Content != "v2" {
		t.Errorf("Content = %q, want %q", found.Content, "v2")
	}
	if len(found.Tags) != 2 {
		t.Fatalf("got %d tags after update, want 2", len(found.Tags))
	}
	for _, tag := range found.Tags {
		if tag.Name == "old" {
			t.Error("old tag still attached after update replaced the set")
		}
	}
}

func TestUpdateMessage_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateMessage(context.Background(), &model.Message{ID: 999, Content: "x"}, nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateMessage() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeleteMessage_KeepsTags(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "deleter")
	tag := createTestTag(t, db, "survivor")

	msg := &model.Message{UserID: user.ID, Content: "going away"}
	if err := db.CreateMessage(context.Background(), msg, []int64{tag.ID}); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	if err := db.DeleteMessage(context.Background(), msg.ID); err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}

	// The join rows cascade, the tag itself stays.
	if _, err := db.GetTagByID(context.Background(), tag.ID); err != nil {
		t.Errorf("tag should survive message deletion: %v", err)
	}
}
