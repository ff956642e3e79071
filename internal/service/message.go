package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

const MaxMessageLength = 10000

// MessageService handles message CRUD. Reads are public; creation requires
// a logged-in user and mutation requires the owner. The guard chain runs
// here, before any write, so every caller gets the same policy.
type MessageService struct {
	messages repository.MessageRepository
	tags     repository.TagRepository
	logger   *slog.Logger
}

func NewMessageService(messages repository.MessageRepository, tags repository.TagRepository, logger *slog.Logger) *MessageService {
	return &MessageService{
		messages: messages,
		tags:     tags,
		logger:   logger,
	}
}

// Create posts a message as the current user.
func (s *MessageService) Create(ctx context.Context, current *model.User, content string, tagIDs []int64) (*model.Message, error) {
	if err := auth.Check(current, auth.RequireAuthenticated); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "message content is required")
	}
	if len(content) > MaxMessageLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("message must be %d characters or less", MaxMessageLength))
	}
	if err := s.checkTags(ctx, tagIDs); err != nil {
		return nil, err
	}

	msg := &model.Message{
		UserID:  current.ID,
		Content: content,
	}
	if err := s.messages.CreateMessage(ctx, msg, tagIDs); err != nil {
		return nil, err
	}

	s.logger.Info("message created",
		slog.Int64("messageID", msg.ID),
		slog.Int64("userID", current.ID),
	)
	return msg, nil
}

// Get returns a message by ID. Public.
func (s *MessageService) Get(ctx context.Context, id int64) (*model.Message, error) {
	return s.messages.GetMessageByID(ctx, id)
}

// List returns all messages, newest first. Public.
func (s *MessageService) List(ctx context.Context, opts repository.ListOptions) ([]model.Message, error) {
	return s.messages.ListMessages(ctx, clampList(opts))
}

// ListByUser returns one user's messages. Public.
func (s *MessageService) ListByUser(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.Message, error) {
	return s.messages.ListUserMessages(ctx, userID, clampList(opts))
}

// Update edits a message's content and tag set. Owner-only.
//
// Guard ordering matters: authentication is checked before ownership, so
// an anonymous caller gets Unauthenticated, not Unauthorized, and the
// ownership comparison never runs against a nil identity.
func (s *MessageService) Update(ctx context.Context, current *model.User, id int64, content string, tagIDs []int64) (*model.Message, error) {
	msg, err := s.messages.GetMessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Check(current, auth.RequireAuthenticated, auth.RequireOwnerOf(msg)); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "message content is required")
	}
	if err := s.checkTags(ctx, tagIDs); err != nil {
		return nil, err
	}

	msg.Content = content
	if err := s.messages.UpdateMessage(ctx, msg, tagIDs); err != nil {
		return nil, err
	}
	return msg, nil
}

// Delete removes a message. Owner-only.
func (s *MessageService) Delete(ctx context.Context, current *model.User, id int64) error {
	msg, err := s.messages.GetMessageByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Check(current, auth.RequireAuthenticated, auth.RequireOwnerOf(msg)); err != nil {
		return err
	}
	return s.messages.DeleteMessage(ctx, id)
}

// checkTags verifies every referenced tag exists, so a bad ID fails with
// a 400 instead of a foreign-key error from the store.
func (s *MessageService) checkTags(ctx context.Context, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		if _, err := s.tags.GetTagByID(ctx, tagID); err != nil {
			return apperror.ValidationFailed("tagIds", fmt.Sprintf("tag %d does not exist", tagID))
		}
	}
	return nil
}
