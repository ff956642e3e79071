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

const MaxTagNameLength = 100

// TagService handles the shared tag vocabulary. Tags are not owned by
// anyone, so mutation requires only a logged-in user.
type TagService struct {
	tags   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(tags repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, logger: logger}
}

func (s *TagService) Create(ctx context.Context, current *model.User, name string) (*model.Tag, error) {
	if err := auth.Check(current, auth.RequireAuthenticated); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}
	if len(name) > MaxTagNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("tag name must be %d characters or less", MaxTagNameLength))
	}

	tag := &model.Tag{Name: name}
	if err := s.tags.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Get(ctx context.Context, id int64) (*model.Tag, error) {
	return s.tags.GetTagByID(ctx, id)
}

func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.tags.ListTags(ctx)
}

func (s *TagService) Update(ctx context.Context, current *model.User, id int64, name string) (*model.Tag, error) {
	if err := auth.Check(current, auth.RequireAuthenticated); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}

	tag, err := s.tags.GetTagByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tag.Name = name
	if err := s.tags.UpdateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, current *model.User, id int64) error {
	if err := auth.Check(current, auth.RequireAuthenticated); err != nil {
		return err
	}
	if err := s.tags.DeleteTag(ctx, id); err != nil {
		return err
	}
	s.logger.Info("tag deleted", slog.Int64("tagID", id))
	return nil
}
