package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
)

func newTestMessageService() (*MessageService, *fakeMessageRepo, *fakeTagRepo) {
	messages := newFakeMessageRepo()
	tags := newFakeTagRepo()
	return NewMessageService(messages, tags, testLogger()), messages, tags
}

func TestMessageCreate(t *testing.T) {
	svc, _, tags := newTestMessageService()
	author := &model.User{ID: 1, FirstName: "Author"}

	tag := &model.Tag{Name: "go"}
	_ = tags.CreateTag(context.Background(), tag)

	msg, err := svc.Create(context.Background(), author, "  hello world  ", []int64{tag.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if msg.Content != "hello world" {
		t.Errorf("Content = %q, want trimmed %q", msg.Content, "hello world")
	}
	if msg.UserID != author.ID {
		t.Errorf("UserID = %d, want %d", msg.UserID, author.ID)
	}
}

func TestMessageCreate_Anonymous(t *testing.T) {
	svc, _, _ := newTestMessageService()

	_, err := svc.Create(context.Background(), nil, "hello", nil)
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("Create() error = %v, want ErrUnauthenticated", err)
	}
}

func TestMessageCreate_Validation(t *testing.T) {
	svc, _, _ := newTestMessageService()
	author := &model.User{ID: 1}

	if _, err := svc.Create(context.Background(), author, "   ", nil); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank content error = %v, want ErrValidation", err)
	}
	long := strings.Repeat("x", MaxMessageLength+1)
	if _, err := svc.Create(context.Background(), author, long, nil); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("overlong content error = %v, want ErrValidation", err)
	}
}

func TestMessageCreate_UnknownTag(t *testing.T) {
	svc, _, _ := newTestMessageService()
	author := &model.User{ID: 1}

	_, err := svc.Create(context.Background(), author, "tagged", []int64{999})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() with bad tag error = %v, want ErrValidation", err)
	}
}

func TestMessageUpdate_OwnerOnly(t *testing.T) {
	svc, _, _ := newTestMessageService()
	owner := &model.User{ID: 1}
	other := &model.User{ID: 2}

	msg, err := svc.Create(context.Background(), owner, "original", nil)
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	if _, err := svc.Update(context.Background(), other, msg.ID, "hijacked", nil); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("non-owner Update() error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Update(context.Background(), nil, msg.ID, "anon edit", nil); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("anonymous Update() error = %v, want ErrUnauthenticated", err)
	}

	updated, err := svc.Update(context.Background(), owner, msg.ID, "edited", nil)
	if err != nil {
		t.Fatalf("owner Update() error = %v", err)
	}
	if updated.Content != "edited" {
		t.Errorf("Content = %q, want %q", updated.Content, "edited")
	}
}

func TestMessageDelete_OwnerOnly(t *testing.T) {
	svc, _, _ := newTestMessageService()
	owner := &model.User{ID: 1}
	other := &model.User{ID: 2}

	msg, _ := svc.Create(context.Background(), owner, "to delete", nil)

	if err := svc.Delete(context.Background(), other, msg.ID); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("non-owner Delete() error = %v, want ErrUnauthorized", err)
	}
	if err := svc.Delete(context.Background(), owner, msg.ID); err != nil {
		t.Fatalf("owner Delete() error = %v", err)
	}
	if _, err := svc.Get(context.Background(), msg.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMessageUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestMessageService()

	_, err := svc.Update(context.Background(), &model.User{ID: 1}, 999, "x", nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}
