package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/repository"
	"github.com/sakif/microblog/internal/service"
)

// MessageHandler serves message CRUD. Reads are public; writes carry the
// resolved identity into the service, where the guards run.
type MessageHandler struct {
	messages *service.MessageService
	logger   *slog.Logger
}

func NewMessageHandler(messages *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// HandleList returns all messages.
// HTTP: GET /api/messages
func (h *MessageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := listOptions(r)
	msgs, err := h.messages.List(r.Context(), repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleListByUser returns one user's messages.
// HTTP: GET /api/users/{id}/messages
func (h *MessageHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, offset := listOptions(r)
	msgs, err := h.messages.ListByUser(r.Context(), userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleCreate posts a message as the current user.
// HTTP: POST /api/messages (behind RequireUser)
func (h *MessageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.messages.Create(r.Context(), auth.CurrentUserOrNil(r.Context()), req.Content, req.TagIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// HandleGet returns one message with its tags.
// HTTP: GET /api/messages/{id}
func (h *MessageHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	msg, err := h.messages.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// HandleUpdate edits a message. Owner-only.
// HTTP: PUT /api/messages/{id}
func (h *MessageHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.messages.Update(r.Context(), auth.CurrentUserOrNil(r.Context()), id, req.Content, req.TagIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// HandleDelete removes a message. Owner-only.
// HTTP: DELETE /api/messages/{id}
func (h *MessageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.messages.Delete(r.Context(), auth.CurrentUserOrNil(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}
