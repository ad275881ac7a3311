package server

import (
	"context"
	"net/http"
	"time"

	"talkify-backend/internal/realtime"
	"talkify-backend/internal/storage"
)

const mediaDeleteTimeout = 30 * time.Second

// deleteMedia issues best-effort media store deletes without blocking the
// request; failures are logged and swallowed.
func (h *handler) deleteMedia(mediaIDs []string) {
	if len(mediaIDs) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mediaDeleteTimeout)
		defer cancel()
		if err := h.media.DeleteMany(ctx, mediaIDs); err != nil {
			h.logger.Warnf("Failed to delete %d media objects: %v", len(mediaIDs), err)
		}
	}()
}

// listChats handles HTTP requests on "GET /chats"
func (h *handler) listChats(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("s")

	chats, err := h.store.ChatsByUserID(r.Context(), userFromContext(r.Context()).ID, search)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "OK", extra{"chats": chats})
}

// createChat handles HTTP requests on "POST /chats". Exactly one invited user
// without a group flag creates a direct chat; anything else is a group chat
// and requires a name.
func (h *handler) createChat(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.chatPool.Get()
	defer h.parsers.chatPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	userIDs, err := jsonInt64Array(v, "users")
	if err != nil {
		h.fail(w, http.StatusBadRequest, `Field "users" must be an array of positive 64-bit integers`)
		return
	}

	isGroup := v.GetBool("isGroup")
	creator := userFromContext(r.Context())

	var chatID int64
	if len(userIDs) == 1 && !isGroup {
		chatID, err = h.store.CreateDirectChat(r.Context(), creator.ID, userIDs[0])
	} else {
		name, ok := jsonString(v, "name")
		if !ok || len(name) == 0 {
			h.fail(w, http.StatusBadRequest, `Group chat requires a non-empty "name"`)
			return
		}
		chatID, err = h.store.CreateGroupChat(r.Context(), creator.ID, name, userIDs)
	}
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusCreated, "Chat created", extra{"id": chatID})
}

// chatInfo handles HTTP requests on "GET /chats/{chatId}"
func (h *handler) chatInfo(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")

	c, participants, err := h.store.ChatInfo(r.Context(), chatID, userFromContext(r.Context()).ID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "OK", extra{"chat": c, "participants": participants})
}

// updateChat handles HTTP requests on "PATCH /chats/{chatId}"
func (h *handler) updateChat(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")

	parser := h.parsers.chatPool.Get()
	defer h.parsers.chatPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	upd := storage.ChatUpdate{
		Name:        jsonOptionalString(v, "name"),
		Photo:       jsonOptionalString(v, "photo"),
		Description: jsonOptionalString(v, "description"),
	}
	if upd.Name != nil && len(*upd.Name) == 0 {
		h.fail(w, http.StatusBadRequest, `Field "name" must have non-zero length`)
		return
	}

	c, err := h.store.UpdateChat(r.Context(), chatID, upd)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "Chat updated", extra{"chat": c})
}

// deleteChat handles HTTP requests on "DELETE /chats/{chatId}"
func (h *handler) deleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	actor := userFromContext(r.Context())

	mediaIDs, err := h.store.DeleteChat(r.Context(), chatID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.deleteMedia(mediaIDs)
	h.hub.Publish(chatID, realtime.EventDeleteChat, map[string]int64{"chatId": chatID}, actor.ID)

	h.respond(w, http.StatusOK, "Chat deleted", nil)
}

// leaveChat handles HTTP requests on "DELETE /chats/{chatId}/leave"
func (h *handler) leaveChat(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")

	if err := h.store.Leave(r.Context(), chatID, userFromContext(r.Context()).ID); err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "Left the chat", nil)
}
