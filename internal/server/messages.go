package server

import (
	"net/http"

	"talkify-backend/internal/chat"
	"talkify-backend/internal/realtime"
	"talkify-backend/internal/storage"
)

// feed handles HTTP requests on "GET /chats/{chatId}/messages"
func (h *handler) feed(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")

	messages, pinned, err := h.store.Feed(r.Context(), chatID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "OK", extra{"messages": messages, "pinnedMessage": pinned})
}

// sendMessage handles HTTP requests on "POST /chats/{chatId}/messages". After
// a successful commit the stored message is published to the chat room,
// excluding the sender's own sockets.
func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	sender := userFromContext(r.Context())

	parser := h.parsers.messagePool.Get()
	defer h.parsers.messagePool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	msg := storage.NewMessage{
		ChatID:   chatID,
		SenderID: sender.ID,
		Content:  jsonOptionalString(v, "content"),
		Type:     chat.TypeText,
	}

	if v.Exists("messageType") {
		typ, ok := jsonString(v, "messageType")
		if !ok {
			h.fail(w, http.StatusBadRequest, `Field "messageType" must be a string`)
			return
		}
		msg.Type = chat.MessageType(typ)
	}
	if !msg.Type.Valid() {
		h.fail(w, http.StatusBadRequest, `Field "messageType" must be one of text, image, video, audio, file`)
		return
	}

	msg.Files, err = jsonStringArray(v, "files")
	if err != nil {
		h.fail(w, http.StatusBadRequest, `Field "files" must be an array of strings`)
		return
	}

	if parentID := v.Get("parentId"); parentID != nil {
		id, err := parentID.Int64()
		if err != nil || id < 1 {
			h.fail(w, http.StatusBadRequest, `Field "parentId" must be a positive 64-bit integer`)
			return
		}
		msg.ParentID = &id
	}

	if msg.Content == nil && len(msg.Files) == 0 {
		h.fail(w, http.StatusBadRequest, "Message requires content or files")
		return
	}

	stored, err := h.store.CreateMessage(r.Context(), msg)
	if err != nil {
		h.storeError(w, err)
		return
	}

	sent := chat.FeedMessage{
		ID:           stored.ID,
		ChatID:       stored.ChatID,
		SenderID:     stored.SenderID,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Content:      stored.Content,
		Type:         stored.Type,
		Files:        stored.Files,
		ParentID:     stored.ParentID,
		IsSystem:     stored.IsSystem,
		IsPinned:     stored.IsPinned,
		PinnedAt:     stored.PinnedAt,
		CreatedAt:    stored.CreatedAt,
	}

	h.hub.Publish(chatID, realtime.EventChatMessage, sent, sender.ID)

	h.respond(w, http.StatusCreated, "Message sent", extra{"data": sent})
}

// deleteMessage handles HTTP requests on
// "DELETE /chats/{chatId}/messages/{messageId}". The author may delete their
// own message; deleting another member's message takes admin or moderator.
func (h *handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	messageID, ok := pathID(r, "messageId")
	if !ok {
		h.fail(w, http.StatusBadRequest, "Message id must be a positive integer")
		return
	}
	actor := userFromContext(r.Context())

	msg, err := h.store.MessageByID(r.Context(), chatID, messageID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	if msg.SenderID != actor.ID {
		role, err := h.store.ParticipantRole(r.Context(), chatID, actor.ID)
		if err != nil {
			h.storeError(w, err)
			return
		}
		if !chat.Allowed(role, chat.CanManageMembers) {
			h.fail(w, http.StatusForbidden, "Only the author or a chat manager may delete this message")
			return
		}
	}

	mediaIDs, err := h.store.DeleteMessage(r.Context(), chatID, messageID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.deleteMedia(mediaIDs)
	h.respond(w, http.StatusOK, "Message deleted", nil)
}

// deleteHistory handles HTTP requests on "DELETE /chats/{chatId}/messages"
func (h *handler) deleteHistory(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")

	mediaIDs, err := h.store.DeleteHistory(r.Context(), chatID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.deleteMedia(mediaIDs)
	h.respond(w, http.StatusOK, "Message history cleared", nil)
}

// togglePin handles HTTP requests on
// "POST /chats/{chatId}/messages/{messageId}/pin"
func (h *handler) togglePin(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	messageID, ok := pathID(r, "messageId")
	if !ok {
		h.fail(w, http.StatusBadRequest, "Message id must be a positive integer")
		return
	}

	pinned, err := h.store.TogglePin(r.Context(), chatID, userFromContext(r.Context()).ID, messageID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	message := "Message unpinned"
	if pinned {
		message = "Message pinned"
	}
	h.respond(w, http.StatusOK, message, extra{"pinned": pinned})
}
