package server

import (
	"net/http"

	"talkify-backend/internal/chat"
)

// addMembers handles HTTP requests on "POST /chats/{chatId}/members"
func (h *handler) addMembers(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	actor := userFromContext(r.Context())

	parser := h.parsers.memberPool.Get()
	defer h.parsers.memberPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	userIDs, err := jsonInt64Array(v, "users")
	if err != nil || len(userIDs) == 0 {
		h.fail(w, http.StatusBadRequest, `Field "users" must be a non-empty array of positive 64-bit integers`)
		return
	}

	names, err := h.store.AddParticipants(r.Context(), chatID, actor.ID, userIDs)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "Members added", extra{"added": names})
}

// removeMembers handles HTTP requests on "PATCH /chats/{chatId}/members".
// The body carries the ids of members to remove in bulk.
func (h *handler) removeMembers(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	actor := userFromContext(r.Context())

	parser := h.parsers.memberPool.Get()
	defer h.parsers.memberPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	userIDs, err := jsonInt64Array(v, "users")
	if err != nil || len(userIDs) == 0 {
		h.fail(w, http.StatusBadRequest, `Field "users" must be a non-empty array of positive 64-bit integers`)
		return
	}

	names, err := h.store.RemoveParticipants(r.Context(), chatID, actor.ID, userIDs)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "Members removed", extra{"removed": names})
}

// changeMemberRole handles HTTP requests on
// "PATCH /chats/{chatId}/members/{memberId}"
func (h *handler) changeMemberRole(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	memberID, ok := pathID(r, "memberId")
	if !ok {
		h.fail(w, http.StatusBadRequest, "Member id must be a positive integer")
		return
	}

	parser := h.parsers.memberPool.Get()
	defer h.parsers.memberPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	roleValue, _ := jsonString(v, "role")
	role := chat.Role(roleValue)
	if !role.Valid() {
		h.fail(w, http.StatusBadRequest, `Field "role" must be one of admin, moderator, user`)
		return
	}

	if err := h.store.UpdateMemberRole(r.Context(), chatID, memberID, role); err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "Role updated", nil)
}

// removeOneMember handles HTTP requests on
// "DELETE /chats/{chatId}/members/{memberId}"
func (h *handler) removeOneMember(w http.ResponseWriter, r *http.Request) {
	chatID, _ := pathID(r, "chatId")
	memberID, ok := pathID(r, "memberId")
	if !ok {
		h.fail(w, http.StatusBadRequest, "Member id must be a positive integer")
		return
	}
	actor := userFromContext(r.Context())

	names, err := h.store.RemoveParticipants(r.Context(), chatID, actor.ID, []int64{memberID})
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "Member removed", extra{"removed": names})
}
