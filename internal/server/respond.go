package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"talkify-backend/internal/storage"
)

// extra carries response fields beside the envelope message.
type extra map[string]interface{}

// respond writes the JSON envelope {"message": ..., ...fields}. A 204 status
// carries no body.
func (h *handler) respond(w http.ResponseWriter, status int, message string, fields extra) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	body := make(map[string]interface{}, len(fields)+1)
	body["message"] = message
	for k, v := range fields {
		body[k] = v
	}

	payload, err := json.Marshal(body)
	if err != nil {
		h.logger.Errorf("marshaling response body: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

func (h *handler) fail(w http.ResponseWriter, status int, message string) {
	h.respond(w, status, message, nil)
}

// storeError maps storage sentinel errors onto the HTTP contract. Anything
// unrecognized is logged and reported as an internal error.
func (h *handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrUserExists):
		h.fail(w, http.StatusBadRequest, "User with provided email already exists")
	case errors.Is(err, storage.ErrBadUsers):
		h.fail(w, http.StatusBadRequest, "Bad user list")
	case errors.Is(err, storage.ErrAlreadyParticipant):
		h.fail(w, http.StatusBadRequest, "User is already a chat member")
	case errors.Is(err, storage.ErrBadParent):
		h.fail(w, http.StatusBadRequest, "Parent message must belong to the same chat")
	case errors.Is(err, storage.ErrNotParticipant):
		h.fail(w, http.StatusForbidden, "You are not a member of this chat")
	case errors.Is(err, storage.ErrUserNotExist):
		h.fail(w, http.StatusNotFound, "User does not exist")
	case errors.Is(err, storage.ErrChatNotExist):
		h.fail(w, http.StatusNotFound, "Chat does not exist")
	case errors.Is(err, storage.ErrMessageNotExist):
		h.fail(w, http.StatusNotFound, "Message does not exist")
	default:
		h.logger.Error(err)
		h.fail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
