package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"talkify-backend/internal/auth"
	"talkify-backend/internal/chat"
	"talkify-backend/internal/storage"
)

const signInFailedMessage = "Email or password is incorrect"

func setAuthCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "authToken",
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
	})
}

// signUp handles HTTP requests on "POST /users"
func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.userPool.Get()
	defer h.parsers.userPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	name, ok := jsonString(v, "name")
	if !ok || len(name) == 0 {
		h.fail(w, http.StatusBadRequest, `Field "name" must be a non-empty string`)
		return
	}
	email, ok := jsonString(v, "email")
	if !ok || len(email) == 0 {
		h.fail(w, http.StatusBadRequest, `Field "email" must be a non-empty string`)
		return
	}
	password, ok := jsonString(v, "password")
	if !ok || len(password) == 0 {
		h.fail(w, http.StatusBadRequest, `Field "password" must be a non-empty string`)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.logger.Errorf("hashing password: %v", err)
		h.fail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	// billing failures never block registration
	var customerID *string
	if h.billing != nil {
		id, err := h.billing.CreateCustomer(r.Context(), email)
		if err != nil {
			h.logger.Warnf("Failed to create billing customer for %s: %v", email, err)
		} else {
			customerID = &id
		}
	}

	userID, err := h.store.CreateUser(r.Context(), storage.NewUser{
		Name:              name,
		Slug:              chat.Slugify(name),
		Email:             email,
		PasswordHash:      hash,
		BillingCustomerID: customerID,
	})
	if err != nil {
		h.storeError(w, err)
		return
	}

	user, err := h.store.UserByID(r.Context(), userID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	token, expiry, err := h.signer.Sign(userID)
	if err != nil {
		h.logger.Errorf("signing token: %v", err)
		h.fail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	setAuthCookie(w, token, expiry)
	h.respond(w, http.StatusCreated, "User created", extra{"token": token, "user": user})
}

// signIn handles HTTP requests on "POST /users/sign-in"
func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.userPool.Get()
	defer h.parsers.userPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	email, _ := jsonString(v, "email")
	password, _ := jsonString(v, "password")
	if len(email) == 0 || len(password) == 0 {
		h.fail(w, http.StatusBadRequest, signInFailedMessage)
		return
	}

	user, err := h.store.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.fail(w, http.StatusBadRequest, signInFailedMessage)
			return
		}
		h.storeError(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		h.fail(w, http.StatusBadRequest, signInFailedMessage)
		return
	}

	token, expiry, err := h.signer.Sign(user.ID)
	if err != nil {
		h.logger.Errorf("signing token: %v", err)
		h.fail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	setAuthCookie(w, token, expiry)
	h.respond(w, http.StatusOK, "Signed in", extra{"token": token, "user": user})
}

// me handles HTTP requests on "GET /users/me"
func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, "OK", extra{"user": userFromContext(r.Context())})
}

// updateMe handles HTTP requests on "PATCH /users/me"
func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) {
	parser := h.parsers.userPool.Get()
	defer h.parsers.userPool.Put(parser)

	v, err := parser.ParseBytes(readBody(r))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	upd := storage.ProfileUpdate{
		Name:   jsonOptionalString(v, "name"),
		Avatar: jsonOptionalString(v, "avatar"),
		Bio:    jsonOptionalString(v, "bio"),
		Phone:  jsonOptionalString(v, "phone"),
	}
	if upd.Name != nil && len(*upd.Name) == 0 {
		h.fail(w, http.StatusBadRequest, `Field "name" must have non-zero length`)
		return
	}
	upd.SocialLinks, err = jsonStringArray(v, "socialLinks")
	if err != nil {
		h.fail(w, http.StatusBadRequest, `Field "socialLinks" must be an array of strings`)
		return
	}

	user, err := h.store.UpdateProfile(r.Context(), userFromContext(r.Context()).ID, upd)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "Profile updated", extra{"user": user})
}

// userByID handles HTTP requests on "GET /users/{id}"
func (h *handler) userByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.fail(w, http.StatusBadRequest, "User id must be a positive integer")
		return
	}

	user, err := h.store.UserByID(r.Context(), id)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "OK", extra{"user": user})
}

// searchUsers handles HTTP requests on "GET /users/search". An optional
// chatId query parameter excludes that chat's current members, for picking
// users to invite.
func (h *handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("s")

	var filtered []int64
	if chatParam := r.URL.Query().Get("chatId"); chatParam != "" {
		chatID, err := strconv.ParseInt(chatParam, 10, 64)
		if err != nil || chatID < 1 {
			h.fail(w, http.StatusBadRequest, "Chat id must be a positive integer")
			return
		}
		filtered, err = h.store.ParticipantIDs(r.Context(), chatID)
		if err != nil {
			h.storeError(w, err)
			return
		}
	}

	users, err := h.store.SearchUsers(r.Context(), term, userFromContext(r.Context()).ID, filtered)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "OK", extra{"users": users})
}

// searchToCreateChat handles HTTP requests on "GET /users/searchToCreateChat".
// It lists users the caller does not yet share a direct chat with.
func (h *handler) searchToCreateChat(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.UsersForNewDirectChat(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, "OK", extra{"users": users})
}
