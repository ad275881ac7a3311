package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"talkify-backend/internal/chat"
	"talkify-backend/internal/storage"
	"talkify-backend/internal/storage/zapadapter"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

type ctxKey int

const userKey ctxKey = 0

func userFromContext(ctx context.Context) storage.User {
	u, _ := ctx.Value(userKey).(storage.User)
	return u
}

// log is a middleware assigning each request an id for log correlation and
// recording the request line.
func log(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()

		ctx := zapadapter.WithRequestID(r.Context(), id)

		logger.Info("incoming http request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("ip", r.RemoteAddr),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header or, failing
// that, from the authToken cookie.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("authToken"); err == nil {
		return cookie.Value
	}
	return ""
}

// requireAuth verifies the token and loads the authenticated user row into
// the request context.
func (h *handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.fail(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		userID, err := h.signer.Parse(token)
		if err != nil {
			h.fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := h.store.UserByID(r.Context(), userID)
		if err != nil {
			h.storeError(w, err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

// requireMember resolves the caller's membership in the chat addressed by the
// {chatId} path segment. Non-members get 403 regardless of whether the chat
// exists. An empty allowed set permits any member.
func (h *handler) requireMember(next http.HandlerFunc, allowed ...chat.Role) http.HandlerFunc {
	return h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		chatID, err := strconv.ParseInt(r.PathValue("chatId"), 10, 64)
		if err != nil || chatID < 1 {
			h.fail(w, http.StatusBadRequest, "Chat id must be a positive integer")
			return
		}

		user := userFromContext(r.Context())
		role, err := h.store.ParticipantRole(r.Context(), chatID, user.ID)
		if err != nil {
			h.storeError(w, err)
			return
		}

		if !chat.Allowed(role, allowed) {
			h.fail(w, http.StatusForbidden, "Your role does not permit this action")
			return
		}

		next(w, r)
	})
}

// pathID parses a positive integer path segment.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}
