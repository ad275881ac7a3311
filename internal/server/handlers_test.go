package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"talkify-backend/internal/auth"
	"talkify-backend/internal/billing"
	"talkify-backend/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler() *handler {
	return &handler{
		logger: zap.NewNop().Sugar(),
		signer: auth.NewSigner(auth.Config{Secret: "test-secret", TokenTTL: time.Hour}),
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "message")
	return body
}

func TestVersion(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	rec := httptest.NewRecorder()
	h.version(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, version, body["version"])
}

func TestSignUpValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing name", `{"email":"a@b.c","password":"pw"}`},
		{"empty name", `{"name":"","email":"a@b.c","password":"pw"}`},
		{"missing email", `{"name":"Alice","password":"pw"}`},
		{"missing password", `{"name":"Alice","email":"a@b.c"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(tc.body))
		h.signUp(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
		decodeEnvelope(t, rec)
	}
}

func TestSignInMissingCredentials(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/sign-in", strings.NewReader(`{"email":"a@b.c"}`))
	h.signIn(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, signInFailedMessage, body["message"])
}

func TestRequireAuthMissingToken(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	next := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	rec := httptest.NewRecorder()
	next(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthGarbageToken(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	next := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	next(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenFromCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "authToken", Value: "cookie-token"})
	require.Equal(t, "cookie-token", bearerToken(req))

	req.Header.Set("Authorization", "Bearer header-token")
	require.Equal(t, "header-token", bearerToken(req))
}

func TestCreateChatValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler()

	cases := []struct {
		name string
		body string
	}{
		{"non-integer users", `{"users":["x"]}`},
		{"group without name", `{"users":[2,3]}`},
		{"group with empty name", `{"users":[2,3],"name":""}`},
		{"creator-only group without name", `{"users":[]}`},
		{"flagged group without name", `{"users":[2],"isGroup":true}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chats", strings.NewReader(tc.body))
		h.createChat(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}

func TestSendMessageValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler()

	cases := []struct {
		name string
		body string
	}{
		{"bad type", `{"content":"hi","messageType":"sticker"}`},
		{"non-string type", `{"content":"hi","messageType":5}`},
		{"no content or files", `{"messageType":"text"}`},
		{"bad parent id", `{"content":"hi","parentId":-4}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", strings.NewReader(tc.body))
		req.SetPathValue("chatId", "5")
		h.sendMessage(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}

func TestChangeMemberRoleValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/chats/5/members/7",
		strings.NewReader(`{"role":"superuser"}`))
	req.SetPathValue("chatId", "5")
	req.SetPathValue("memberId", "7")
	h.changeMemberRole(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreErrorMapping(t *testing.T) {
	t.Parallel()

	h := newTestHandler()

	cases := []struct {
		err    error
		status int
	}{
		{storage.ErrUserExists, http.StatusBadRequest},
		{storage.ErrBadUsers, http.StatusBadRequest},
		{storage.ErrAlreadyParticipant, http.StatusBadRequest},
		{storage.ErrBadParent, http.StatusBadRequest},
		{storage.ErrNotParticipant, http.StatusForbidden},
		{storage.ErrUserNotExist, http.StatusNotFound},
		{storage.ErrChatNotExist, http.StatusNotFound},
		{storage.ErrMessageNotExist, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.storeError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		decodeEnvelope(t, rec)
	}
}

type premiumStub struct{}

func (premiumStub) SetPremiumByCustomer(context.Context, string, bool) error { return nil }

func TestBillingWebhookAlwaysAcknowledges(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	h.billingSync = billing.NewSync(zap.NewNop().Sugar(), premiumStub{})

	for _, body := range []string{
		`{"type":"invoice.paid","data":{"object":{"customer":"cus_1"}}}`,
		`{"type":"some.future.event"}`,
		`not even json`,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(body))
		h.billingWebhook(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRespondNoContent(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	rec := httptest.NewRecorder()
	h.respond(rec, http.StatusNoContent, "ignored", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.Bytes())
}
