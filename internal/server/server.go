package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"talkify-backend/internal/auth"
	"talkify-backend/internal/billing"
	"talkify-backend/internal/chat"
	"talkify-backend/internal/media"
	"talkify-backend/internal/realtime"
	"talkify-backend/internal/storage"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

const version = "1.0.0"

type parsers struct {
	userPool    fastjson.ParserPool
	chatPool    fastjson.ParserPool
	messagePool fastjson.ParserPool
	memberPool  fastjson.ParserPool
}

type handler struct {
	logger      *zap.SugaredLogger
	store       *storage.Store
	hub         *realtime.Hub
	signer      *auth.Signer
	billing     billing.Client
	billingSync *billing.Sync
	media       media.Deleter
	parsers     parsers
}

// Server defines fields used in HTTP processing
type Server struct {
	logger     *zap.SugaredLogger
	httpServer *http.Server
	h          handler
}

// NewServer wires the route table over the provided service handles.
func NewServer(
	logger *zap.SugaredLogger,
	config Config,
	store *storage.Store,
	hub *realtime.Hub,
	signer *auth.Signer,
	billingClient billing.Client,
	billingSync *billing.Sync,
	mediaDeleter media.Deleter,
) (*Server, error) {
	srv := &Server{
		logger: logger,
		h: handler{
			logger:      logger,
			store:       store,
			hub:         hub,
			signer:      signer,
			billing:     billingClient,
			billingSync: billingSync,
			media:       mediaDeleter,
		},
	}
	h := &srv.h

	mux := http.NewServeMux()

	mux.HandleFunc("GET /version", h.version)

	mux.HandleFunc("POST /users", h.signUp)
	mux.HandleFunc("POST /users/sign-in", h.signIn)
	mux.HandleFunc("GET /users/me", h.requireAuth(h.me))
	mux.HandleFunc("PATCH /users/me", h.requireAuth(h.updateMe))
	mux.HandleFunc("GET /users/search", h.requireAuth(h.searchUsers))
	mux.HandleFunc("GET /users/searchToCreateChat", h.requireAuth(h.searchToCreateChat))
	mux.HandleFunc("GET /users/{id}", h.requireAuth(h.userByID))

	mux.HandleFunc("GET /chats", h.requireAuth(h.listChats))
	mux.HandleFunc("POST /chats", h.requireAuth(h.createChat))
	mux.HandleFunc("GET /chats/{chatId}", h.requireMember(h.chatInfo))
	mux.HandleFunc("PATCH /chats/{chatId}", h.requireMember(h.updateChat, chat.CanEditChat...))
	mux.HandleFunc("DELETE /chats/{chatId}", h.requireMember(h.deleteChat, chat.CanDeleteChat...))
	mux.HandleFunc("DELETE /chats/{chatId}/leave", h.requireMember(h.leaveChat))

	mux.HandleFunc("GET /chats/{chatId}/messages", h.requireMember(h.feed))
	mux.HandleFunc("POST /chats/{chatId}/messages", h.requireMember(h.sendMessage))
	mux.HandleFunc("DELETE /chats/{chatId}/messages", h.requireMember(h.deleteHistory, chat.CanManageMembers...))
	mux.HandleFunc("DELETE /chats/{chatId}/messages/{messageId}", h.requireMember(h.deleteMessage))
	mux.HandleFunc("POST /chats/{chatId}/messages/{messageId}/pin", h.requireMember(h.togglePin))

	mux.HandleFunc("POST /chats/{chatId}/members", h.requireMember(h.addMembers, chat.CanManageMembers...))
	mux.HandleFunc("PATCH /chats/{chatId}/members", h.requireMember(h.removeMembers, chat.CanManageMembers...))
	mux.HandleFunc("PATCH /chats/{chatId}/members/{memberId}", h.requireMember(h.changeMemberRole, chat.CanChangeRoles...))
	mux.HandleFunc("DELETE /chats/{chatId}/members/{memberId}", h.requireMember(h.removeOneMember, chat.CanManageMembers...))

	mux.HandleFunc("POST /billing/webhook", h.billingWebhook)
	mux.HandleFunc("POST /billing/premium-checkout-session", h.requireAuth(h.premiumCheckout))

	mux.HandleFunc("GET /ws", h.serveWS)

	srv.httpServer = &http.Server{
		Addr:    config.Host + ":" + strconv.FormatUint(uint64(config.Port), 10),
		Handler: log(mux, logger.Desugar()),
	}

	return srv, nil
}

func (h *handler) version(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK, "OK", extra{"version": version})
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	s.logger.Info("Closing store")
	s.h.store.Close()
	s.logger.Info("Store is closed")

	return nil
}
