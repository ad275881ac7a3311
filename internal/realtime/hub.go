package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// MembershipChecker answers whether a user participates in a chat. Room joins
// are validated against it so a socket cannot subscribe to rooms of chats it
// is not a member of.
type MembershipChecker interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}

// Hub tracks which sessions are subscribed to which rooms and fans events out
// to them. One room per chat, any number of sessions per user.
type Hub struct {
	logger  *zap.SugaredLogger
	members MembershipChecker

	mu    sync.RWMutex
	rooms map[int64]map[*Session]struct{}

	parserPool fastjson.ParserPool
}

func NewHub(logger *zap.SugaredLogger, members MembershipChecker) *Hub {
	return &Hub{
		logger:  logger,
		members: members,
		rooms:   make(map[int64]map[*Session]struct{}),
	}
}

// Join subscribes the session to the room after confirming chat membership.
// Joins of rooms the user is not a member of are silently dropped.
func (h *Hub) Join(ctx context.Context, s *Session, roomID int64) error {
	ok, err := h.members.IsMember(ctx, roomID, s.userID)
	if err != nil {
		return err
	}
	if !ok {
		h.logger.Debugf("User (id: %d) denied join to room %d", s.userID, roomID)
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Session]struct{})
	}
	h.rooms[roomID][s] = struct{}{}
	s.rooms[roomID] = struct{}{}

	return nil
}

// Leave unsubscribes the session from the room.
func (h *Hub) Leave(s *Session, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(s, roomID)
}

// drop must be called with h.mu held.
func (h *Hub) drop(s *Session, roomID int64) {
	if set, ok := h.rooms[roomID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(s.rooms, roomID)
}

// Broadcast delivers the frame to every session subscribed to the room except
// sessions belonging to excludeUserID. Slow receivers are skipped rather than
// blocking the hub.
func (h *Hub) Broadcast(roomID int64, frame Frame, excludeUserID int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.rooms[roomID] {
		if s.userID == excludeUserID {
			continue
		}
		select {
		case s.send <- frame:
		default:
			h.logger.Debugf("Dropping %s frame for slow session of user (id: %d)", frame.Event, s.userID)
		}
	}
}

// Publish marshals payload and broadcasts it as a named event to the room.
// Used by the HTTP write path after a successful commit.
func (h *Hub) Publish(roomID int64, event string, payload interface{}, excludeUserID int64) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorf("Failed to marshal %s payload: %s", event, err)
		return
	}
	h.Broadcast(roomID, Frame{Event: event, Room: roomID, Data: data}, excludeUserID)
}

// inRoom reports whether the session is currently subscribed to the room.
func (h *Hub) inRoom(s *Session, roomID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][s]
	return ok
}

// detach removes the session from every room it joined.
func (h *Hub) detach(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range s.rooms {
		h.drop(s, roomID)
	}
}

// HandleConn owns the session lifecycle for an accepted connection: it starts
// the write and keepalive loops, reads frames until the connection drops and
// detaches the session from all rooms on return.
func (h *Hub) HandleConn(ctx context.Context, conn *websocket.Conn, userID int64) {
	s := newSession(ctx, conn, userID)
	defer s.close()
	defer h.detach(s)

	go s.writeLoop()
	go s.keepAliveLoop()

	h.logger.Debugf("User (id: %d) connected to realtime channel", userID)

	for {
		_, raw, err := conn.Read(s.ctx)
		if err != nil {
			h.logger.Debugf("User (id: %d) disconnected: %s", userID, err)
			return
		}
		if err := h.dispatch(s, raw); err != nil {
			h.logger.Warnf("Failed to handle frame from user (id: %d): %s", userID, err)
		}
	}
}

// dispatch routes one inbound frame. Persisted-write events arriving from
// clients are ignored, the server publishes those itself.
func (h *Hub) dispatch(s *Session, raw []byte) error {
	p := h.parserPool.Get()
	defer h.parserPool.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return err
	}

	event := string(v.GetStringBytes("event"))
	switch event {
	case EventJoinChats:
		for _, item := range v.GetArray("data") {
			roomID, err := item.Int64()
			if err != nil {
				continue
			}
			if err := h.Join(s.ctx, s, roomID); err != nil {
				return err
			}
		}
	case EventLeaveChats:
		for _, item := range v.GetArray("data") {
			roomID, err := item.Int64()
			if err != nil {
				continue
			}
			h.Leave(s, roomID)
		}
	case EventIsTyping, EventStoppedTyping:
		roomID := v.GetInt64("room")
		if !h.inRoom(s, roomID) {
			return nil
		}
		var data json.RawMessage
		if d := v.Get("data"); d != nil {
			data = d.MarshalTo(nil)
		}
		h.Broadcast(roomID, Frame{Event: event, Room: roomID, Data: data}, s.userID)
	}

	return nil
}
