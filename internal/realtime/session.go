package realtime

import (
	"context"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendBuffer        = 64
	writeTimeout      = 10 * time.Second
	keepAliveInterval = 25 * time.Second
	pingTimeout       = 5 * time.Second
)

// Session is one live connection of one user. A user may hold several
// sessions at once (multiple tabs or devices), each subscribed to its own
// set of rooms.
type Session struct {
	userID int64
	conn   *websocket.Conn
	send   chan Frame

	// rooms is the set of joined room ids, guarded by the hub mutex.
	rooms map[int64]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(ctx context.Context, conn *websocket.Conn, userID int64) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		userID: userID,
		conn:   conn,
		send:   make(chan Frame, sendBuffer),
		rooms:  make(map[int64]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Session) close() {
	s.cancel()
	_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case frame := <-s.send:
			writeCtx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			_ = wsjson.Write(writeCtx, s.conn, frame)
			cancel()
		}
	}
}

func (s *Session) keepAliveLoop() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(s.ctx, pingTimeout)
			_ = s.conn.Ping(pingCtx)
			cancel()
		}
	}
}
