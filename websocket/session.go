package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval    = 30 * time.Second
	activityTimeout = 60 * time.Second
	writeWait       = 5 * time.Second
)

// ClientSession is one downstream websocket connection. It implements
// session.Session; registries hold it as a non-owning handle while the
// handler's read loop owns the connection lifecycle.
type ClientSession struct {
	id           string
	conn         *websocket.Conn
	lastActivity int64 // UnixNano timestamp
	closed       atomic.Bool
	mu           sync.Mutex
}

func NewClientSession(id string, conn *websocket.Conn) *ClientSession {
	return &ClientSession{
		id:           id,
		conn:         conn,
		lastActivity: time.Now().UnixNano(),
	}
}

func (s *ClientSession) ID() string {
	return s.id
}

// IsOpen reports whether the connection is still usable. A failed write or a
// finished read loop flips it false for good.
func (s *ClientSession) IsOpen() bool {
	return !s.closed.Load()
}

// Send writes one JSON message under the session's write lock with a bounded
// deadline. A slow or broken peer fails the write and marks the session dead;
// the caller drops it rather than retrying.
func (s *ClientSession) Send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		s.closed.Store(true)
		return err
	}
	return nil
}

func (s *ClientSession) UpdateActivity() {
	atomic.StoreInt64(&s.lastActivity, time.Now().UnixNano())
}

func (s *ClientSession) LastActivityTime() time.Time {
	return time.Unix(0, atomic.LoadInt64(&s.lastActivity))
}

// StartPingSender keeps the connection alive with periodic control pings.
func (s *ClientSession) StartPingSender(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.conn.WriteControl(
				websocket.PingMessage,
				nil,
				time.Now().Add(writeWait),
			)
		case <-ctx.Done():
			return
		}
	}
}

// StartActivityChecker closes the connection and invokes onTimeout when the
// peer goes quiet past the activity timeout.
func (s *ClientSession) StartActivityChecker(ctx context.Context, onTimeout func()) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Since(s.LastActivityTime()) > activityTimeout {
				s.closed.Store(true)
				s.conn.Close()
				onTimeout()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close sends a close frame and tears the connection down.
func (s *ClientSession) Close(code int, text string) error {
	s.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait),
	)
	if err != nil {
		log.WithError(err).Debug("error sending close message")
	}

	return s.conn.Close()
}
