package rosbridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Transport is the upstream connection as the Bridge sees it. The production
// implementation wraps a gorilla websocket connection; tests substitute an
// in-memory fake.
type Transport interface {
	WriteJSON(v interface{}) error
	ReadMessage() ([]byte, error)
	Close() error
	IsOpen() bool
}

// Dialer opens a Transport to the given URI, honoring the context deadline.
type Dialer func(ctx context.Context, uri string) (Transport, error)

type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

// DialWebSocket is the default Dialer.
func DialWebSocket(ctx context.Context, uri string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, uri, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) WriteJSON(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteJSON(v); err != nil {
		t.closed.Store(true)
		return err
	}
	return nil
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		t.closed.Store(true)
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Close() error {
	t.closed.Store(true)

	t.mu.Lock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.mu.Unlock()

	return t.conn.Close()
}

func (t *wsTransport) IsOpen() bool {
	return !t.closed.Load()
}
