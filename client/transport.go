package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport moves opaque envelope bytes between a client and a server.
// Implementations must support one concurrent sender and one concurrent
// receiver.
type Transport interface {
	// Send transmits one envelope.
	Send(ctx context.Context, data []byte) error
	// Recv blocks until the next envelope arrives.
	Recv(ctx context.Context) ([]byte, error)
	// Close tears the connection down. Pending Send and Recv calls fail.
	Close() error
}

// WebsocketTransport is a Transport over a websocket connection carrying
// binary messages.
type WebsocketTransport struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// DialWebsocket connects to a websocket endpoint, e.g. "ws://host:8080/ws".
func DialWebsocket(ctx context.Context, url string) (*WebsocketTransport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWebsocketTransport(conn), nil
}

// NewWebsocketTransport wraps an established connection. Used by both sides;
// the server wraps connections it accepted.
func NewWebsocketTransport(conn *websocket.Conn) *WebsocketTransport {
	return &WebsocketTransport{conn: conn}
}

// Send writes one binary message. The context deadline, if any, bounds the
// write.
func (t *WebsocketTransport) Send(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Recv reads the next binary message. The context deadline, if any, bounds
// the read.
func (t *WebsocketTransport) Recv(ctx context.Context) ([]byte, error) {
	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		// Ignore text frames; the protocol is binary only.
		if msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Close sends a close frame and closes the underlying connection.
func (t *WebsocketTransport) Close() error {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		deadline := time.Now().Add(time.Second)

		t.writeMu.Lock()
		t.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		t.writeMu.Unlock()

		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
