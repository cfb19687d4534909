// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send when no connection is currently
// open.
var ErrNotConnected = errors.New("transport: not connected")

// WebSocketTransport is the transport's one implementation: a single
// gorilla/websocket connection carrying binary frames. It deals only in
// opaque bytes, since framing is the Codec's job, not the Transport's.
type WebSocketTransport struct {
	// Dialer is the WebSocket dialer to use. If nil, websocket.DefaultDialer
	// is used.
	Dialer *websocket.Dialer

	// Header carries additional HTTP headers for the handshake request,
	// e.g. an Authorization bearer token attached by the host facade's
	// oauth2 token source.
	Header http.Header

	mu       sync.Mutex
	conn     *websocket.Conn
	observer Observer
	readDone chan struct{}
}

// NewWebSocketTransport returns a WebSocketTransport with default dialer
// and no extra headers.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{}
}

func (t *WebSocketTransport) SetObserver(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = o
}

func (t *WebSocketTransport) Connect(ctx context.Context, url string) error {
	t.mu.Lock()
	prior := t.conn
	t.conn = nil
	t.mu.Unlock()
	if prior != nil {
		prior.Close()
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, t.Header)
	if err != nil {
		observer := t.currentObserver()
		if observer != nil {
			if resp != nil {
				observer.OnError(fmt.Errorf("websocket dial failed: %w (status %d)", err, resp.StatusCode))
			} else {
				observer.OnError(err)
			}
			observer.OnClose(err)
		}
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.readDone = make(chan struct{})
	done := t.readDone
	t.mu.Unlock()

	if observer := t.currentObserver(); observer != nil {
		observer.OnOpen()
	}

	go t.readLoop(conn, done)
	return nil
}

// readLoop pumps inbound frames to the observer until the connection
// closes. It is the only goroutine that reads from conn, matching the
// gorilla/websocket requirement of a single reader per connection.
func (t *WebSocketTransport) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			isCurrent := t.conn == conn
			if isCurrent {
				t.conn = nil
			}
			t.mu.Unlock()
			if isCurrent {
				close(done)
				if observer := t.currentObserver(); observer != nil {
					observer.OnClose(err)
				}
			}
			return
		}
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		if observer := t.currentObserver(); observer != nil {
			observer.OnBytes(data)
		}
	}
}

func (t *WebSocketTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("websocket: send: %w", err)
	}
	return nil
}

// Disconnect closes the current connection, if any, and discards the
// handle. It does not clear the observer: Connect may be called again on
// the same Transport (the Session does this on every reconnect), and the
// Session remains its sole consumer for the Transport's lifetime.
func (t *WebSocketTransport) Disconnect() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (t *WebSocketTransport) currentObserver() Observer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observer
}
