// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package wsrpc

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/vladsebesan/WebSocketWorker/internal/session"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger sets the structured logger used throughout the worker. The
// zero value uses slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTokenSource attaches a bearer token, fetched from src, to the
// WebSocket upgrade request's Authorization header. This is client
// identity at the transport layer, distinct from the session-management
// client assertion carried in SessionCreate (see WithClientAssertion).
// Authentication beyond the session handshake is out of scope here, so
// this only prepares headers and never performs a refresh/retry dance
// against the server.
func WithTokenSource(src oauth2.TokenSource) Option {
	return func(c *Client) { c.tokenSource = src }
}

// WithClientAssertion configures the signed HS256 client-identity
// assertion attached to SessionCreate, so a server can verify which
// client opened the session.
func WithClientAssertion(clientID string, signingKey []byte) Option {
	return func(c *Client) {
		c.clientID = clientID
		c.signingKey = signingKey
	}
}

// WithHeader adds a static header sent with the WebSocket upgrade
// request, in addition to whatever WithTokenSource attaches.
func WithHeader(header http.Header) Option {
	return func(c *Client) { c.header = header }
}

// WithReconnect sets the reconnect policy tunables (defaults: maxAttempts=3,
// interval=1s).
func WithReconnect(maxAttempts int, interval time.Duration) Option {
	return func(c *Client) {
		c.sessionCfg.MaxReconnectAttempts = maxAttempts
		c.sessionCfg.ReconnectInterval = interval
	}
}

// WithKeepalive sets the keepalive policy tunables (defaults: interval=1s,
// maxFailures=3).
func WithKeepalive(interval time.Duration, maxFailures int) Option {
	return func(c *Client) {
		c.sessionCfg.KeepaliveInterval = interval
		c.sessionCfg.MaxKeepaliveFailures = maxFailures
	}
}

func defaultClient() *Client {
	return &Client{
		logger:     slog.Default(),
		sessionCfg: session.Config{},
	}
}
