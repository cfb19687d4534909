// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport owns the one bidirectional byte-framed connection to
// the backend process and nothing else: no session identity, no request
// correlation, no retry policy. Those all live one layer up, in
// internal/session.
package transport

import "context"

// Observer receives the lifecycle and data callbacks a Transport emits. At
// most one Observer is attached at a time — the Session.
type Observer interface {
	// OnOpen is called once the connection is established and ready to
	// send/receive.
	OnOpen()

	// OnBytes is called for every inbound frame, in the order the
	// underlying stream delivered them.
	OnBytes(data []byte)

	// OnClose is called when the connection is torn down by a remote close
	// or a read failure, or when a dial fails. Whether a local Disconnect
	// is also reported (with a nil err) is up to the implementation;
	// WebSocketTransport does not report it.
	OnClose(err error)

	// OnError is called for advisory errors that do not, by themselves,
	// terminate the connection. The authoritative lifecycle signal is
	// always the subsequent OnClose.
	OnError(err error)
}

// Transport owns a single connection to a URL. It is stateless beyond the
// live socket: reconnecting is "close whatever is open, then open a new
// one," never a resume of the old connection.
type Transport interface {
	// SetObserver attaches the callback sink for this transport. It must be
	// called before Connect.
	SetObserver(o Observer)

	// Connect opens a new connection to url. Any prior connection is closed
	// first. Connect returns once the dial has finished: before returning
	// it reports success via the Observer's OnOpen, or failure via OnError
	// then OnClose, and it also returns the dial error.
	Connect(ctx context.Context, url string) error

	// Disconnect closes the connection and discards the handle, leaving the
	// observer attached. It is idempotent, and Connect may be called again
	// afterward on the same Transport.
	Disconnect()

	// Send transmits a binary frame. It fails with ErrNotConnected if the
	// connection is not currently open.
	Send(data []byte) error
}
