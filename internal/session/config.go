// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package session

import "time"

// Config is a session's connection configuration: the URL and the four
// tunables recognized by the wire protocol, each with a documented
// default applied by Normalize when left zero-valued.
type Config struct {
	URL string

	MaxReconnectAttempts int
	ReconnectInterval    time.Duration
	KeepaliveInterval    time.Duration
	MaxKeepaliveFailures int

	// ClientID identifies this client in the SessionCreate payload and, if
	// SigningKey is set, as the subject of the signed client assertion
	// (internal/session's signClientAssertion).
	ClientID string

	// SigningKey, if set, causes Connect to attach a signed JWT client
	// assertion to the SessionCreate request, so a server can verify which
	// client opened the session. Optional; the session handshake itself
	// does not require it.
	SigningKey []byte
}

// Default tunables applied by Normalize.
const (
	DefaultMaxReconnectAttempts = 3
	DefaultReconnectInterval    = time.Second
	DefaultKeepaliveInterval    = time.Second
	DefaultMaxKeepaliveFailures = 3
)

// Normalize returns a copy of c with zero-valued tunables replaced by their
// documented defaults.
func (c Config) Normalize() Config {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.MaxKeepaliveFailures == 0 {
		c.MaxKeepaliveFailures = DefaultMaxKeepaliveFailures
	}
	return c
}
