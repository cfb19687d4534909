// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package command contains concrete correlator.Command and
// correlator.SubscriptionSpec implementations. These are examples, not
// part of the core transport contract: application-level payload types
// are out of scope for the transport itself, but the registry needs at
// least one of each to be exercised end to end.
package command

import (
	json "github.com/segmentio/encoding/json"
)

// Ping is a no-argument liveness-check command, analogous to the
// session-management keepalive but issued as an ordinary application
// request so callers can exercise request/reply round trips in tests and
// examples.
type Ping struct{}

// PingResult is Ping's successful reply payload.
type PingResult struct {
	Pong string `json:"pong"`
}

func (Ping) Kind() string { return "Ping" }

func (Ping) EncodeParams() (any, error) {
	return struct{}{}, nil
}

func (Ping) DecodeResult(payload []byte) (any, error) {
	var r PingResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, err
	}
	return r, nil
}
