// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package session

import "github.com/vladsebesan/WebSocketWorker/internal/wire"

// State is one of the session's lifecycle states.
type State int

const (
	Disconnected State = iota
	Connecting
	SessionInit
	Connected
	KeepaliveFailed
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case SessionInit:
		return "SessionInit"
	case Connected:
		return "Connected"
	case KeepaliveFailed:
		return "KeepaliveFailed"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status describes a Session's current lifecycle state; mutated only by
// the Session. Every state transition is notified to observers. Updates
// to ReconnectAttemptsLeft alone (the decrement on each reconnect
// attempt, the reset on a matching keepalive reply) are visible through
// Session.Status but are not notified by themselves.
type Status struct {
	State                 State
	SessionID             string // non-empty iff State == Connected
	ReconnectAttemptsLeft int
}

// Observer receives session lifecycle and forwarded application messages.
// The Correlator and the worker shell both register as observers; the
// Session never calls back into its owner directly, avoiding a cyclic
// ownership graph in favor of strictly downward calls.
type Observer interface {
	// OnStateChanged is called on every Status change, including the
	// initial transition out of Disconnected.
	OnStateChanged(status Status)

	// OnMessage is called for every Reply/Notification whose sessionId
	// matched the current session and whose Kind is not a
	// session-management message — i.e. everything the Correlator should
	// see.
	OnMessage(msg *wire.FramedMessage)
}
