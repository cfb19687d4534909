// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"time"

	json "github.com/segmentio/encoding/json"

	"github.com/vladsebesan/WebSocketWorker/internal/session"
)

// Command is the closed sum type crossing the host-to-worker boundary:
// exactly one of the embedded pointers is non-nil. Nothing but plain
// values crosses this boundary — no shared mutable state.
type Command struct {
	Connect     *ConnectCommand
	Disconnect  *DisconnectCommand
	SendRequest *SendRequestCommand
	Subscribe   *SubscribeCommand
	Unsubscribe *UnsubscribeCommand
}

// ConnectCommand drives Session.Connect and resolves on the first
// transition to Connected, or rejects if the session settles on
// Disconnected/Error first.
type ConnectCommand struct {
	RequestID string
	Config    session.Config
}

// DisconnectCommand drives Session.Disconnect and resolves once the
// session reaches Disconnected.
type DisconnectCommand struct {
	RequestID string
}

// SendRequestCommand reconstructs a typed command via the registry and
// dispatches it through the Correlator.
type SendRequestCommand struct {
	RequestID   string
	CommandType string
	Params      json.RawMessage
	Timeout     time.Duration
}

// SubscribeCommand creates a subscription via the subscription registry.
// InternalID is host-chosen and is echoed back on every Notification
// event for this subscription, so the host never needs to learn the
// server-assigned subscriptionId to route callbacks.
type SubscribeCommand struct {
	RequestID        string
	SubscriptionName string
	Params           json.RawMessage
	InternalID       string
	Timeout          time.Duration
}

// UnsubscribeCommand fires unsubscribe and removes routing. SubscriptionID
// is the server-assigned id returned in the Subscribe command's Reply
// event; the host is expected to retain it alongside InternalID.
type UnsubscribeCommand struct {
	RequestID      string
	SubscriptionID string
}

// Event is the closed sum type crossing the worker-to-host boundary.
type Event struct {
	Reply        *ReplyEvent
	Notification *NotificationEvent
	StateChanged *StateChangedEvent
}

// ReplyEvent reports the outcome of a SendRequest, Subscribe, Connect, or
// Disconnect command.
type ReplyEvent struct {
	RequestID    string
	IsError      bool
	Data         any
	ErrorMessage string
	ErrorCode    string
}

// NotificationEvent delivers one pre-decoded subscription notification.
type NotificationEvent struct {
	InternalID string
	Data       any
}

// StateChangedEvent mirrors a Session state transition to the host.
type StateChangedEvent struct {
	Status session.Status
}
