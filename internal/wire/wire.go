// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wire implements the codec component of the transport: pure
// functions that wrap and unwrap framed messages carried over the
// connection. The real wire format (a FlatBuffers-like tagged union,
// generated from a schema) is treated as an external collaborator per the
// design's scope; this package stands in for it with a tagged JSON
// envelope, encoded with the fast segmentio/encoding/json codec.
//
// Nothing here holds state or touches the network: Encode and Decode
// handle whole frames, EncodePayload and DecodePayload handle the payload
// carried inside a frame, and every other package that needs to go from
// bytes to a typed value, or back, goes through them.
package wire

import (
	"fmt"

	json "github.com/segmentio/encoding/json"
)

// Variant is the tagged-union discriminant carried by every FramedMessage.
type Variant string

const (
	VariantRequest      Variant = "request"
	VariantReply        Variant = "reply"
	VariantNotification Variant = "notification"
)

// StatusSuccess is the literal success code a Reply's Status.Code must
// equal for the reply to be considered successful. Anything else is an
// application or session-management error, with Code echoed verbatim to
// the caller.
const StatusSuccess = "SUCCESS"

// Status is the outcome attached to a Reply.
type Status struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Success reports whether s represents a successful reply.
func (s *Status) Success() bool {
	return s != nil && s.Code == StatusSuccess
}

// FramedMessage is a single encoded unit on the wire: one of Request,
// Reply, or Notification. It exists only in flight between this
// package and the Session/Correlator layers above it — nothing retains a
// FramedMessage once it has been consumed.
type FramedMessage struct {
	// Variant selects which of Request, Reply, or Notification this frame
	// carries.
	Variant Variant `json:"variant"`

	// Kind names the session-management or application message this frame
	// carries (e.g. "SessionCreate", "Ping", or a subscription name). It is
	// the only field the registry needs to reconstruct a typed command.
	Kind string `json:"kind"`

	// RequestID correlates a Reply to the Request that produced it. Set on
	// Request and Reply, empty on Notification.
	RequestID string `json:"requestId,omitempty"`

	// SessionID scopes this frame to a logical session. Empty on every
	// SessionCreate request (including those sent after a reconnect),
	// since no session exists yet when it is sent.
	SessionID string `json:"sessionId,omitempty"`

	// SubscriptionID identifies the server-maintained stream a Notification
	// belongs to. Notification only.
	SubscriptionID string `json:"subscriptionId,omitempty"`

	// Status carries the reply outcome. Reply only.
	Status *Status `json:"status,omitempty"`

	// Payload is the variant-specific body, left undecoded so that callers
	// (the registry's per-command decoders) can interpret it against the
	// concrete Go type that corresponds to Kind.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals msg into its wire representation.
func Encode(msg *FramedMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s %q: %w", msg.Variant, msg.Kind, err)
	}
	return data, nil
}

// Decode unwraps a frame from the wire. It uses StrictUnmarshal on the
// envelope so that a case-variant field name (a classic message-smuggling
// trick against case-insensitive JSON unmarshalling) is rejected rather
// than silently accepted.
func Decode(data []byte) (*FramedMessage, error) {
	var msg FramedMessage
	if err := StrictUnmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("wire: decode: %w", err)
	}
	switch msg.Variant {
	case VariantRequest, VariantReply, VariantNotification:
	default:
		return nil, fmt.Errorf("wire: decode: unrecognized variant %q", msg.Variant)
	}
	return &msg, nil
}

// EncodePayload marshals a typed payload for embedding in a FramedMessage.
func EncodePayload(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload unmarshals a FramedMessage's Payload into v.
func DecodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("wire: decode payload: empty payload for %T", v)
	}
	return json.Unmarshal(payload, v)
}
