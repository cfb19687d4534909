// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package correlator turns (request, timeout) into a future that resolves
// on a matching reply, and maintains the subscription registry that routes
// notifications to their caller-supplied sinks. It is the only consumer of
// a Session's forwarded application messages.
package correlator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vladsebesan/WebSocketWorker/internal/idgen"
	"github.com/vladsebesan/WebSocketWorker/internal/session"
	"github.com/vladsebesan/WebSocketWorker/internal/wire"
	"github.com/vladsebesan/WebSocketWorker/internal/wsrpcerr"
)

// Command is the encode/decode pair a caller supplies for sendRequest: it
// knows how to build the request payload and how to interpret a
// successful reply's payload. Command is the registry's vtable entry:
// this package never otherwise knows what a payload means.
type Command interface {
	// Kind names the wire Kind carried by the request and its reply.
	Kind() string
	// EncodeParams returns the request payload.
	EncodeParams() (any, error)
	// DecodeResult interprets a successful reply's payload. A nil result
	// with a nil error is treated as a decode failure.
	DecodeResult(payload []byte) (any, error)
}

// SubscriptionSpec is the encode/decode pair for a subscription: it builds
// the subscribe/unsubscribe requests and decodes notification payloads.
type SubscriptionSpec interface {
	// SubscribeKind names the wire Kind of the subscribe request/reply.
	SubscribeKind() string
	// UnsubscribeKind names the wire Kind of the unsubscribe request.
	UnsubscribeKind() string
	// EncodeSubscribeParams returns the subscribe request payload.
	EncodeSubscribeParams() (any, error)
	// EncodeUnsubscribeParams returns the unsubscribe request payload.
	EncodeUnsubscribeParams(subscriptionID string) (any, error)
	// DecodeSubscribeResult extracts the server-assigned subscriptionId.
	DecodeSubscribeResult(payload []byte) (subscriptionID string, err error)
	// DecodeNotification decodes one notification payload.
	DecodeNotification(payload []byte) (any, error)
}

type pendingRequest struct {
	command Command
	resolve func(any)
	reject  func(error)
	timer   *time.Timer
}

type subscriptionState int

const (
	subPending subscriptionState = iota
	subActive
	subClosed
)

type activeSubscription struct {
	internalID string
	spec       SubscriptionSpec
	onData     func(any)
	onError    func(error)
	state      subscriptionState
}

// Sender is the subset of *session.Session the Correlator needs: fail-fast
// writes, gated on session state, with no implicit send queue.
type Sender interface {
	Send(data []byte) error
	Status() session.Status
}

// Correlator implements session.Observer; register it on a Session to
// receive forwarded application messages and state changes.
type Correlator struct {
	sender Sender
	logger *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pendingRequest
	subsByID map[string]*activeSubscription // keyed by server subscriptionId
}

// New returns a Correlator sending through sender.
func New(sender Sender, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		sender:   sender,
		logger:   logger,
		pending:  make(map[string]*pendingRequest),
		subsByID: make(map[string]*activeSubscription),
	}
}

// SendRequest issues cmd and calls exactly one of resolve/reject, exactly
// once. It is synchronous about the NotConnected fast-fail path;
// resolve/reject may be called from a later goroutine once a reply,
// timeout, or session drop occurs.
func (c *Correlator) SendRequest(cmd Command, timeout time.Duration, resolve func(any), reject func(error)) {
	if c.sender.Status().State != session.Connected {
		reject(wsrpcerr.ErrNotConnected)
		return
	}

	params, err := cmd.EncodeParams()
	if err != nil {
		reject(wsrpcerr.NewDecodeFailure(err.Error()))
		return
	}
	payload, err := wire.EncodePayload(params)
	if err != nil {
		reject(wsrpcerr.NewDecodeFailure(err.Error()))
		return
	}

	requestID := idgen.New()
	sessionID := c.sender.Status().SessionID

	pr := &pendingRequest{command: cmd, resolve: resolve, reject: reject}

	c.mu.Lock()
	c.pending[requestID] = pr
	c.mu.Unlock()

	pr.timer = time.AfterFunc(timeout, func() {
		c.mu.Lock()
		stored, ok := c.pending[requestID]
		if ok {
			delete(c.pending, requestID)
		}
		c.mu.Unlock()
		if ok {
			stored.reject(wsrpcerr.NewTimeout(cmd.Kind(), timeout))
		}
	})

	frame := &wire.FramedMessage{
		Variant:   wire.VariantRequest,
		Kind:      cmd.Kind(),
		RequestID: requestID,
		SessionID: sessionID,
		Payload:   payload,
	}
	data, err := wire.Encode(frame)
	if err != nil {
		c.completeRequest(requestID, nil, wsrpcerr.NewDecodeFailure(err.Error()))
		return
	}
	if err := c.sender.Send(data); err != nil {
		c.completeRequest(requestID, nil, err)
	}
}

// Subscribe issues a subscribe request and, on a successful reply,
// registers the routing entry under the server-assigned subscriptionId.
// resolve is called with the subscriptionId; onData is invoked for every
// subsequent notification that decodes, and onError once, with
// ConnectionClosed, if a session drop closes the subscription. A
// notification that fails to decode is logged and dropped, never passed
// to onError.
func (c *Correlator) Subscribe(spec SubscriptionSpec, internalID string, timeout time.Duration, onData func(any), onErr func(error), resolve func(subscriptionID string), reject func(error)) {
	cmd := subscribeCommand{spec: spec}

	sub := &activeSubscription{internalID: internalID, spec: spec, onData: onData, onError: onErr, state: subPending}

	c.SendRequest(cmd, timeout, func(result any) {
		payload, _ := result.([]byte)
		subscriptionID, err := spec.DecodeSubscribeResult(payload)
		if err != nil {
			reject(wsrpcerr.NewDecodeFailure(err.Error()))
			return
		}
		sub.state = subActive
		c.mu.Lock()
		c.subsByID[subscriptionID] = sub
		c.mu.Unlock()
		resolve(subscriptionID)
	}, reject)
}

// Unsubscribe fires an unsubscribe request (fire-and-forget) and
// immediately removes the routing entry so late notifications are
// dropped.
func (c *Correlator) Unsubscribe(subscriptionID string) {
	c.mu.Lock()
	sub, ok := c.subsByID[subscriptionID]
	delete(c.subsByID, subscriptionID)
	c.mu.Unlock()
	if !ok {
		return
	}
	sub.state = subClosed

	cmd := unsubscribeCommand{spec: sub.spec, subscriptionID: subscriptionID}
	c.SendRequest(cmd, 5*time.Second, func(any) {}, func(err error) {
		c.logger.Warn("wsrpc: unsubscribe request failed", "subscriptionId", subscriptionID, "err", err)
	})
}

// --- session.Observer ---

func (c *Correlator) OnStateChanged(status session.Status) {
	if status.State == session.Connected {
		return
	}
	c.dropAll()
}

func (c *Correlator) OnMessage(msg *wire.FramedMessage) {
	switch msg.Variant {
	case wire.VariantReply:
		c.handleReply(msg)
	case wire.VariantNotification:
		c.handleNotification(msg)
	}
}

func (c *Correlator) handleReply(msg *wire.FramedMessage) {
	c.mu.Lock()
	pr, ok := c.pending[msg.RequestID]
	if ok {
		delete(c.pending, msg.RequestID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Warn("wsrpc: unmatched reply", "requestId", msg.RequestID, "kind", msg.Kind)
		return
	}
	pr.timer.Stop()

	if !msg.Status.Success() {
		pr.reject(wsrpcerr.NewServerError(msg.Status.Code, msg.Status.Message))
		return
	}

	result, err := pr.command.DecodeResult(msg.Payload)
	if err != nil {
		pr.reject(wsrpcerr.NewDecodeFailure(err.Error()))
		return
	}
	if result == nil {
		pr.reject(wsrpcerr.NewDecodeFailure("decoder returned nil for " + msg.Kind))
		return
	}
	pr.resolve(result)
}

func (c *Correlator) handleNotification(msg *wire.FramedMessage) {
	c.mu.Lock()
	sub, ok := c.subsByID[msg.SubscriptionID]
	c.mu.Unlock()
	if !ok {
		c.logger.Warn("wsrpc: notification for unknown subscription", "subscriptionId", msg.SubscriptionID)
		return
	}

	data, err := sub.spec.DecodeNotification(msg.Payload)
	if err != nil {
		// A notification decode failure is logged and dropped, never
		// surfaced to the sink.
		c.logger.Warn("wsrpc: failed to decode notification", "subscriptionId", msg.SubscriptionID, "err", err)
		return
	}
	sub.onData(data)
}

// dropAll is the session-drop rule: reject all pending requests with
// ConnectionClosed and close every subscription, without auto-resubscribe.
func (c *Correlator) dropAll() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	subs := c.subsByID
	c.subsByID = make(map[string]*activeSubscription)
	c.mu.Unlock()

	for _, pr := range pending {
		pr.timer.Stop()
		pr.reject(wsrpcerr.ErrConnectionClosed)
	}
	for _, sub := range subs {
		sub.state = subClosed
		if sub.onError != nil {
			sub.onError(wsrpcerr.ErrConnectionClosed)
		}
	}
}

// completeRequest is used for the synchronous send-failure path, where no
// timer was ever armed successfully enough to need stopping twice.
func (c *Correlator) completeRequest(requestID string, result any, err error) {
	c.mu.Lock()
	pr, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	pr.timer.Stop()
	if err != nil {
		pr.reject(err)
		return
	}
	pr.resolve(result)
}
