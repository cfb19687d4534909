// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wsrpc is the host-facing facade: a promise-based client for a
// session-oriented RPC and pub/sub transport. It owns the worker handle
// and the two host-side maps that belong at this layer — pending
// requests by requestId, and active subscriptions by internalId — and
// exposes connect/disconnect, request, and subscribe/unsubscribe as
// one-shot futures.
package wsrpc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	json "github.com/segmentio/encoding/json"
	"golang.org/x/oauth2"

	"github.com/vladsebesan/WebSocketWorker/command"
	"github.com/vladsebesan/WebSocketWorker/internal/correlator"
	"github.com/vladsebesan/WebSocketWorker/internal/idgen"
	"github.com/vladsebesan/WebSocketWorker/internal/registry"
	"github.com/vladsebesan/WebSocketWorker/internal/session"
	"github.com/vladsebesan/WebSocketWorker/internal/transport"
	"github.com/vladsebesan/WebSocketWorker/internal/worker"
	"github.com/vladsebesan/WebSocketWorker/internal/wsrpcerr"
)

type subscriptionHandle struct {
	subscriptionID string
	onData         func(any)
	onError        func(error)
}

// Client is the Host Facade: one instance per logical session.
type Client struct {
	logger      *slog.Logger
	tokenSource oauth2.TokenSource
	clientID    string
	signingKey  []byte
	header      http.Header
	sessionCfg  session.Config

	registry *registry.Registry
	w        *worker.Worker
	cancel   context.CancelFunc

	mu              sync.Mutex
	pendingRequests map[string]func(*worker.ReplyEvent)
	subscriptions   map[string]*subscriptionHandle
	lastStatus      session.Status

	onConnected       []func()
	onDisconnected    []func()
	onConnectionError []func(error)
}

// NewClient constructs a Client that will connect to endpoint's URL. The
// registry starts pre-populated with the example command.Ping and
// command.Feed specs; Registry returns it for registering additional
// application-specific commands before Start.
func NewClient(endpoint transport.Endpoint, opts ...Option) (*Client, error) {
	url, err := endpoint.URL()
	if err != nil {
		return nil, fmt.Errorf("wsrpc: %w", err)
	}

	c, err := newClient(nil, opts...)
	if err != nil {
		return nil, err
	}
	c.sessionCfg.URL = url

	header, err := c.buildHeader()
	if err != nil {
		return nil, err
	}
	wst := transport.NewWebSocketTransport()
	wst.Header = header
	c.w = worker.New(wst, c.registry, c.logger)
	return c, nil
}

// newClient builds a Client over an arbitrary transport.Transport. When t
// is nil the caller (NewClient) is expected to construct the worker
// itself once it knows the real transport; tests use this directly with
// an in-process fake.
func newClient(t transport.Transport, opts ...Option) (*Client, error) {
	c := defaultClient()
	for _, opt := range opts {
		opt(c)
	}
	c.sessionCfg = c.sessionCfg.Normalize()
	c.sessionCfg.ClientID = c.clientID
	c.sessionCfg.SigningKey = c.signingKey

	c.pendingRequests = make(map[string]func(*worker.ReplyEvent))
	c.subscriptions = make(map[string]*subscriptionHandle)
	c.registry = registry.New()
	registerBuiltins(c.registry)

	if t != nil {
		c.w = worker.New(t, c.registry, c.logger)
	}
	return c, nil
}

// Registry exposes the underlying command/subscription registry so
// callers can register application-specific specs before Start.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

func (c *Client) buildHeader() (http.Header, error) {
	header := c.header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if c.tokenSource != nil {
		tok, err := c.tokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("wsrpc: fetching token: %w", err)
		}
		header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	return header, nil
}

func registerBuiltins(reg *registry.Registry) {
	reg.RegisterCommand("Ping", nil, func(params json.RawMessage) (correlator.Command, error) {
		return command.Ping{}, nil
	})
	reg.RegisterSubscription("FeedSubscribe", nil, func(params json.RawMessage) (correlator.SubscriptionSpec, error) {
		var p command.FeedSubscribeParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, err
			}
		}
		return command.Feed{Topic: p.Topic}, nil
	})
}

// Start launches the worker's event loop and begins dispatching events to
// this client. It must be called before Connect.
func (c *Client) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.w.Run(ctx)
	go c.dispatchEvents()
}

// Close stops the worker. Any request still pending at that point rejects:
// with ConnectionClosed if the worker's own session teardown reaches it
// before the event loop exits, otherwise with WorkerLost.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) dispatchEvents() {
	for ev := range c.w.Events() {
		switch {
		case ev.Reply != nil:
			c.handleReply(ev.Reply)
		case ev.Notification != nil:
			c.handleNotification(ev.Notification)
		case ev.StateChanged != nil:
			c.handleStateChanged(ev.StateChanged)
		}
	}
	c.handleWorkerLost()
}

func (c *Client) handleReply(ev *worker.ReplyEvent) {
	c.mu.Lock()
	cb, ok := c.pendingRequests[ev.RequestID]
	if ok {
		delete(c.pendingRequests, ev.RequestID)
	}
	c.mu.Unlock()
	if ok {
		cb(ev)
	}
}

func (c *Client) handleNotification(ev *worker.NotificationEvent) {
	c.mu.Lock()
	sub, ok := c.subscriptions[ev.InternalID]
	c.mu.Unlock()
	if ok {
		sub.onData(ev.Data)
	}
}

func (c *Client) handleStateChanged(ev *worker.StateChangedEvent) {
	c.mu.Lock()
	c.lastStatus = ev.Status
	c.mu.Unlock()

	if ev.Status.State != session.Connected {
		c.closeAllSubscriptions()
	}

	switch ev.Status.State {
	case session.Connected:
		for _, hook := range c.snapshotConnHooks(c.onConnected) {
			hook()
		}
	case session.Disconnected:
		for _, hook := range c.snapshotConnHooks(c.onDisconnected) {
			hook()
		}
	case session.Error:
		for _, hook := range c.snapshotErrorHooks() {
			hook(fmt.Errorf("wsrpc: session entered Error state"))
		}
	}
}

func (c *Client) snapshotConnHooks(hooks []func()) []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(), len(hooks))
	copy(out, hooks)
	return out
}

func (c *Client) snapshotErrorHooks() []func(error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(error), len(c.onConnectionError))
	copy(out, c.onConnectionError)
	return out
}

// closeAllSubscriptions is the host-side half of the session-drop rule:
// the worker already marked every subscription closed and cleared its
// routing table; here the facade drops its own internalId-keyed
// callbacks and tells each one why, without auto-resubscribing.
func (c *Client) closeAllSubscriptions() {
	c.mu.Lock()
	subs := c.subscriptions
	c.subscriptions = make(map[string]*subscriptionHandle)
	c.mu.Unlock()

	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(wsrpcerr.ErrConnectionClosed)
		}
	}
}

// handleWorkerLost is the facade-level failure path once the worker's
// event loop exits: every pending request rejects with WorkerLost, every
// subscription is dropped.
func (c *Client) handleWorkerLost() {
	c.mu.Lock()
	pending := c.pendingRequests
	c.pendingRequests = make(map[string]func(*worker.ReplyEvent))
	c.subscriptions = make(map[string]*subscriptionHandle)
	c.mu.Unlock()

	for _, cb := range pending {
		cb(&worker.ReplyEvent{
			IsError:      true,
			ErrorMessage: wsrpcerr.ErrWorkerLost.Error(),
			ErrorCode:    wsrpcerr.ErrWorkerLost.Code(),
		})
	}
}

// Status returns the most recently observed SessionStatus.
func (c *Client) Status() session.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// OnConnected registers a hook fired on every transition into Connected.
func (c *Client) OnConnected(fn func()) {
	c.mu.Lock()
	c.onConnected = append(c.onConnected, fn)
	c.mu.Unlock()
}

// OnDisconnected registers a hook fired on every transition into
// Disconnected.
func (c *Client) OnDisconnected(fn func()) {
	c.mu.Lock()
	c.onDisconnected = append(c.onDisconnected, fn)
	c.mu.Unlock()
}

// OnConnectionError registers a hook fired when the session enters Error.
func (c *Client) OnConnectionError(fn func(error)) {
	c.mu.Lock()
	c.onConnectionError = append(c.onConnectionError, fn)
	c.mu.Unlock()
}

func (c *Client) registerPending(requestID string, cb func(*worker.ReplyEvent)) {
	c.mu.Lock()
	c.pendingRequests[requestID] = cb
	c.mu.Unlock()
}

// Connect resolves once the session reaches Connected, or rejects with
// ConnectionClosed if it settles on Disconnected first (e.g. the
// reconnect budget was exhausted before a session could be established).
func (c *Client) Connect() *Future[struct{}] {
	future := newFuture[struct{}]()
	requestID := idgen.New()
	c.registerPending(requestID, func(ev *worker.ReplyEvent) {
		if ev.IsError {
			future.reject(replyError(ev))
			return
		}
		future.resolve(struct{}{})
	})
	c.w.Commands() <- worker.Command{Connect: &worker.ConnectCommand{RequestID: requestID, Config: c.sessionCfg}}
	return future
}

// Disconnect resolves once the session reaches Disconnected.
func (c *Client) Disconnect() *Future[struct{}] {
	future := newFuture[struct{}]()
	requestID := idgen.New()
	c.registerPending(requestID, func(ev *worker.ReplyEvent) {
		future.resolve(struct{}{})
	})
	c.w.Commands() <- worker.Command{Disconnect: &worker.DisconnectCommand{RequestID: requestID}}
	return future
}

// Unsubscribe removes local callbacks and instructs the worker to
// unsubscribe. Late notifications bearing internalID are dropped silently
// after this call.
func (c *Client) Unsubscribe(internalID string) {
	c.mu.Lock()
	sub, ok := c.subscriptions[internalID]
	delete(c.subscriptions, internalID)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.w.Commands() <- worker.Command{Unsubscribe: &worker.UnsubscribeCommand{
		RequestID:      idgen.New(),
		SubscriptionID: sub.subscriptionID,
	}}
}

func replyError(ev *worker.ReplyEvent) error {
	switch ev.ErrorCode {
	case "":
		return fmt.Errorf("wsrpc: %s", ev.ErrorMessage)
	case wsrpcerr.ErrConnectionClosed.Code():
		return wsrpcerr.ErrConnectionClosed
	case wsrpcerr.ErrWorkerLost.Code():
		return wsrpcerr.ErrWorkerLost
	}
	return wsrpcerr.NewServerError(ev.ErrorCode, ev.ErrorMessage)
}
