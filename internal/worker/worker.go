// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package worker hosts the Session, Correlator, and registry inside a
// dedicated background goroutine, and bridges it to the host side via a
// single command-in/event-out channel pair. Only plain structural values
// cross that boundary; nothing here is shared by reference with the host
// facade.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vladsebesan/WebSocketWorker/internal/correlator"
	"github.com/vladsebesan/WebSocketWorker/internal/registry"
	"github.com/vladsebesan/WebSocketWorker/internal/session"
	"github.com/vladsebesan/WebSocketWorker/internal/transport"
	"github.com/vladsebesan/WebSocketWorker/internal/wire"
	"github.com/vladsebesan/WebSocketWorker/internal/wsrpcerr"
)

// Worker is the single event listener for host commands and the single
// poster of events back to the host.
type Worker struct {
	session    *session.Session
	correlator *correlator.Correlator
	registry   *registry.Registry
	logger     *slog.Logger

	commands chan Command
	events   chan Event
	done     chan struct{}

	// eventsMu serializes every send against the shutdown close, so a send
	// can never race a close of w.events.
	eventsMu sync.Mutex
	closed   bool

	// pendingMu guards the two boundary-request slots below; OnStateChanged
	// runs on a Session-owned goroutine, concurrently with Run's own
	// command handling.
	pendingMu           sync.Mutex
	pendingConnectID    string
	pendingDisconnectID string
}

// New wires a fresh Session+Correlator over t, behind reg's command
// registry. Call Run to start the event loop.
func New(t transport.Transport, reg *registry.Registry, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	sess := session.New(t, logger)
	corr := correlator.New(sess, logger)
	sess.AddObserver(corr)

	w := &Worker{
		session:    sess,
		correlator: corr,
		registry:   reg,
		logger:     logger,
		commands:   make(chan Command, 16),
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
	}
	sess.AddObserver(w)
	return w
}

// Commands returns the channel the host posts commands to.
func (w *Worker) Commands() chan<- Command { return w.commands }

// Events returns the channel the host reads events from.
func (w *Worker) Events() <-chan Event { return w.events }

// Done returns a channel closed once Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run drives the event loop until ctx is cancelled. It is the worker's
// single goroutine: every Session/Correlator mutation happens from here
// or from callbacks the Session schedules, never concurrently with this
// loop's own command handling in a way that bypasses their own locking.
func (w *Worker) Run(ctx context.Context) {
	defer func() {
		w.eventsMu.Lock()
		w.closed = true
		close(w.events)
		w.eventsMu.Unlock()
		close(w.done)
	}()
	for {
		select {
		case <-ctx.Done():
			w.session.Disconnect()
			w.session.Close()
			return
		case cmd := <-w.commands:
			w.handle(cmd)
		}
	}
}

// sendEvent posts ev unless Run has already returned. Holding eventsMu for
// the duration of the send (not just the closed check) is what makes this
// race-free against the shutdown close above.
func (w *Worker) sendEvent(ev Event) {
	w.eventsMu.Lock()
	defer w.eventsMu.Unlock()
	if w.closed {
		return
	}
	w.events <- ev
}

func (w *Worker) handle(cmd Command) {
	switch {
	case cmd.Connect != nil:
		w.handleConnect(cmd.Connect)
	case cmd.Disconnect != nil:
		w.handleDisconnect(cmd.Disconnect)
	case cmd.SendRequest != nil:
		w.handleSendRequest(cmd.SendRequest)
	case cmd.Subscribe != nil:
		w.handleSubscribe(cmd.Subscribe)
	case cmd.Unsubscribe != nil:
		w.handleUnsubscribe(cmd.Unsubscribe)
	default:
		w.logger.Warn("wsrpc: discarding empty worker command")
	}
}

func (w *Worker) handleConnect(c *ConnectCommand) {
	w.pendingMu.Lock()
	w.pendingConnectID = c.RequestID
	w.pendingMu.Unlock()
	w.session.Connect(context.Background(), c.Config)
}

func (w *Worker) handleDisconnect(c *DisconnectCommand) {
	w.pendingMu.Lock()
	w.pendingDisconnectID = c.RequestID
	w.pendingMu.Unlock()
	w.session.Disconnect()
}

func (w *Worker) handleSendRequest(c *SendRequestCommand) {
	cmd, err := w.registry.Command(c.CommandType, c.Params)
	if err != nil {
		w.emitReply(c.RequestID, nil, err)
		return
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	w.correlator.SendRequest(cmd, timeout,
		func(result any) { w.emitReply(c.RequestID, result, nil) },
		func(err error) { w.emitReply(c.RequestID, nil, err) },
	)
}

func (w *Worker) handleSubscribe(c *SubscribeCommand) {
	spec, err := w.registry.Subscription(c.SubscriptionName, c.Params)
	if err != nil {
		w.emitReply(c.RequestID, nil, err)
		return
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	internalID := c.InternalID
	w.correlator.Subscribe(spec, internalID, timeout,
		func(data any) {
			w.sendEvent(Event{Notification: &NotificationEvent{InternalID: internalID, Data: data}})
		},
		func(err error) {
			w.logger.Warn("wsrpc: subscription closed", "internalId", internalID, "err", err)
		},
		func(subscriptionID string) {
			w.emitReply(c.RequestID, subscriptionID, nil)
		},
		func(err error) {
			w.emitReply(c.RequestID, nil, err)
		},
	)
}

func (w *Worker) handleUnsubscribe(c *UnsubscribeCommand) {
	w.correlator.Unsubscribe(c.SubscriptionID)
	w.emitReply(c.RequestID, nil, nil)
}

func (w *Worker) emitReply(requestID string, data any, err error) {
	ev := &ReplyEvent{RequestID: requestID, Data: data}
	if err != nil {
		ev.IsError = true
		ev.ErrorMessage = err.Error()
		if c, ok := err.(interface{ Code() string }); ok {
			ev.ErrorCode = c.Code()
		}
	}
	w.sendEvent(Event{Reply: ev})
}

// --- session.Observer ---

func (w *Worker) OnStateChanged(status session.Status) {
	w.sendEvent(Event{StateChanged: &StateChangedEvent{Status: status}})

	switch status.State {
	case session.Connected:
		if id, ok := w.takePendingConnect(); ok {
			w.emitReply(id, nil, nil)
		}
	case session.Disconnected:
		if id, ok := w.takePendingConnect(); ok {
			w.emitReply(id, nil, wsrpcerr.ErrConnectionClosed)
		}
		if id, ok := w.takePendingDisconnect(); ok {
			w.emitReply(id, nil, nil)
		}
	case session.Error:
		if id, ok := w.takePendingConnect(); ok {
			w.emitReply(id, nil, wsrpcerr.ErrConnectionClosed)
		}
	}
}

func (w *Worker) takePendingConnect() (string, bool) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	id := w.pendingConnectID
	w.pendingConnectID = ""
	return id, id != ""
}

func (w *Worker) takePendingDisconnect() (string, bool) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	id := w.pendingDisconnectID
	w.pendingDisconnectID = ""
	return id, id != ""
}

func (w *Worker) OnMessage(msg *wire.FramedMessage) {
	// The Correlator is the sole consumer of forwarded application
	// messages; Worker only needs state transitions.
}
