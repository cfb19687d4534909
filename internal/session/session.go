// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package session lifts a raw byte pipe into a session with a stable
// identity across brief disconnects: it owns the connection state
// machine, the keepalive discipline, and the reconnect discipline, and
// filters session-management replies so only application messages are
// forwarded to observers.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vladsebesan/WebSocketWorker/internal/idgen"
	"github.com/vladsebesan/WebSocketWorker/internal/transport"
	"github.com/vladsebesan/WebSocketWorker/internal/wire"
	"github.com/vladsebesan/WebSocketWorker/internal/wsrpcdebug"
	"github.com/vladsebesan/WebSocketWorker/internal/wsrpcerr"
)

// Session implements transport.Observer (it is the transport's sole
// consumer) and exposes Observer registration for its own consumers (the
// Correlator, via the worker shell).
type Session struct {
	t      transport.Transport
	logger *slog.Logger

	mu        sync.Mutex
	cfg       Config
	status    Status
	observers []Observer
	closed    bool

	clientSessionID string

	// Keepalive bookkeeping.
	lastReceivedAt      time.Time
	lastKeepaliveSentAt time.Time
	keepaliveFailures   int
	keepaliveLimiter    *rate.Limiter
	keepaliveStop       chan struct{}

	reconnectTimer *time.Timer

	// pendingSessionRequestID is the requestId of the single in-flight
	// session-management request (SessionCreate, SessionKeepalive, or
	// SessionDestroy). Session-management exchanges are never concurrent
	// with each other, so one slot suffices.
	pendingSessionRequestID string
	pendingSessionKind      string

	// statusQueue and statusCond serialize status delivery to observers
	// through one dispatcher goroutine (dispatchStatuses), so two status
	// changes racing on different goroutines (e.g. onKeepaliveExhausted's
	// own transitions racing a Disconnect-triggered OnClose) can never be
	// delivered out of the order they were set in. Appends happen under
	// mu, the same lock that already serializes every setStatusLocked
	// call, so queue order always matches set order.
	statusQueue       []Status
	statusCond        *sync.Cond
	dispatcherStopped bool
}

// New returns a Session driving t. t must not yet have an observer
// attached; New attaches itself.
func New(t transport.Transport, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		t:      t,
		logger: logger,
		status: Status{State: Disconnected},
	}
	s.statusCond = sync.NewCond(&s.mu)
	t.SetObserver(s)
	go s.dispatchStatuses()
	return s
}

// Close permanently stops the status-dispatcher goroutine, draining any
// already-queued statuses first. Call it once the Session itself is
// being discarded (the worker shell does this when its own event loop
// exits); Connect must not be called again afterward.
func (s *Session) Close() {
	s.mu.Lock()
	s.dispatcherStopped = true
	s.statusCond.Signal()
	s.mu.Unlock()
}

// dispatchStatuses is the Session's one goroutine for observer
// notification: it delivers every queued Status in the order
// setStatusLocked enqueued it, never concurrently with itself.
func (s *Session) dispatchStatuses() {
	for {
		s.mu.Lock()
		for len(s.statusQueue) == 0 && !s.dispatcherStopped {
			s.statusCond.Wait()
		}
		if len(s.statusQueue) == 0 {
			s.mu.Unlock()
			return
		}
		next := s.statusQueue[0]
		s.statusQueue = s.statusQueue[1:]
		observers := append([]Observer(nil), s.observers...)
		logger := s.logger
		s.mu.Unlock()

		logger.Debug("wsrpc: session state changed", "state", next.State, "sessionId", next.SessionID)
		for _, o := range observers {
			o.OnStateChanged(next)
		}
	}
}

// AddObserver registers o to receive state changes and forwarded
// application messages.
func (s *Session) AddObserver(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Status returns the current SessionStatus.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Send transmits an already-encoded application frame. It is the only way
// the layer above (the Correlator) writes to the wire; requests issued
// while not Connected fail fast rather than queuing.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	connected := s.status.State == Connected
	s.mu.Unlock()
	if !connected {
		return transport.ErrNotConnected
	}
	return s.t.Send(data)
}

// Connect drives Disconnected -> Connecting.
func (s *Session) Connect(ctx context.Context, cfg Config) {
	cfg = cfg.Normalize()

	s.mu.Lock()
	s.closed = false
	s.cfg = cfg
	s.clientSessionID = idgen.New()
	s.setStatusLocked(Status{State: Connecting, ReconnectAttemptsLeft: cfg.MaxReconnectAttempts})
	s.keepaliveLimiter = rate.NewLimiter(rate.Every(cfg.KeepaliveInterval), 1)
	s.mu.Unlock()

	s.dial(ctx)
}

// Disconnect drives any state -> Disconnected: best effort SessionDestroy
// if Connected, cancel all timers, close the transport.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.status.State == Connected
	s.closed = true
	s.stopKeepaliveLocked()
	s.stopReconnectTimerLocked()
	s.mu.Unlock()

	if wasConnected {
		s.sendSessionDestroyBestEffort()
	}
	s.t.Disconnect()

	s.mu.Lock()
	s.setStatusLocked(Status{State: Disconnected})
	s.mu.Unlock()
}

func (s *Session) dial(ctx context.Context) {
	s.mu.Lock()
	url := s.cfg.URL
	s.mu.Unlock()
	if err := s.t.Connect(ctx, url); err != nil {
		s.logger.Warn("wsrpc: dial failed", "err", err)
		// OnError/OnClose will already have fired synchronously from
		// within Connect on failure; nothing further to do here.
	}
}

// --- transport.Observer ---

func (s *Session) OnOpen() {
	s.mu.Lock()
	s.setStatusLocked(Status{State: SessionInit, ReconnectAttemptsLeft: s.status.ReconnectAttemptsLeft})
	s.mu.Unlock()
	s.sendSessionCreate()
}

func (s *Session) OnBytes(data []byte) {
	s.mu.Lock()
	s.lastReceivedAt = time.Now()
	s.mu.Unlock()

	msg, err := wire.Decode(data)
	if err != nil {
		s.logger.Warn("wsrpc: dropping malformed frame", "err", err)
		return
	}
	if wsrpcdebug.Enabled("frames") {
		s.logger.Debug("wsrpc: frame received", "variant", msg.Variant, "kind", msg.Kind, "requestId", msg.RequestID)
	}

	switch msg.Kind {
	case wire.KindSessionCreate, wire.KindSessionCreateReply:
		s.handleSessionCreateReply(msg)
	case wire.KindSessionKeepalive, wire.KindSessionKeepaliveReply:
		s.handleSessionKeepaliveReply(msg)
	case wire.KindSessionDestroy, wire.KindSessionDestroyReply:
		// Best-effort; nothing to do on receipt.
	default:
		s.forwardApplicationMessage(msg)
	}
}

func (s *Session) OnError(err error) {
	s.logger.Warn("wsrpc: transport error", "err", err)
}

func (s *Session) OnClose(err error) {
	s.mu.Lock()
	closed := s.closed
	state := s.status.State
	attemptsLeft := s.status.ReconnectAttemptsLeft
	s.stopKeepaliveLocked()
	s.mu.Unlock()

	if closed {
		return
	}
	if state == Disconnected {
		return
	}

	if attemptsLeft > 0 {
		s.scheduleReconnect()
		return
	}

	s.mu.Lock()
	s.setStatusLocked(Status{State: Disconnected})
	s.mu.Unlock()
}

// forwardApplicationMessage enforces session-id validation: only frames
// matching the current sessionId are forwarded.
func (s *Session) forwardApplicationMessage(msg *wire.FramedMessage) {
	s.mu.Lock()
	current := s.status.SessionID
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	if current == "" || msg.SessionID != current {
		s.logger.Warn("wsrpc: dropping message for mismatched session",
			"err", wsrpcerr.NewSessionMismatch(current, msg.SessionID))
		return
	}
	for _, o := range observers {
		o.OnMessage(msg)
	}
}

// --- session-management request/reply ---

func (s *Session) sendSessionCreate() {
	payload := wire.SessionCreateParams{ClientSessionID: s.clientSessionID}

	s.mu.Lock()
	signingKey := s.cfg.SigningKey
	clientID := s.cfg.ClientID
	s.mu.Unlock()

	if len(signingKey) > 0 {
		assertion, err := signClientAssertion(clientID, signingKey)
		if err != nil {
			s.logger.Warn("wsrpc: failed to sign client assertion", "err", err)
		} else {
			payload.Assertion = assertion
		}
	}

	body, err := wire.EncodePayload(&payload)
	if err != nil {
		s.logger.Warn("wsrpc: failed to encode SessionCreate", "err", err)
		return
	}

	reqID := idgen.New()
	s.mu.Lock()
	s.pendingSessionRequestID = reqID
	s.pendingSessionKind = wire.KindSessionCreate
	s.mu.Unlock()

	frame := &wire.FramedMessage{
		Variant:   wire.VariantRequest,
		Kind:      wire.KindSessionCreate,
		RequestID: reqID,
		Payload:   body,
	}
	data, err := wire.Encode(frame)
	if err != nil {
		s.logger.Warn("wsrpc: failed to encode SessionCreate frame", "err", err)
		return
	}
	if err := s.t.Send(data); err != nil {
		s.logger.Warn("wsrpc: failed to send SessionCreate", "err", err)
	}
}

func (s *Session) handleSessionCreateReply(msg *wire.FramedMessage) {
	s.mu.Lock()
	expected := s.pendingSessionRequestID == msg.RequestID && s.pendingSessionKind == wire.KindSessionCreate
	s.mu.Unlock()
	if !expected {
		s.logger.Warn("wsrpc: unmatched SessionCreateReply", "requestId", msg.RequestID)
		return
	}

	if !msg.Status.Success() {
		s.logger.Warn("wsrpc: SessionCreate rejected", "status", msg.Status)
		return
	}

	var result wire.SessionCreateResult
	if err := wire.DecodePayload(msg.Payload, &result); err != nil {
		s.logger.Warn("wsrpc: failed to decode SessionCreateResult", "err", err)
		return
	}

	s.mu.Lock()
	s.pendingSessionRequestID = ""
	cfg := s.cfg
	s.setStatusLocked(Status{
		State:                 Connected,
		SessionID:             result.SessionID,
		ReconnectAttemptsLeft: cfg.MaxReconnectAttempts,
	})
	s.lastReceivedAt = time.Now()
	s.keepaliveFailures = 0
	s.mu.Unlock()

	s.startKeepalive()
}

func (s *Session) startKeepalive() {
	s.mu.Lock()
	s.stopKeepaliveLocked()
	stop := make(chan struct{})
	s.keepaliveStop = stop
	interval := s.cfg.KeepaliveInterval
	s.mu.Unlock()

	go s.keepaliveLoop(stop, interval)
}

func (s *Session) keepaliveLoop(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.maybeSendKeepalive(interval)
		}
	}
}

// maybeSendKeepalive sends only if both conditions hold: silence since the
// last received frame, and silence since the last keepalive sent. The
// rate.Limiter enforces the second condition (at most one send per
// interval); lastReceivedAt enforces the first.
func (s *Session) maybeSendKeepalive(interval time.Duration) {
	s.mu.Lock()
	if s.status.State != Connected {
		s.mu.Unlock()
		return
	}
	silentSinceReceive := time.Since(s.lastReceivedAt) >= interval
	sessionID := s.status.SessionID
	s.mu.Unlock()

	if !silentSinceReceive {
		return
	}
	if !s.keepaliveLimiter.Allow() {
		return
	}

	reqID := idgen.New()
	s.mu.Lock()
	s.pendingSessionRequestID = reqID
	s.pendingSessionKind = wire.KindSessionKeepalive
	s.lastKeepaliveSentAt = time.Now()
	s.mu.Unlock()

	body, err := wire.EncodePayload(&wire.SessionKeepaliveParams{})
	if err != nil {
		s.logger.Warn("wsrpc: failed to encode SessionKeepalive", "err", err)
		return
	}
	frame := &wire.FramedMessage{
		Variant:   wire.VariantRequest,
		Kind:      wire.KindSessionKeepalive,
		RequestID: reqID,
		SessionID: sessionID,
		Payload:   body,
	}
	data, err := wire.Encode(frame)
	if err != nil {
		s.logger.Warn("wsrpc: failed to encode SessionKeepalive frame", "err", err)
		return
	}
	if err := s.t.Send(data); err != nil {
		s.logger.Warn("wsrpc: failed to send SessionKeepalive", "err", err)
		s.onKeepaliveOutcome(false)
		return
	}

	s.mu.Lock()
	failures := s.keepaliveFailures + 1
	s.keepaliveFailures = failures
	maxFailures := s.cfg.MaxKeepaliveFailures
	s.mu.Unlock()
	if wsrpcdebug.Enabled("keepalive") {
		s.logger.Debug("wsrpc: keepalive sent", "requestId", reqID, "failures", failures, "maxFailures", maxFailures)
	}
	if failures >= maxFailures {
		s.onKeepaliveExhausted()
	}
}

func (s *Session) handleSessionKeepaliveReply(msg *wire.FramedMessage) {
	s.mu.Lock()
	currentSessionID := s.status.SessionID
	expectedRequest := s.pendingSessionRequestID == msg.RequestID && s.pendingSessionKind == wire.KindSessionKeepalive
	s.mu.Unlock()

	// A SessionKeepaliveReply whose sessionId differs from the current
	// session must not reset the failure counter.
	if msg.SessionID != currentSessionID {
		s.logger.Warn("wsrpc: dropping SessionKeepaliveReply for mismatched session",
			"err", wsrpcerr.NewSessionMismatch(currentSessionID, msg.SessionID))
		return
	}
	if !expectedRequest {
		s.logger.Warn("wsrpc: unmatched SessionKeepaliveReply", "requestId", msg.RequestID)
		return
	}

	s.mu.Lock()
	s.pendingSessionRequestID = ""
	s.keepaliveFailures = 0
	s.status.ReconnectAttemptsLeft = s.cfg.MaxReconnectAttempts
	s.mu.Unlock()
}

// onKeepaliveOutcome records a failed send attempt as a missed keepalive.
func (s *Session) onKeepaliveOutcome(ok bool) {
	if ok {
		return
	}
	s.mu.Lock()
	s.keepaliveFailures++
	failures := s.keepaliveFailures
	maxFailures := s.cfg.MaxKeepaliveFailures
	s.mu.Unlock()
	if failures >= maxFailures {
		s.onKeepaliveExhausted()
	}
}

// onKeepaliveExhausted implements the Connected -> KeepaliveFailed ->
// Connecting transition: the stale socket is forcibly closed and the
// session immediately re-enters Connecting with a full attempt budget,
// because a keepalive failure is evidence of a dead socket, not of
// exhausted reconnect policy.
func (s *Session) onKeepaliveExhausted() {
	s.mu.Lock()
	s.stopKeepaliveLocked()
	s.setStatusLocked(Status{State: KeepaliveFailed, ReconnectAttemptsLeft: s.cfg.MaxReconnectAttempts})
	s.mu.Unlock()

	s.logger.Info("wsrpc: keepalive exhausted, forcing reconnect")
	s.t.Disconnect()

	// A Transport is free to invoke OnClose synchronously from Disconnect,
	// which would otherwise have already armed a reconnectTimer via
	// scheduleReconnect. Stop it unconditionally before redialing here, so
	// the two never race to open a second connection.
	s.mu.Lock()
	s.stopReconnectTimerLocked()
	s.setStatusLocked(Status{State: Connecting, ReconnectAttemptsLeft: s.cfg.MaxReconnectAttempts})
	s.mu.Unlock()
	s.dial(context.Background())
}

// --- reconnect discipline ---

func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	s.setStatusLocked(Status{State: Connecting, ReconnectAttemptsLeft: s.status.ReconnectAttemptsLeft})
	interval := s.cfg.ReconnectInterval
	s.stopReconnectTimerLocked()
	s.reconnectTimer = time.AfterFunc(interval, s.attemptReconnect)
	s.mu.Unlock()
}

func (s *Session) attemptReconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// Attempts decrement only on an attempt, never on the state change to
	// Connecting.
	s.status.ReconnectAttemptsLeft--
	left := s.status.ReconnectAttemptsLeft
	s.mu.Unlock()

	if left < 0 {
		s.mu.Lock()
		s.setStatusLocked(Status{State: Disconnected})
		s.mu.Unlock()
		return
	}

	s.dial(context.Background())
}

// --- helpers; callers must hold s.mu ---

func (s *Session) setStatusLocked(next Status) {
	s.status = next
	s.statusQueue = append(s.statusQueue, next)
	s.statusCond.Signal()
}

func (s *Session) stopKeepaliveLocked() {
	if s.keepaliveStop != nil {
		close(s.keepaliveStop)
		s.keepaliveStop = nil
	}
}

func (s *Session) stopReconnectTimerLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

func (s *Session) sendSessionDestroyBestEffort() {
	body, err := wire.EncodePayload(&wire.SessionDestroyParams{})
	if err != nil {
		return
	}
	s.mu.Lock()
	sessionID := s.status.SessionID
	s.mu.Unlock()
	frame := &wire.FramedMessage{
		Variant:   wire.VariantRequest,
		Kind:      wire.KindSessionDestroy,
		RequestID: idgen.New(),
		SessionID: sessionID,
	}
	frame.Payload = body
	data, err := wire.Encode(frame)
	if err != nil {
		return
	}
	_ = s.t.Send(data) // best effort; errors are not actionable here
}
