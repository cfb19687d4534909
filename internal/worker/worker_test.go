package worker

import (
	"context"
	"testing"
	"time"

	json "github.com/segmentio/encoding/json"

	"github.com/vladsebesan/WebSocketWorker/command"
	"github.com/vladsebesan/WebSocketWorker/internal/correlator"
	"github.com/vladsebesan/WebSocketWorker/internal/registry"
	"github.com/vladsebesan/WebSocketWorker/internal/session"
	"github.com/vladsebesan/WebSocketWorker/internal/wire"
)

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterCommand("Ping", nil, func(params json.RawMessage) (correlator.Command, error) {
		return command.Ping{}, nil
	})
	return reg
}

// TestWorkerConnectRequestDisconnect connects, sends a request, and
// disconnects, driven entirely through the worker's command/event
// channels.
func TestWorkerConnectRequestDisconnect(t *testing.T) {
	ft := &fakeTransport{}
	w := New(ft, newTestRegistry(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Commands() <- Command{Connect: &ConnectCommand{
		RequestID: "connect-1",
		Config:    session.Config{URL: "ws://example/ws/", KeepaliveInterval: time.Hour},
	}}

	// Drain the SessionInit state-change event, then answer SessionCreate.
	waitForStateEvent(t, w, session.SessionInit)

	req := decodeSentOfKind(t, ft, wire.KindSessionCreate)
	result, _ := wire.EncodePayload(&wire.SessionCreateResult{SessionID: "sess-1"})
	reply, _ := wire.Encode(&wire.FramedMessage{
		Variant:   wire.VariantReply,
		Kind:      wire.KindSessionCreateReply,
		RequestID: req.RequestID,
		Status:    &wire.Status{Code: wire.StatusSuccess},
		Payload:   result,
	})
	ft.observerRef().OnBytes(reply)

	waitForStateEvent(t, w, session.Connected)
	waitForReply(t, w, "connect-1")

	w.Commands() <- Command{SendRequest: &SendRequestCommand{
		RequestID:   "req-1",
		CommandType: "Ping",
		Timeout:     time.Second,
	}}

	pingReq := decodeSentOfKind(t, ft, "Ping")
	pingResult, _ := wire.EncodePayload(&command.PingResult{Pong: "pong"})
	pingReply, _ := wire.Encode(&wire.FramedMessage{
		Variant:   wire.VariantReply,
		Kind:      "Ping",
		RequestID: pingReq.RequestID,
		SessionID: "sess-1",
		Status:    &wire.Status{Code: wire.StatusSuccess},
		Payload:   pingResult,
	})
	ft.observerRef().OnBytes(pingReply)

	ev := waitForReply(t, w, "req-1")
	if ev.IsError {
		t.Fatalf("unexpected error reply: %s", ev.ErrorMessage)
	}
	pong, ok := ev.Data.(command.PingResult)
	if !ok || pong.Pong != "pong" {
		t.Fatalf("unexpected ping result: %#v", ev.Data)
	}

	w.Commands() <- Command{Disconnect: &DisconnectCommand{RequestID: "disconnect-1"}}
	waitForReply(t, w, "disconnect-1")
}

func waitForStateEvent(t *testing.T, w *Worker, want session.State) session.Status {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.StateChanged != nil && ev.StateChanged.Status.State == want {
				return ev.StateChanged.Status
			}
		case <-deadline:
			t.Fatalf("state %s never observed", want)
		}
	}
}

func waitForReply(t *testing.T, w *Worker, requestID string) *ReplyEvent {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Reply != nil && ev.Reply.RequestID == requestID {
				return ev.Reply
			}
		case <-deadline:
			t.Fatalf("reply for %s never observed", requestID)
		}
	}
}

func decodeSentOfKind(t *testing.T, ft *fakeTransport, kind string) *wire.FramedMessage {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, data := range ft.allSent() {
			msg, err := wire.Decode(data)
			if err != nil {
				t.Fatalf("decode sent frame: %v", err)
			}
			if msg.Kind == kind {
				return msg
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no frame of kind %s sent", kind)
	return nil
}
