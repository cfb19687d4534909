package correlator

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vladsebesan/WebSocketWorker/internal/session"
	"github.com/vladsebesan/WebSocketWorker/internal/wire"
	"github.com/vladsebesan/WebSocketWorker/internal/wsrpcerr"
)

type fakeSender struct {
	status session.Status
	sent   []*wire.FramedMessage
}

func (f *fakeSender) Status() session.Status { return f.status }

func (f *fakeSender) Send(data []byte) error {
	msg, err := wire.Decode(data)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type pingResult struct {
	Pong string `json:"pong"`
}

type pingCommand struct{}

func (pingCommand) Kind() string              { return "Ping" }
func (pingCommand) EncodeParams() (any, error) { return struct{}{}, nil }
func (pingCommand) DecodeResult(payload []byte) (any, error) {
	var r pingResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func TestSendRequestResolvesOnReply(t *testing.T) {
	sender := &fakeSender{status: session.Status{State: session.Connected, SessionID: "s1"}}
	c := New(sender, nil)

	var resolved any
	var rejectErr error
	done := make(chan struct{})
	c.SendRequest(pingCommand{}, time.Second, func(v any) {
		resolved = v
		close(done)
	}, func(err error) {
		rejectErr = err
		close(done)
	})

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 frame sent, got %d", len(sender.sent))
	}
	req := sender.sent[0]

	payload, _ := wire.EncodePayload(&pingResult{Pong: "pong"})
	reply := &wire.FramedMessage{
		Variant:   wire.VariantReply,
		Kind:      "Ping",
		RequestID: req.RequestID,
		SessionID: "s1",
		Status:    &wire.Status{Code: wire.StatusSuccess},
		Payload:   payload,
	}
	c.OnMessage(reply)

	<-done
	if rejectErr != nil {
		t.Fatalf("unexpected reject: %v", rejectErr)
	}
	got, ok := resolved.(pingResult)
	if !ok || got.Pong != "pong" {
		t.Fatalf("unexpected resolved value: %#v", resolved)
	}
}

func TestSendRequestRejectsWhenNotConnected(t *testing.T) {
	sender := &fakeSender{status: session.Status{State: session.Connecting}}
	c := New(sender, nil)

	var rejectErr error
	c.SendRequest(pingCommand{}, time.Second, func(any) {
		t.Fatal("resolve should not be called")
	}, func(err error) {
		rejectErr = err
	})

	if !errors.Is(rejectErr, wsrpcerr.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", rejectErr)
	}
}

func TestSendRequestTimesOut(t *testing.T) {
	sender := &fakeSender{status: session.Status{State: session.Connected, SessionID: "s1"}}
	c := New(sender, nil)

	done := make(chan error, 1)
	c.SendRequest(pingCommand{}, 10*time.Millisecond, func(any) {
		t.Fatal("resolve should not be called")
	}, func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		var te *wsrpcerr.TimeoutError
		if !errors.As(err, &te) {
			t.Fatalf("expected TimeoutError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestSessionDropRejectsAllPending(t *testing.T) {
	sender := &fakeSender{status: session.Status{State: session.Connected, SessionID: "s1"}}
	c := New(sender, nil)

	done := make(chan error, 1)
	c.SendRequest(pingCommand{}, time.Second, func(any) {
		t.Fatal("resolve should not be called")
	}, func(err error) {
		done <- err
	})

	c.OnStateChanged(session.Status{State: session.Disconnected})

	select {
	case err := <-done:
		if !errors.Is(err, wsrpcerr.ErrConnectionClosed) {
			t.Fatalf("expected ErrConnectionClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reject never fired")
	}
}

type feedSpec struct{}

func (feedSpec) SubscribeKind() string   { return "FeedSubscribe" }
func (feedSpec) UnsubscribeKind() string { return "FeedUnsubscribe" }
func (feedSpec) EncodeSubscribeParams() (any, error) { return struct{}{}, nil }
func (feedSpec) EncodeUnsubscribeParams(subscriptionID string) (any, error) {
	return struct {
		SubscriptionID string `json:"subscriptionId"`
	}{subscriptionID}, nil
}

type subscribeResult struct {
	SubscriptionID string `json:"subscriptionId"`
}

func (feedSpec) DecodeSubscribeResult(payload []byte) (string, error) {
	var r subscribeResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return "", err
	}
	return r.SubscriptionID, nil
}

type feedNotification struct {
	Value int `json:"value"`
}

func (feedSpec) DecodeNotification(payload []byte) (any, error) {
	var n feedNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, err
	}
	return n, nil
}

// TestSubscriptionLifecycle drives a subscription end to end: subscribe,
// ordered notifications, unsubscribe, and a dropped late notification.
func TestSubscriptionLifecycle(t *testing.T) {
	sender := &fakeSender{status: session.Status{State: session.Connected, SessionID: "s1"}}
	c := New(sender, nil)

	var gotSubID string
	resolved := make(chan struct{})
	received := make(chan any, 16)
	c.Subscribe(feedSpec{}, "internal-1", time.Second,
		func(v any) {
			received <- v
		},
		func(err error) { t.Fatalf("unexpected notification error: %v", err) },
		func(subscriptionID string) {
			gotSubID = subscriptionID
			close(resolved)
		},
		func(err error) { t.Fatalf("unexpected subscribe error: %v", err) },
	)

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 subscribe frame sent, got %d", len(sender.sent))
	}
	req := sender.sent[0]

	payload, _ := wire.EncodePayload(&subscribeResult{SubscriptionID: "sub-7"})
	c.OnMessage(&wire.FramedMessage{
		Variant:   wire.VariantReply,
		Kind:      "FeedSubscribe",
		RequestID: req.RequestID,
		SessionID: "s1",
		Status:    &wire.Status{Code: wire.StatusSuccess},
		Payload:   payload,
	})
	<-resolved
	if gotSubID != "sub-7" {
		t.Fatalf("expected sub-7, got %q", gotSubID)
	}

	for i := 0; i < 3; i++ {
		notifPayload, _ := wire.EncodePayload(&feedNotification{Value: i})
		c.OnMessage(&wire.FramedMessage{
			Variant:        wire.VariantNotification,
			Kind:           "Feed",
			SessionID:      "s1",
			SubscriptionID: "sub-7",
			Payload:        notifPayload,
		})
	}

	for i := 0; i < 3; i++ {
		select {
		case v := <-received:
			n := v.(feedNotification)
			if n.Value != i {
				t.Fatalf("notification %d: expected value %d, got %d", i, i, n.Value)
			}
		case <-time.After(time.Second):
			t.Fatalf("notification %d never delivered", i)
		}
	}

	c.Unsubscribe("sub-7")
	notifPayload, _ := wire.EncodePayload(&feedNotification{Value: 99})
	c.OnMessage(&wire.FramedMessage{
		Variant:        wire.VariantNotification,
		Kind:           "Feed",
		SessionID:      "s1",
		SubscriptionID: "sub-7",
		Payload:        notifPayload,
	})

	select {
	case v := <-received:
		t.Fatalf("unexpected notification after unsubscribe: %#v", v)
	case <-time.After(50 * time.Millisecond):
	}
}
