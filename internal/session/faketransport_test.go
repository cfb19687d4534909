package session

import (
	"context"
	"sync"

	"github.com/vladsebesan/WebSocketWorker/internal/transport"
)

// fakeTransport is an in-process transport.Transport stand-in: Connect
// counts its calls and Send records each frame for the test to inspect, and the
// test injects OnOpen/OnBytes/OnClose by calling straight into the
// observer. No network, no goroutine races beyond what Session itself
// introduces.
type fakeTransport struct {
	mu       sync.Mutex
	observer transport.Observer
	sent     [][]byte
	connects int
	fail     bool
}

func (f *fakeTransport) SetObserver(o transport.Observer) {
	f.mu.Lock()
	f.observer = o
	f.mu.Unlock()
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	f.mu.Lock()
	f.connects++
	fail := f.fail
	obs := f.observer
	f.mu.Unlock()
	if fail {
		if obs != nil {
			obs.OnError(transport.ErrNotConnected)
			obs.OnClose(transport.ErrNotConnected)
		}
		return transport.ErrNotConnected
	}
	if obs != nil {
		obs.OnOpen()
	}
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	obs := f.observer
	f.mu.Unlock()
	if obs != nil {
		obs.OnClose(nil)
	}
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) observerRef() transport.Observer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observer
}

func (f *fakeTransport) lastSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
