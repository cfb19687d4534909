package worker

import (
	"context"
	"sync"

	"github.com/vladsebesan/WebSocketWorker/internal/transport"
)

type fakeTransport struct {
	mu       sync.Mutex
	observer transport.Observer
	sent     [][]byte
}

func (f *fakeTransport) SetObserver(o transport.Observer) {
	f.mu.Lock()
	f.observer = o
	f.mu.Unlock()
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	f.mu.Lock()
	obs := f.observer
	f.mu.Unlock()
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
	f.sent = append(f.sent, data)
	f.mu.Unlock()
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

func (f *fakeTransport) allSent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}
