package relay

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeTransport implements Transport for tests without a real WebSocket.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []string
	inbound  chan string
	closed   bool
	closedCh chan struct{}
	failSend bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound:  make(chan string, 16),
		closedCh: make(chan struct{}),
	}
}

func (f *fakeTransport) Send(frame string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend || f.closed {
		return errors.New("transport gone")
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Receive() (string, error) {
	select {
	case msg := <-f.inbound:
		return msg, nil
	case <-f.closedCh:
		return "", errors.New("connection closed")
	}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closedCh)
	}
	return nil
}

func (f *fakeTransport) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]string, len(f.sent))
	copy(cp, f.sent)
	return cp
}

// waitFrames polls until the transport has received at least n frames or the
// deadline passes, then returns whatever arrived.
func (f *fakeTransport) waitFrames(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.frames(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	return f.frames()
}
