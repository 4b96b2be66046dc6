package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ffnexus/internal/core"
)

// recordingSender captures notifications and optionally fails or blocks.
type recordingSender struct {
	mu      sync.Mutex
	sent    []Notification
	dests   []string
	err     error
	release chan struct{}
}

func (r *recordingSender) Send(ctx context.Context, _ MessagePlatform, dest string, n Notification) error {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	r.dests = append(r.dests, dest)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatcherDelivers(t *testing.T) {
	s := &recordingSender{}
	d := NewDispatcher(s, DispatcherConfig{Platform: PlatformDiscord, Destination: "chan-1", Footer: DefaultFooter})

	if !d.Dispatch(testEvent()) {
		t.Fatal("expected event to be accepted")
	}
	d.Close()

	if s.count() != 1 {
		t.Fatalf("expected 1 delivery, got %d", s.count())
	}
	if s.dests[0] != "chan-1" {
		t.Errorf("unexpected destination %q", s.dests[0])
	}
	if s.sent[0].Title != "⚠️ Alerta: Problemas de login/conexão" {
		t.Errorf("unexpected title %q", s.sent[0].Title)
	}
}

func TestDispatcherNoDestinationIsNoop(t *testing.T) {
	s := &recordingSender{}
	d := NewDispatcher(s, DispatcherConfig{Platform: PlatformDiscord})
	defer d.Close()

	if d.Enabled() {
		t.Error("dispatcher without destination should be disabled")
	}
	if d.Dispatch(testEvent()) {
		t.Error("dispatch without destination should be a no-op")
	}
}

func TestDispatcherDropsOnFailure(t *testing.T) {
	s := &recordingSender{err: errors.New("boom")}
	d := NewDispatcher(s, DispatcherConfig{Platform: PlatformSlack, Destination: "https://hooks.slack.com/x"})

	d.Dispatch(testEvent())
	d.Dispatch(testEvent())
	d.Close()

	// One attempt per event, no retries.
	if s.count() != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", s.count())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	s := &recordingSender{release: make(chan struct{})}
	d := NewDispatcher(s, DispatcherConfig{Platform: PlatformDiscord, Destination: "c", QueueSize: 1, Timeout: time.Second})

	accepted := 0
	for i := 0; i < 5; i++ {
		if d.Dispatch(core.AlertEvent{Type: "lag"}) {
			accepted++
		}
	}
	close(s.release)
	d.Close()

	// At most one in flight plus one queued.
	if accepted > 2 || accepted == 0 {
		t.Errorf("unexpected accepted count %d", accepted)
	}
	if s.count() != accepted {
		t.Errorf("delivered %d, accepted %d", s.count(), accepted)
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, DispatcherConfig{Platform: PlatformDiscord, Destination: "c"})
	d.Close()
	d.Close()
	if d.Dispatch(testEvent()) {
		t.Error("closed dispatcher should reject events")
	}
}
