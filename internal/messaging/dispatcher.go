package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ffnexus/internal/core"
	"ffnexus/internal/logger"
)

const (
	defaultQueueSize    = 64
	defaultSendTimeout  = 5 * time.Second
	defaultDrainTimeout = 5 * time.Second
)

// Sender delivers a notification to a destination.
type Sender interface {
	Send(ctx context.Context, platform MessagePlatform, destination string, n Notification) error
}

// DispatcherConfig configures alert delivery.
type DispatcherConfig struct {
	Platform    MessagePlatform
	Destination string // Channel id for the bot transport, webhook URL otherwise
	Language    Language
	Footer      string
	QueueSize   int
	Timeout     time.Duration // Per-send bound
}

// Dispatcher delivers alert events in the background. Each event gets at
// most one send attempt; failures and overflow are logged and dropped.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
	log    *slog.Logger

	ch   chan core.AlertEvent
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the delivery goroutine immediately.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	if cfg.Language == "" {
		cfg.Language = LanguagePT
	}

	d := &Dispatcher{
		sender: sender,
		cfg:    cfg,
		log:    logger.Get(),
		ch:     make(chan core.AlertEvent, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go d.drain()
	return d
}

// Enabled reports whether alerts have somewhere to go. Without a
// destination every dispatch is a no-op.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.Platform != "" && d.cfg.Destination != ""
}

// Dispatch queues an event for delivery without blocking. It reports
// whether the event was accepted.
func (d *Dispatcher) Dispatch(ev core.AlertEvent) bool {
	if !d.Enabled() {
		d.log.Debug("No alert destination configured, skipping alert", "incident", ev.Type)
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.ch <- ev:
		return true
	default:
		d.log.Warn("Alert queue full, dropping alert", "incident", ev.Type, "count", ev.Count)
		return false
	}
}

// Deliver sends one event synchronously, bounded by the send timeout.
func (d *Dispatcher) Deliver(ctx context.Context, ev core.AlertEvent) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	n := BuildNotification(ev, d.cfg.Language, d.cfg.Footer)
	return d.sender.Send(ctx, d.cfg.Platform, d.cfg.Destination, n)
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for ev := range d.ch {
		if err := d.Deliver(context.Background(), ev); err != nil {
			d.log.Warn("Alert delivery failed", "incident", ev.Type, "error", err)
			continue
		}
		d.log.Info("Alert delivered", "incident", ev.Type, "count", ev.Count, "platform", d.cfg.Platform)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-time.After(defaultDrainTimeout):
		d.log.Warn("Alert dispatcher drain timed out")
	}
}
