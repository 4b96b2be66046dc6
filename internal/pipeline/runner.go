package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ffnexus/internal/core"
	"ffnexus/internal/logger"
)

// RunnerOptions configures the event loop and its maintenance jobs.
type RunnerOptions struct {
	QueueSize      int
	ReloadInterval time.Duration // Keyword reload period; zero disables
	LearnInterval  time.Duration // Keyword learning period; zero disables
	OnResult       func(Result)  // Called from the event loop after each message
}

// DefaultRunnerOptions returns the standard intervals.
func DefaultRunnerOptions() RunnerOptions {
	return RunnerOptions{
		QueueSize:      256,
		ReloadInterval: 5 * time.Minute,
		LearnInterval:  15 * time.Minute,
	}
}

// Runner feeds submitted messages through the pipeline on a single
// goroutine and runs keyword maintenance on another.
type Runner struct {
	pipeline *Pipeline
	keywords KeywordMaintainer
	history  MessageHistory // Source of learning batches; optional
	opts     RunnerOptions
	log      *slog.Logger

	queue chan core.Message

	mu      sync.RWMutex
	stopped bool

	learnedSeq int64 // Log sequence already learned from
}

// NewRunner creates a runner. keywords may be nil to disable maintenance.
func NewRunner(p *Pipeline, keywords KeywordMaintainer, history MessageHistory, opts RunnerOptions) *Runner {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultRunnerOptions().QueueSize
	}
	return &Runner{
		pipeline: p,
		keywords: keywords,
		history:  history,
		opts:     opts,
		log:      logger.Get(),
		queue:    make(chan core.Message, opts.QueueSize),
	}
}

// Submit enqueues a message without blocking.
func (r *Runner) Submit(msg core.Message) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrStopped
	}
	select {
	case r.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued messages.
func (r *Runner) Pending() int {
	return len(r.queue)
}

// Run loads keywords, then processes messages until ctx is cancelled.
// Messages already queued at cancellation are processed before returning.
func (r *Runner) Run(ctx context.Context) error {
	if r.keywords != nil {
		set := r.keywords.Reload(ctx)
		r.log.Info("Keywords loaded", "count", set.Len())
	}
	if r.history != nil {
		seq, err := r.history.LastSeq(ctx)
		if err != nil {
			r.log.Warn("Failed to read message log position", "error", err)
		}
		r.learnedSeq = seq
	}

	var wg sync.WaitGroup
	if r.keywords != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.maintain(ctx)
		}()
	}

	for {
		select {
		case msg := <-r.queue:
			r.handle(ctx, msg)
		case <-ctx.Done():
			r.stop()
			r.drain()
			wg.Wait()
			return nil
		}
	}
}

func (r *Runner) handle(ctx context.Context, msg core.Message) {
	res := r.pipeline.Process(ctx, msg)
	if r.opts.OnResult != nil {
		r.opts.OnResult(res)
	}
}

func (r *Runner) stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// drain processes whatever is left in the queue with a fresh context so
// store writes are not cut short by the shutdown signal.
func (r *Runner) drain() {
	ctx := context.Background()
	for {
		select {
		case msg := <-r.queue:
			r.handle(ctx, msg)
		default:
			return
		}
	}
}

// maintain runs reload and learn jobs. Both run on this goroutine so they
// never overlap.
func (r *Runner) maintain(ctx context.Context) {
	reload := newTicker(r.opts.ReloadInterval)
	learn := newTicker(r.opts.LearnInterval)
	defer reload.Stop()
	defer learn.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reload.C:
			set := r.keywords.Reload(ctx)
			r.log.Debug("Keyword reload complete", "count", set.Len())
		case <-learn.C:
			r.Learn(ctx)
		}
	}
}

// Learn runs one learning pass over messages logged since the previous
// pass, regardless of their createdAt.
func (r *Runner) Learn(ctx context.Context) {
	if r.history == nil || r.keywords == nil {
		return
	}

	msgs, err := r.history.MessagesAfter(ctx, r.learnedSeq)
	if err != nil {
		r.log.Warn("Failed to read learning batch", "error", err)
		return
	}
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Content)
	}

	res := r.keywords.Learn(ctx, texts)
	if len(msgs) > 0 {
		r.learnedSeq = msgs[len(msgs)-1].Seq
	}
	r.log.Debug("Keyword learning pass complete",
		"messages", len(texts),
		"candidates", len(res.Candidates),
		"added", res.Added,
	)
}

// ticker wraps time.Ticker so a zero interval yields a channel that never fires.
type ticker struct {
	C <-chan time.Time
	t *time.Ticker
}

func newTicker(d time.Duration) *ticker {
	if d <= 0 {
		return &ticker{C: make(chan time.Time)}
	}
	t := time.NewTicker(d)
	return &ticker{C: t.C, t: t}
}

func (t *ticker) Stop() {
	if t.t != nil {
		t.t.Stop()
	}
}
