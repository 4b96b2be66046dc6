package keywords

import (
	"context"
	"log/slog"
	"sync"

	"ffnexus/internal/logger"
)

// Manager coordinates the shared keyword snapshot with its store. Writes
// (reload, learn, add) are serialized; reads go straight to the holder.
type Manager struct {
	holder  *Holder
	adapter *Adapter
	learner *Learner
	log     *slog.Logger

	mu    sync.Mutex
	dirty bool // in-memory set holds entries not yet persisted
}

// LearnResult summarizes one learning pass.
type LearnResult struct {
	Candidates []string `json:"candidates"`
	Added      int      `json:"added"`
	Total      int      `json:"total"`
	Persisted  bool     `json:"persisted"`
}

// NewManager returns a manager whose holder starts with the adapter's
// defaults until the first Reload.
func NewManager(adapter *Adapter, learner *Learner) *Manager {
	return &Manager{
		holder:  NewHolder(NewSet(adapter.Defaults()...)),
		adapter: adapter,
		learner: learner,
		log:     logger.Get(),
	}
}

// Snapshot returns the current keyword set.
func (m *Manager) Snapshot() *Set {
	return m.holder.Snapshot()
}

// Reload replaces the snapshot with the stored list. Unpersisted learned
// keywords are retried first and kept if the retry fails.
func (m *Manager) Reload(ctx context.Context) *Set {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirty && m.adapter.Save(ctx, m.holder.Snapshot().Items()) {
		m.dirty = false
	}

	next := NewSet(m.adapter.Load(ctx)...)
	if m.dirty {
		next, _ = next.Union(m.holder.Snapshot().Items())
	}
	m.holder.Replace(next)
	m.log.Debug("Keywords reloaded", "count", next.Len())
	return next
}

// Learn extracts candidates from texts, merges them into the snapshot and
// persists the result. A failed save keeps the merge in memory and is
// retried on the next write.
func (m *Manager) Learn(ctx context.Context, texts []string) LearnResult {
	candidates := m.learner.Extract(texts)
	res := m.merge(ctx, candidates)
	res.Candidates = candidates
	if res.Added > 0 {
		m.log.Info("Learned keywords", "added", res.Added, "total", res.Total, "persisted", res.Persisted)
	}
	return res
}

// Add merges explicit keywords into the snapshot and persists them.
func (m *Manager) Add(ctx context.Context, words ...string) LearnResult {
	return m.merge(ctx, words)
}

func (m *Manager) merge(ctx context.Context, words []string) LearnResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, added := m.holder.Snapshot().Union(words)
	if added > 0 {
		m.holder.Replace(next)
		m.dirty = true
	}

	res := LearnResult{Added: added, Total: next.Len(), Persisted: !m.dirty}
	if m.dirty {
		if m.adapter.Save(ctx, next.Items()) {
			m.dirty = false
			res.Persisted = true
		}
	}
	return res
}
