package keywords

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ffnexus/internal/logger"
)

var (
	// ErrNotFound is returned by a Store when no keyword list has been saved.
	ErrNotFound = errors.New("keywords: not found")
	// ErrCorrupt is returned by a Store when the persisted list cannot be decoded.
	ErrCorrupt = errors.New("keywords: corrupt data")
)

// Store persists the keyword list as a whole.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, keywords []string) error
}

// Adapter wraps a Store with the fail-soft contract used by the pipeline:
// Load never fails and Save reports success as a bool.
type Adapter struct {
	store    Store
	defaults []string
	timeout  time.Duration
	log      *slog.Logger
}

// DefaultTimeout bounds every store call.
const DefaultTimeout = 4 * time.Second

// NewAdapter returns an adapter over store. defaults is served whenever the
// store is unavailable or empty.
func NewAdapter(store Store, defaults []string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		store:    store,
		defaults: append([]string(nil), defaults...),
		timeout:  timeout,
		log:      logger.Get(),
	}
}

// Defaults returns the fallback keyword list.
func (a *Adapter) Defaults() []string {
	return append([]string(nil), a.defaults...)
}

// Load returns the persisted keywords. Missing or corrupt data is replaced
// by an empty list in the store; any failure or an empty list yields the
// defaults.
func (a *Adapter) Load(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	list, err := a.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt):
		a.log.Warn("Keyword store unreadable, reinitializing", "error", err)
		if saveErr := a.store.Save(ctx, []string{}); saveErr != nil {
			a.log.Warn("Failed to reinitialize keyword store", "error", saveErr)
		}
		return a.Defaults()
	case err != nil:
		a.log.Warn("Keyword store load failed, using defaults", "error", err)
		return a.Defaults()
	case len(list) == 0:
		return a.Defaults()
	}
	return list
}

// Save persists keywords and reports whether it succeeded.
func (a *Adapter) Save(ctx context.Context, keywords []string) bool {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if keywords == nil {
		keywords = []string{}
	}
	if err := a.store.Save(ctx, keywords); err != nil {
		a.log.Warn("Keyword store save failed", "error", err, "count", len(keywords))
		return false
	}
	return true
}

// MemoryStore keeps the list in memory. It backs the "memory" backend and
// tests.
type MemoryStore struct {
	mu      sync.Mutex
	list    []string
	present bool
}

// NewMemoryStore returns a store, optionally seeded with an initial list.
func NewMemoryStore(initial ...string) *MemoryStore {
	m := &MemoryStore{}
	if initial != nil {
		m.list = append([]string(nil), initial...)
		m.present = true
	}
	return m
}

func (m *MemoryStore) Load(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return nil, ErrNotFound
	}
	return append([]string(nil), m.list...), nil
}

func (m *MemoryStore) Save(_ context.Context, keywords []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append([]string{}, keywords...)
	m.present = true
	return nil
}
