// Package keywords owns the learned keyword set: its in-memory snapshot,
// its persistence and the batch learner that grows it.
package keywords

import (
	"sync/atomic"

	"ffnexus/internal/relevance"
)

// Set is an immutable ordered set of unique normalized keywords.
type Set struct {
	items []string
	index map[string]struct{}
}

// NewSet normalizes and deduplicates items, keeping first-seen order.
// Empty entries are dropped.
func NewSet(items ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(items))}
	for _, it := range items {
		s.add(it)
	}
	return s
}

func (s *Set) add(item string) bool {
	n := relevance.Normalize(item)
	if n == "" {
		return false
	}
	if _, ok := s.index[n]; ok {
		return false
	}
	s.index[n] = struct{}{}
	s.items = append(s.items, n)
	return true
}

// Items returns a copy of the keywords in order.
func (s *Set) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of keywords.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Contains reports whether keyword (after normalization) is in the set.
func (s *Set) Contains(keyword string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[relevance.Normalize(keyword)]
	return ok
}

// Union returns a new set holding s followed by any new entries of items,
// and the number of entries added. s is left untouched.
func (s *Set) Union(items []string) (*Set, int) {
	out := NewSet(s.Items()...)
	added := 0
	for _, it := range items {
		if out.add(it) {
			added++
		}
	}
	return out, added
}

// Holder is the shared reference to the current keyword snapshot. Readers
// never observe a partially built set.
type Holder struct {
	current atomic.Pointer[Set]
}

// NewHolder returns a holder initialized with set.
func NewHolder(set *Set) *Holder {
	h := &Holder{}
	if set == nil {
		set = NewSet()
	}
	h.current.Store(set)
	return h
}

// Snapshot returns the current set.
func (h *Holder) Snapshot() *Set {
	return h.current.Load()
}

// Replace swaps in a new set.
func (h *Holder) Replace(set *Set) {
	if set == nil {
		set = NewSet()
	}
	h.current.Store(set)
}
