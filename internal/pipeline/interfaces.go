package pipeline

import (
	"context"

	"ffnexus/internal/core"
	"ffnexus/internal/keywords"
	"ffnexus/internal/store"
)

// KeywordSource provides the current keyword snapshot
type KeywordSource interface {
	// Snapshot returns the set in effect; it must never block on I/O
	Snapshot() *keywords.Set
}

// KeywordMaintainer refreshes and grows the keyword set
type KeywordMaintainer interface {
	KeywordSource

	// Reload replaces the snapshot with the persisted list (fails soft to defaults)
	Reload(ctx context.Context) *keywords.Set

	// Learn merges frequent tokens from texts and persists the result
	Learn(ctx context.Context, texts []string) keywords.LearnResult
}

// MessageLog persists admitted messages
type MessageLog interface {
	// SaveMessage appends an admitted message with its score and incident type
	SaveMessage(ctx context.Context, msg core.Message, score int, incident string) error
}

// MessageHistory reads the message log in insertion order
type MessageHistory interface {
	// MessagesAfter returns messages logged after afterSeq, oldest first
	MessagesAfter(ctx context.Context, afterSeq int64) ([]store.StoredMessage, error)

	// LastSeq returns the sequence number of the newest logged message
	LastSeq(ctx context.Context) (int64, error)
}

// AlertDispatcher hands alert events to the delivery transport
type AlertDispatcher interface {
	// Dispatch queues the event without blocking and reports acceptance
	Dispatch(ev core.AlertEvent) bool
}
