package keywords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ffnexus/internal/store"
)

// DefaultDocumentKey is the kv key the keyword list is stored under.
const DefaultDocumentKey = "keywords"

// SQLStore keeps the keyword list as a JSON document in the SQL kv table.
type SQLStore struct {
	db  *store.Store
	key string
}

// NewSQLStore returns a keyword store backed by db.
func NewSQLStore(db *store.Store, key string) *SQLStore {
	if key == "" {
		key = DefaultDocumentKey
	}
	return &SQLStore{db: db, key: key}
}

func (s *SQLStore) Load(ctx context.Context) ([]string, error) {
	raw, err := s.db.GetValue(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeList(raw)
}

func (s *SQLStore) Save(ctx context.Context, keywords []string) error {
	data, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	return s.db.PutValue(ctx, s.key, string(data))
}

// decodeList parses a JSON array of strings.
func decodeList(raw string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return list, nil
}
